// =============================================================================
// Payroll Intake - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs one monthly intake
// end to end.
//
// COMMAND USAGE:
//   intake process [flags]
//
// FLAGS:
//   --dry-run      : Parse and integrate, but write no exports and archive nothing
//   --shop-norm    : Shop hour norm; overrides config and the schedule period
//   --office-norm  : Office hour norm; overrides config
//   --period       : Period text used instead of the schedule's period cell
//
// PROCESSING PIPELINE:
//   1. Discover the six source files in the input directory
//   2. Run the pipeline (parse every source, integrate)
//   3. Write the error log (structural failures and row issues)
//   4. Export the integrated records
//   5. Archive outputs and, when enabled, the sources
//   6. Write and print the summary
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/export"
	"github.com/ginjaninja78/payroll-intake/internal/pipeline"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
	"github.com/ginjaninja78/payroll-intake/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	shopNorm   float64
	officeNorm float64
	period     string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the monthly intake on the input directory",
	Long: `The process command finds the roster, attendance schedule, item catalog,
pay-rule table, sales ledger and special-order ledger in the input directory,
parses each of them and joins them into one record per employee.

On success:
  - The records are exported to the output directory (xlsx and/or csv)
  - Exports are copied to the output archive
  - Sources are moved to the input archive when archive_inputs is set
  - A summary is printed and written to the output directory

On error:
  - Nothing is exported
  - An error log listing every failed source is written
  - The sources remain in the input directory

The special-order ledger is optional. Without it the records carry no order
figures and the summary says so.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Parse and integrate without writing exports or archiving")
	processCmd.Flags().Float64Var(&shopNorm, "shop-norm", 0,
		"Shop hour norm (default: config, else derived from the schedule period)")
	processCmd.Flags().Float64Var(&officeNorm, "office-norm", 0,
		"Office hour norm (default: config)")
	processCmd.Flags().StringVar(&period, "period", "",
		`Reporting period text, e.g. "с 01.02.2025 по 28.02.2025"`)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()
	cfg := appConfig
	out := cmd.OutOrStdout()

	fm := utils.FromConfig(cfg)
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: DISCOVER SOURCES
	// =========================================================================

	discovery, err := fm.DiscoverSources(cfg.Sources)
	if err != nil {
		return err
	}
	logDiscovery(discovery)

	// =========================================================================
	// STEP 2: RUN THE PIPELINE
	// =========================================================================

	p := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithVocabulary(vocab),
		pipeline.WithShopNorm(shopNorm),
		pipeline.WithOfficeNorm(officeNorm),
		pipeline.WithPeriod(period))

	res, runErr := p.Run(cmd.Context(), pipeline.Files(discovery.Files))
	summary := buildSummary(res, startTime)

	// =========================================================================
	// STEP 3: ERROR LOG
	// =========================================================================

	if res != nil && res.Extraction != nil && !dryRun {
		failures := res.Extraction.Failures()
		var normErr *validation.UnresolvedNormError
		if runErr != nil && (len(failures) == 0 || errors.As(runErr, &normErr)) {
			failures = append(failures, runErr)
		}
		logPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("error_log_%s.txt", startTime.Format("20060102_150405")))
		if err := validation.WriteErrorLog(logPath, failures, res.Extraction.Issues()); err != nil {
			logger.Warn("failed to write error log", zap.Error(err))
		}
	}

	if runErr != nil {
		summary.Failure = runErr.Error()
		finish(cmd, fm, summary)
		return runErr
	}

	// =========================================================================
	// STEP 4: EXPORT
	// =========================================================================

	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing exported or archived.")
		finish(cmd, fm, summary)
		return nil
	}

	params := map[string]string{"uuid": res.Integration.RunID.String()}
	if !res.Period.IsZero() {
		params["period"] = res.Period.Month()
	}
	name := utils.GenerateOutputFileName(cfg.OutputName, params)

	report := export.NewReport(res.Integration, res.PeriodText, res.Norms)
	paths, err := export.Write(cfg.OutputDir, name, cfg.ExportFormats, report)
	summary.OutputFiles = paths
	if err != nil {
		summary.Failure = err.Error()
		finish(cmd, fm, summary)
		return fmt.Errorf("failed to write output: %w", err)
	}

	// =========================================================================
	// STEP 5: ARCHIVE
	// =========================================================================

	for _, path := range paths {
		if _, err := fm.ArchiveOutputFile(path); err != nil {
			logger.Warn("failed to archive output", zap.String("file", path), zap.Error(err))
		}
	}
	if cfg.ArchiveInputs {
		for _, src := range discovery.Files {
			archived, err := fm.ArchiveInputFile(src)
			if err != nil {
				logger.Warn("failed to archive source", zap.String("file", src), zap.Error(err))
				continue
			}
			logger.Debug("source archived", zap.String("file", src), zap.String("archive", archived))
		}
	}

	// =========================================================================
	// STEP 6: SUMMARY
	// =========================================================================

	finish(cmd, fm, summary)
	return nil
}

// finish prints the summary and, outside dry runs, writes it to the output
// directory.
func finish(cmd *cobra.Command, fm *utils.FileManager, summary utils.ProcessingSummary) {
	summary.EndTime = time.Now()
	if err := utils.FormatSummary(cmd.OutOrStdout(), summary); err != nil {
		logger.Warn("failed to print summary", zap.Error(err))
	}
	if dryRun {
		return
	}
	if _, err := utils.WriteSummaryLog(summary, fm.OutputDir); err != nil {
		logger.Warn("failed to write summary", zap.Error(err))
	}
}

func logDiscovery(d utils.Discovery) {
	for kind, file := range d.Files {
		logger.Info("source found", zap.String("source", string(kind)), zap.String("file", file))
	}
	for kind, files := range d.Ambiguous {
		logger.Warn("several files match, using the most recent",
			zap.String("source", string(kind)), zap.Strings("files", files))
	}
	for _, f := range d.Unclaimed {
		logger.Debug("file matches no source pattern", zap.String("file", f))
	}
	for _, kind := range d.Missing() {
		logger.Error("required source not found", zap.String("source", string(kind)))
	}
}

// buildSummary converts a pipeline result to the summary log shape.
func buildSummary(res *pipeline.Result, start time.Time) utils.ProcessingSummary {
	s := utils.ProcessingSummary{StartTime: start, EndTime: time.Now()}
	if res == nil {
		return s
	}

	s.Period = res.PeriodText
	s.ShopNorm = res.Norms.Shop
	s.OfficeNorm = res.Norms.Office
	s.Degraded = res.Degraded

	if ext := res.Extraction; ext != nil {
		s.Issues = len(ext.Issues())
		for _, src := range ext.Sources {
			info := utils.SourceInfo{
				Kind:        string(src.Kind),
				File:        src.File,
				Records:     src.Records,
				ProcessTime: src.Elapsed,
			}
			if src.Skipped != nil {
				info.Skipped = src.Skipped.String()
			}
			if src.Err != nil {
				info.Error = src.Err.Error()
			}
			s.Sources = append(s.Sources, info)
		}
	}

	if integ := res.Integration; integ != nil {
		s.RunID = integ.RunID.String()
		s.Employees = len(integ.Records)
		s.Unmatched = len(integ.Unmatched)
	}
	return s
}
