// =============================================================================
// Payroll Intake - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It discovers and parses every
// source like 'process' does, but stops before integration and writes
// nothing. Use it to check a month's files before the real run.
//
// COMMAND USAGE:
//   intake validate [--issues]
//
// EXIT STATUS:
//   Non-zero when a required source is missing or fails to parse.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/payroll-intake/internal/pipeline"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
	"github.com/ginjaninja78/payroll-intake/pkg/utils"
)

var showIssues bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse every source in the input directory without integrating",
	Long: `Validate finds the six monthly sources in the input directory, parses
each of them and prints what it found: the file, the number of records,
skipped rows by reason and, for a failed source, why it failed.

Nothing is exported or archived.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&showIssues, "issues", false,
		"List every row-level issue, not just the count")
}

func runValidate(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	discovery, err := utils.FromConfig(appConfig).DiscoverSources(appConfig.Sources)
	if err != nil {
		return err
	}
	logDiscovery(discovery)

	p := pipeline.New(appConfig, pipeline.WithLogger(logger), pipeline.WithVocabulary(vocab))
	ext, err := p.Extract(cmd.Context(), pipeline.Files(discovery.Files))
	if err != nil {
		return err
	}

	printSources(out, ext.Sources)

	issues := ext.Issues()
	fmt.Fprintf(out, "\nRow issues: %d\n", len(issues))
	if showIssues && len(issues) > 0 {
		fmt.Fprint(out, validation.FormatErrors(nil, issues))
	}

	var errs []error
	for _, kind := range discovery.Missing() {
		errs = append(errs, fmt.Errorf("%s: %w", kind, pipeline.ErrMissingSource))
	}
	for _, src := range ext.Sources {
		if src.Err != nil && src.Kind.Required() {
			errs = append(errs, fmt.Errorf("%s: %w", src.Kind, src.Err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}

	fmt.Fprintln(out, "All required sources parsed.")
	return nil
}

// printSources writes one block per source kind.
func printSources(w io.Writer, sources []pipeline.SourceResult) {
	for _, src := range sources {
		fmt.Fprintf(w, "%-11s ", src.Kind)
		switch {
		case src.File == "" && src.Err == nil:
			if src.Kind.Required() {
				fmt.Fprintln(w, "MISSING")
			} else {
				fmt.Fprintln(w, "not supplied (optional)")
			}
			continue
		case src.Err != nil:
			fmt.Fprintf(w, "FAILED   %s\n", filepath.Base(src.File))
			fmt.Fprintf(w, "            %v\n", src.Err)
			continue
		}

		fmt.Fprintf(w, "OK       %s  records=%d  time=%s\n",
			filepath.Base(src.File), src.Records, src.Elapsed.Round(time.Millisecond))
		if src.Skipped.Total() > 0 {
			fmt.Fprintf(w, "            skipped: %s\n", src.Skipped)
		}
	}
}

// describeKind is the human label of a source kind.
func describeKind(k types.SourceKind) string {
	switch k {
	case types.SourceRoster:
		return "staff roster"
	case types.SourceAttendance:
		return "attendance schedule"
	case types.SourceCatalog:
		return "bonus item catalog"
	case types.SourcePayRules:
		return "pay-rule table"
	case types.SourceSales:
		return "sales ledger"
	case types.SourceOrders:
		return "special-order ledger"
	}
	return string(k)
}
