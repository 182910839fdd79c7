// =============================================================================
// Payroll Intake - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the intake, including:
//   - Source discovery: which file in the input directory is which source
//   - File archival (moving processed sources, copying outputs)
//   - Summary log generation
//   - Directory management and output naming
//
// ARCHIVAL STRATEGY:
//   - Source files are moved to input_archive after a successful run
//   - Output files are copied to output_archive for long-term storage
//   - Sources of a failed run remain in the input directory
//   - Error logs are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the intake.
type FileManager struct {
	// InputDir is scanned for the monthly source files.
	InputDir string

	// OutputDir receives exports and logs.
	OutputDir string

	// InputArchiveDir receives the sources after a successful run.
	InputArchiveDir string

	// OutputArchiveDir receives copies of the exports.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2025/02/28/staff.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether archival moves or copies anything.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:            inputDir,
		OutputDir:           outputDir,
		InputArchiveDir:     inputArchiveDir,
		OutputArchiveDir:    outputArchiveDir,
		UseTimestampSubdirs: false,
		ArchiveOnSuccess:    true,
	}
}

// FromConfig creates a FileManager for the configured directories.
func FromConfig(cfg *config.MainConfig) *FileManager {
	fm := NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ArchiveInputs
	return fm
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// SOURCE DISCOVERY
// =============================================================================

// supportedExtensions are the formats the sheet loader reads.
var supportedExtensions = map[string]bool{
	".xlsx": true, ".xlsm": true, ".xls": true, ".csv": true, ".txt": true,
}

// Discovery is the outcome of scanning the input directory.
type Discovery struct {
	// Files maps each source kind to the chosen file.
	Files map[types.SourceKind]string

	// Ambiguous lists, per kind, every file that matched when more than one
	// did. The most recently modified one is chosen.
	Ambiguous map[types.SourceKind][]string

	// Unclaimed lists supported files no pattern matched.
	Unclaimed []string
}

// Missing returns the required kinds without a file.
func (d Discovery) Missing() []types.SourceKind {
	var out []types.SourceKind
	for _, k := range types.SourceKinds {
		if k.Required() && d.Files[k] == "" {
			out = append(out, k)
		}
	}
	return out
}

// DiscoverSources assigns files in the input directory to source kinds.
//
// MATCHING LOGIC:
//   Base names and patterns are compared case-insensitively with
//   filepath.Match. A file is claimed by the first kind, in
//   types.SourceKinds order, that has a matching pattern. Office lock files
//   ("~$...") and unsupported extensions are ignored.
//
// RETURNS:
//   - The discovery.
//   - An error if the directory cannot be read or a pattern is malformed.
func (fm *FileManager) DiscoverSources(patterns config.SourcePatterns) (Discovery, error) {
	d := Discovery{
		Files:     make(map[types.SourceKind]string),
		Ambiguous: make(map[types.SourceKind][]string),
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return d, fmt.Errorf("failed to scan input directory: %w", err)
	}

	byKind := map[types.SourceKind][]string{
		types.SourceRoster:     patterns.Roster,
		types.SourceAttendance: patterns.Attendance,
		types.SourceCatalog:    patterns.Catalog,
		types.SourcePayRules:   patterns.PayRules,
		types.SourceSales:      patterns.Sales,
		types.SourceOrders:     patterns.Orders,
	}

	matches := make(map[types.SourceKind][]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		kind, err := classify(name, byKind)
		if err != nil {
			return d, err
		}
		path := filepath.Join(fm.InputDir, name)
		if kind == "" {
			d.Unclaimed = append(d.Unclaimed, path)
			continue
		}
		matches[kind] = append(matches[kind], path)
	}

	for kind, paths := range matches {
		if len(paths) > 1 {
			sort.SliceStable(paths, func(i, j int) bool {
				return modTime(paths[i]).After(modTime(paths[j]))
			})
			d.Ambiguous[kind] = paths
		}
		d.Files[kind] = paths[0]
	}

	return d, nil
}

func classify(name string, byKind map[types.SourceKind][]string) (types.SourceKind, error) {
	lower := strings.ToLower(name)
	for _, kind := range types.SourceKinds {
		for _, pattern := range byKind[kind] {
			ok, err := filepath.Match(strings.ToLower(pattern), lower)
			if err != nil {
				return "", fmt.Errorf("invalid %s pattern %q: %w", kind, pattern, err)
			}
			if ok {
				return kind, nil
			}
		}
	}
	return "", nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a source file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; copy and delete instead.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory. The
// output stays in place.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.OutputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands the placeholders of an output base name.
//
// PARAMETERS:
//   - format: The base name. Placeholders:
//       {uuid}      - a random UUID, unless params sets it (the run id)
//       {timestamp} - current timestamp (YYYYMMDD_HHMMSS)
//       {date}      - current date (YYYYMMDD)
//       {time}      - current time (HHMMSS)
//       {period}    - reporting month (YYYY-MM), from params
//   - params: Placeholder values; they override the built-in ones.
//
// RETURNS:
//   - The base name, without extension. Unresolved placeholders are removed
//     and path separators replaced.
//
// EXAMPLE:
//   format: "payroll_{period}_{timestamp}"
//   params: {"period": "2025-02"}
//   output: "payroll_2025-02_20250301_090000"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
		"{period}":    "",
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	result = strings.NewReplacer("/", "-", "\\", "-", "__", "_").Replace(result)
	return strings.Trim(result, "_-")
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about one intake run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Period    string

	ShopNorm   float64
	OfficeNorm float64

	Employees int
	Unmatched int
	Issues    int

	// Degraded is set when the run went on without order figures.
	Degraded bool

	Sources     []SourceInfo
	OutputFiles []string

	// Failure is the run error, "" on success.
	Failure string
}

// SourceInfo describes one source file of the run.
type SourceInfo struct {
	Kind        string
	File        string
	Records     int
	Skipped     string
	Error       string
	ProcessTime time.Duration
}

// WriteSummaryLog writes a processing summary to a log file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := FormatSummary(writer, summary); err != nil {
		return "", err
	}
	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, file.Close()
}

// FormatSummary writes the human-readable summary to w.
func FormatSummary(w io.Writer, summary ProcessingSummary) error {
	status := "success"
	switch {
	case summary.Failure != "":
		status = "failed"
	case summary.Degraded:
		status = "success, without order figures"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	_, err := fmt.Fprintf(w, "Payroll Intake - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Status:         %s\n\n"+
		"Statistics:\n"+
		"  Period:             %s\n"+
		"  Shop Norm:          %g\n"+
		"  Office Norm:        %g\n"+
		"  Employees:          %d\n"+
		"  Unmatched Sellers:  %d\n"+
		"  Row Issues:         %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		status,
		summary.Period,
		summary.ShopNorm,
		summary.OfficeNorm,
		summary.Employees,
		summary.Unmatched,
		summary.Issues)
	if err != nil {
		return err
	}

	if len(summary.Sources) > 0 {
		fmt.Fprintln(w, "Sources:")
		fmt.Fprintln(w, "--------------------------------------------------------------------------------")
		for _, s := range summary.Sources {
			fmt.Fprintf(w, "  %-12s %s\n", s.Kind+":", orDash(s.File))
			if s.Error != "" {
				fmt.Fprintf(w, "  %-12s %s\n", "Error:", s.Error)
			} else if s.File != "" {
				fmt.Fprintf(w, "  %-12s %d\n", "Records:", s.Records)
				fmt.Fprintf(w, "  %-12s %s\n", "Skipped:", orDash(s.Skipped))
				fmt.Fprintf(w, "  %-12s %s\n", "Time:", s.ProcessTime.String())
			}
			fmt.Fprintln(w)
		}
	}

	if len(summary.OutputFiles) > 0 {
		fmt.Fprintln(w, "Output Files:")
		fmt.Fprintln(w, "--------------------------------------------------------------------------------")
		for _, f := range summary.OutputFiles {
			fmt.Fprintf(w, "  %s\n", f)
		}
		fmt.Fprintln(w)
	}

	if summary.Failure != "" {
		fmt.Fprintln(w, "Failure:")
		fmt.Fprintln(w, "--------------------------------------------------------------------------------")
		fmt.Fprintf(w, "  %s\n\n", strings.ReplaceAll(summary.Failure, "\n", "\n  "))
	}

	_, err = fmt.Fprint(w, "================================================================================\n"+
		"End of Summary\n")
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
