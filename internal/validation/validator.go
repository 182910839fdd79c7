// =============================================================================
// Payroll Intake - Failure Taxonomy
// =============================================================================
//
// This module defines how extraction problems are reported. There are three
// kinds, and they never mix:
//
//   1. StructuralError: a source file cannot be interpreted at all (header
//      row not found, required column unresolved). The whole file fails;
//      no partial records are returned.
//   2. Issue and Skips: a single row was rejected or looked suspicious. The
//      parse goes on; rows are counted by reason and notable ones are kept
//      as issues for the error log.
//   3. UnresolvedNormError: integration found employees whose hour norm
//      resolved to zero. The whole run aborts.
//
// ERROR HANDLING:
//   - Parsers return *StructuralError as their error value
//   - Callers use errors.As to tell structural failures from I/O errors
//   - Every message carries the file and, where known, the A1 cell address
//
// =============================================================================

package validation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// =============================================================================
// STRUCTURAL FAILURE
// =============================================================================

// StructuralError reports a source file whose layout could not be inferred.
type StructuralError struct {
	Source types.SourceKind
	File   string

	// What describes the problem, e.g. "header row not found".
	What string

	// Row and Col are 0-based; -1 when the failure has no location.
	Row int
	Col int

	// Missing lists the unresolved required column roles.
	Missing []string

	// Hint tells the operator what the parser looked for.
	Hint string
}

// NewStructuralError creates a failure without a location.
func NewStructuralError(source types.SourceKind, file, format string, args ...any) *StructuralError {
	return &StructuralError{
		Source: source,
		File:   file,
		What:   fmt.Sprintf(format, args...),
		Row:    -1,
		Col:    -1,
	}
}

// At sets the 0-based cell the failure refers to.
func (e *StructuralError) At(row, col int) *StructuralError {
	e.Row, e.Col = row, col
	return e
}

// WithMissing records unresolved roles.
func (e *StructuralError) WithMissing(roles ...string) *StructuralError {
	e.Missing = append(e.Missing, roles...)
	return e
}

// WithHint records what the parser searched for.
func (e *StructuralError) WithHint(format string, args ...any) *StructuralError {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Location returns the A1 address or row number of the failure, "" if none.
func (e *StructuralError) Location() string {
	switch {
	case e.Row >= 0 && e.Col >= 0:
		return sheet.CellName(e.Row, e.Col)
	case e.Row >= 0:
		return fmt.Sprintf("row %d", e.Row+1)
	default:
		return ""
	}
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Source)
	if e.File != "" {
		fmt.Fprintf(&b, " file %s", filepath.Base(e.File))
	}
	fmt.Fprintf(&b, ": %s", e.What)
	if loc := e.Location(); loc != "" {
		fmt.Fprintf(&b, " at %s", loc)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing columns: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "; %s", e.Hint)
	}
	return b.String()
}

// =============================================================================
// ROW-LEVEL ISSUES
// =============================================================================

// Severity of a row-level issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single noteworthy row: skipped, defaulted or ambiguously joined.
type Issue struct {
	Severity Severity
	Source   types.SourceKind
	File     string

	// RowNumber is 1-based; 0 when not tied to a row.
	RowNumber int

	// Rule names the check, e.g. "empty_department", "partial_match".
	Rule    string
	Value   string
	Message string
}

// Error implements the error interface.
func (i *Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(i.Severity)), i.Source)
	if i.RowNumber > 0 {
		fmt.Fprintf(&b, " row %d", i.RowNumber)
	}
	fmt.Fprintf(&b, ", %s: %s", i.Rule, i.Message)
	if i.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", i.Value)
	}
	return b.String()
}

// Issues collects row-level issues for one source.
type Issues struct {
	Source types.SourceKind
	File   string
	List   []*Issue
}

// Warn records a warning for a 0-based row (-1 for none).
func (is *Issues) Warn(row int, rule, value, format string, args ...any) {
	is.add(SeverityWarning, row, rule, value, fmt.Sprintf(format, args...))
}

// Info records an informational issue.
func (is *Issues) Info(row int, rule, value, format string, args ...any) {
	is.add(SeverityInfo, row, rule, value, fmt.Sprintf(format, args...))
}

func (is *Issues) add(sev Severity, row int, rule, value, msg string) {
	is.List = append(is.List, &Issue{
		Severity:  sev,
		Source:    is.Source,
		File:      is.File,
		RowNumber: row + 1,
		Rule:      rule,
		Value:     value,
		Message:   msg,
	})
}

// Len returns the number of recorded issues.
func (is *Issues) Len() int {
	if is == nil {
		return 0
	}
	return len(is.List)
}

// =============================================================================
// SKIP COUNTERS
// =============================================================================

// Skips counts rejected rows by reason.
type Skips map[string]int

// Add counts one rejected row.
func (s Skips) Add(reason string) {
	s[reason]++
}

// Total returns the number of rejected rows.
func (s Skips) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// String formats the counters as "reason=n" sorted by reason.
func (s Skips) String() string {
	reasons := make([]string, 0, len(s))
	for r := range s {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", r, s[r])
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// UNRESOLVED HOUR NORMS
// =============================================================================

// NormIssue identifies an employee whose hour norm resolved to zero.
type NormIssue struct {
	Key        string
	Name       string
	Department string
	NormType   types.NormType
}

// UnresolvedNormError aborts integration when any norm is zero.
type UnresolvedNormError struct {
	Employees []NormIssue
}

// Error implements the error interface.
func (e *UnresolvedNormError) Error() string {
	seen := make(map[string]bool)
	var kinds []string
	for _, emp := range e.Employees {
		k := string(emp.NormType)
		if k == "" {
			k = "(no rule)"
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)

	var b strings.Builder
	fmt.Fprintf(&b, "hour norm is zero for %d employee(s), norm types: %s",
		len(e.Employees), strings.Join(kinds, ", "))
	for _, emp := range e.Employees {
		fmt.Fprintf(&b, "\n  %s [%s] type=%q", emp.Name, emp.Department, emp.NormType)
	}
	return b.String()
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats failures and issues for display or logging.
func FormatErrors(failures []error, issues []*Issue) string {
	if len(failures) == 0 && len(issues) == 0 {
		return "No extraction errors.\n"
	}

	var builder strings.Builder

	if len(failures) > 0 {
		fmt.Fprintf(&builder, "Extraction failed for %d source(s):\n\n", len(failures))
		for i, err := range failures {
			fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
		}
		builder.WriteString("\n")
	}

	if len(issues) > 0 {
		fmt.Fprintf(&builder, "%d row issue(s):\n\n", len(issues))
		for i, is := range issues {
			fmt.Fprintf(&builder, "%d. %s\n", i+1, is.Error())
		}
	}

	return builder.String()
}
