// =============================================================================
// Payroll Intake - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which parses a single source file
// and prints what its parser recovered: the detected layout, the record
// counts and the skipped rows. It is the first thing to run when a month's
// file stops parsing.
//
// COMMAND USAGE:
//   intake inspect <file> --kind <roster|attendance|catalog|pay_rules|sales|orders>
//
// DEPENDENCIES:
//   The sales ledger classifies items with the catalog, both ledgers honour
//   the pay-rule exclusions and the order ledger matches sellers against the
//   roster. Pass those files with --catalog, --pay-rules and --roster;
//   without them the ledger is parsed on its own.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/payroll-intake/internal/pipeline"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

var (
	inspectKind     string
	inspectCatalog  string
	inspectPayRules string
	inspectRoster   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse one source file and show what was recovered",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseSourceKind(inspectKind)
		if err != nil {
			return err
		}
		return runInspect(cmd, kind, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectKind, "kind", "k", "",
		"Source kind: roster, attendance, catalog, pay_rules, sales or orders")
	inspectCmd.Flags().StringVar(&inspectCatalog, "catalog", "", "Item catalog for a sales ledger")
	inspectCmd.Flags().StringVar(&inspectPayRules, "pay-rules", "", "Pay-rule table for ledger exclusions")
	inspectCmd.Flags().StringVar(&inspectRoster, "roster", "", "Staff roster for an order ledger")
	_ = inspectCmd.MarkFlagRequired("kind")
}

func runInspect(cmd *cobra.Command, kind types.SourceKind, file string) error {
	files := pipeline.Files{kind: file}
	if kind == types.SourceSales || kind == types.SourceOrders {
		addFile(files, types.SourcePayRules, inspectPayRules)
	}
	if kind == types.SourceSales {
		addFile(files, types.SourceCatalog, inspectCatalog)
	}
	if kind == types.SourceOrders {
		addFile(files, types.SourceRoster, inspectRoster)
	}

	p := pipeline.New(appConfig, pipeline.WithLogger(logger), pipeline.WithVocabulary(vocab))
	ext, err := p.Extract(cmd.Context(), files)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n\n", describeKind(kind), file)
	printSources(out, supplied(ext.Sources))

	src := ext.Source(kind)
	if src.Err != nil {
		return fmt.Errorf("%s: %w", kind, src.Err)
	}

	fmt.Fprintln(out)
	printDetail(out, kind, ext)
	return nil
}

func addFile(files pipeline.Files, kind types.SourceKind, path string) {
	if path != "" {
		files[kind] = path
	}
}

func supplied(sources []pipeline.SourceResult) []pipeline.SourceResult {
	var out []pipeline.SourceResult
	for _, s := range sources {
		if s.File != "" {
			out = append(out, s)
		}
	}
	return out
}

// printDetail writes the per-kind figures of a parsed source.
func printDetail(w io.Writer, kind types.SourceKind, ext *pipeline.Extraction) {
	switch kind {
	case types.SourceRoster:
		r := ext.Roster
		fmt.Fprintf(w, "Header row:   %s (%s)\n", rowLabel(r.HeaderRow), r.Strategy)
		fmt.Fprintf(w, "Columns:      %v\n", r.Columns.Roles())
		fmt.Fprintf(w, "Employees:    %d\n", len(r.Records))
		printCounts(w, "Branches", r.ByBranch)
		printCounts(w, "Departments", r.ByDepartment)

	case types.SourceAttendance:
		a := ext.Attendance
		fmt.Fprintf(w, "Period:       %s\n", orNone(a.Period))
		fmt.Fprintf(w, "Header row:   %s\n", rowLabel(a.HeaderRow))
		fmt.Fprintf(w, "Employees:    %d\n", len(a.Records))
		fmt.Fprintf(w, "Issues:       %d\n", a.Issues.Len())

	case types.SourceCatalog:
		c := ext.Catalog
		fmt.Fprintf(w, "Positional:   %t\n", c.Positional)
		fmt.Fprintf(w, "Items:        %d (bonus %d, non-liquid %d, regular %d)\n",
			c.Stats.Processed, c.Stats.Bonus, c.Stats.NonLiquid, c.Stats.Regular)

	case types.SourcePayRules:
		r := ext.PayRules
		fmt.Fprintf(w, "Office base:  %.2f\n", r.OfficeBase)
		fmt.Fprintf(w, "Departments:  %d across %d branches\n", len(r.Rules), r.Branches)
		fmt.Fprintf(w, "Exclusions:   %v\n", r.Exclusions)

	case types.SourceSales:
		s := ext.Sales
		fmt.Fprintf(w, "Period:       %s\n", orNone(s.Period))
		fmt.Fprintf(w, "Sellers:      %d (%d blocks)\n", len(s.Sellers), s.Stats.Blocks)
		fmt.Fprintf(w, "Items:        %d (bonus %d, non-liquid %d)\n",
			s.Stats.Items, s.Stats.Bonus, s.Stats.NonLiquid)
		fmt.Fprintf(w, "Quantity:     %s\n", s.Stats.Quantity.StringFixed(2))
		fmt.Fprintf(w, "Revenue:      %s\n", s.Stats.Revenue.StringFixed(2))

	case types.SourceOrders:
		o := ext.Orders
		fmt.Fprintf(w, "Sellers:      %d (%d unmatched)\n", len(o.Sellers), o.Stats.Unmatched)
		fmt.Fprintf(w, "Unordered:    %d items, revenue %s\n",
			o.Stats.Unordered.Items, o.Stats.Unordered.Revenue.StringFixed(2))
		fmt.Fprintf(w, "Ordered:      %d items, revenue %s\n",
			o.Stats.Ordered.Items, o.Stats.Ordered.Revenue.StringFixed(2))
		fmt.Fprintf(w, "Issues:       %d\n", o.Issues.Len())
	}
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	fmt.Fprintf(w, "%s:\n", label)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-30s %d\n", k, counts[k])
	}
}

func orNone(s string) string {
	if s == "" {
		return "(not found)"
	}
	return s
}

// rowLabel renders a zero-based row index as a spreadsheet row number.
func rowLabel(row int) string {
	if row < 0 {
		return "none"
	}
	return fmt.Sprint(row + 1)
}
