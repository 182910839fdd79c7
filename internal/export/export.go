// =============================================================================
// Payroll Intake - Export Module
// =============================================================================
//
// This module writes the integrated record set for the downstream payroll
// calculation. The column names are the csv tags of
// types.IntegratedRecord, in field order, in both formats.
//
// OUTPUT FORMATS:
//   xlsx  three sheets:
//           Records    one row per employee, numbers stored as numbers
//           Summary    run id, period, norms and integration counters
//           Unmatched  ledger sellers that joined no employee
//   csv   the records only, UTF-8, comma separated, header row first
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/payroll-intake/internal/integrator"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Sheet names of the xlsx export.
const (
	SheetRecords   = "Records"
	SheetSummary   = "Summary"
	SheetUnmatched = "Unmatched"
)

// Report is everything one export writes.
type Report struct {
	RunID     string
	Period    string
	Norms     integrator.Norms
	Records   []types.IntegratedRecord
	Unmatched []integrator.Unmatched
	Stats     integrator.Stats
}

// NewReport builds a report from an integration result.
func NewReport(res *integrator.Result, period string, norms integrator.Norms) Report {
	return Report{
		RunID:     res.RunID.String(),
		Period:    period,
		Norms:     norms,
		Records:   res.Records,
		Unmatched: res.Unmatched,
		Stats:     res.Stats,
	}
}

// =============================================================================
// COLUMNS
// =============================================================================

// Columns returns the export column names in order.
func Columns() []string {
	t := reflect.TypeOf(types.IntegratedRecord{})
	cols := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("csv"); tag != "" && tag != "-" {
			cols = append(cols, tag)
		}
	}
	return cols
}

// rowValues returns the exported field values of rec in column order.
func rowValues(rec types.IntegratedRecord) []any {
	v := reflect.ValueOf(rec)
	t := v.Type()
	out := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("csv"); tag == "" || tag == "-" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			out = append(out, f.String())
		case reflect.Float64:
			out = append(out, f.Float())
		case reflect.Int:
			out = append(out, f.Int())
		case reflect.Bool:
			out = append(out, f.Bool())
		default:
			out = append(out, fmt.Sprint(f.Interface()))
		}
	}
	return out
}

// =============================================================================
// WRITERS
// =============================================================================

// Write writes the report in every format to dir as baseName plus the
// format extension.
//
// RETURNS:
//   - The paths written, in format order.
//   - An error for an unknown format or a failed write. Files written before
//     the failure are kept.
func Write(dir, baseName string, formats []string, rep Report) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := filepath.Join(dir, baseName+"."+format)
		var err error
		switch strings.ToLower(format) {
		case FormatXLSX:
			err = WriteXLSX(path, rep)
		case FormatCSV:
			err = WriteCSVFile(path, rep.Records)
		default:
			err = fmt.Errorf("unsupported export format %q", format)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCSV writes the records with a header row.
func WriteCSV(w io.Writer, records []types.IntegratedRecord) error {
	if records == nil {
		records = []types.IntegratedRecord{}
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteCSVFile writes the records to a CSV file at path.
func WriteCSVFile(path string, records []types.IntegratedRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if records == nil {
		records = []types.IntegratedRecord{}
	}
	if err := gocsv.MarshalFile(&records, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// WriteXLSX writes the report to an xlsx workbook at path.
func WriteXLSX(path string, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		return err
	}
	for _, name := range []string{SheetSummary, SheetUnmatched} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeRecords(f, rep.Records, bold); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := writeSummary(f, rep, bold); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := writeUnmatched(f, rep.Unmatched, bold); err != nil {
		return fmt.Errorf("write unmatched: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRecords(f *excelize.File, records []types.IntegratedRecord, style int) error {
	cols := Columns()
	if err := writeHeader(f, SheetRecords, cols, style); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowValues(rec)
		if err := f.SetSheetRow(SheetRecords, cell, &values); err != nil {
			return fmt.Errorf("employee %s: %w", rec.Key, err)
		}
	}
	last, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return err
	}
	return f.SetColWidth(SheetRecords, "A", last, 16)
}

func writeSummary(f *excelize.File, rep Report, style int) error {
	s := rep.Stats
	rows := [][]any{
		{"run_id", rep.RunID},
		{"period", rep.Period},
		{"shop_norm", rep.Norms.Shop},
		{"office_norm", rep.Norms.Office},
		{"employees", s.Employees},
		{"with_schedule", s.WithSchedule},
		{"with_sales", s.WithSales},
		{"with_orders", s.WithOrders},
		{"with_rule", s.WithRule},
		{"shop", s.Shop},
		{"office", s.Office},
		{"fixed", s.Fixed},
		{"schedule_only", s.ScheduleOnly},
		{"dropped", s.Dropped},
		{"unmatched_sellers", len(rep.Unmatched)},
	}
	if err := writeHeader(f, SheetSummary, []string{"metric", "value"}, style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 40)
}

func writeUnmatched(f *excelize.File, unmatched []integrator.Unmatched, style int) error {
	if err := writeHeader(f, SheetUnmatched, []string{"seller", "name", "revenue", "suggestion"}, style); err != nil {
		return err
	}
	for i, u := range unmatched {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{u.Seller.String(), u.Name, u.Revenue, u.Suggestion.String()}
		if err := f.SetSheetRow(SheetUnmatched, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetUnmatched, "A", "D", 30)
}
