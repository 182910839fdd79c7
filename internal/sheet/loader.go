// =============================================================================
// Payroll Intake - Sheet Loader
// =============================================================================
//
// This module reads the first worksheet of an input file into a RawSheet.
// Every parser works on RawSheet only, so the file format never leaks past
// this package.
//
// SUPPORTED FORMATS:
//   .xlsx / .xlsm  excelize, raw cell values (no number formatting)
//   .xls           extrame/xls (legacy BIFF exports of the accounting system)
//   .csv / .txt    encoding/csv, optional single-byte code page decoding
//
// LOADING PIPELINE:
//   1. Pick the reader by file extension
//   2. Read the whole first sheet in one pass
//   3. Normalize cells: trim, turn non-breaking spaces into spaces
//   4. Drop trailing empty rows
//
// =============================================================================

package sheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// Options controls format specific loading behaviour.
type Options struct {
	// Encoding is the code page of CSV and XLS input.
	// Values: "utf-8" (default for CSV), "windows-1251", "cp866", "koi8-r".
	Encoding string

	// Delimiter is the CSV field separator. Empty means auto-detect from the
	// first line (";" or "," or tab).
	Delimiter string
}

// DefaultOptions returns the options used by the command line tool.
// Accounting exports are Windows-1251 when they are not UTF-8.
func DefaultOptions() Options {
	return Options{Encoding: "utf-8"}
}

// Load reads the first sheet of the file at path.
//
// RETURNS:
//   - The sheet with Source set to path.
//   - An error if the format is unsupported or the file cannot be read.
func Load(path string, opts Options) (*types.RawSheet, error) {
	var (
		s   *types.RawSheet
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		s, err = loadXLSX(path)
	case ".xls":
		s, err = loadXLS(path, opts)
	case ".csv", ".txt":
		s, err = loadCSV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported file format %q: %s", ext, path)
	}
	if err != nil {
		return nil, err
	}

	s.Source = path
	s.Rows = trimRows(s.Rows)
	return s, nil
}

// FromRows builds a sheet from in-memory rows, applying the same cell
// normalization as Load.
func FromRows(name string, rows [][]string) *types.RawSheet {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, len(r))
		copy(out[i], r)
	}
	return &types.RawSheet{Name: name, Rows: trimRows(out)}
}

// trimRows cleans cells in place and removes trailing empty rows.
func trimRows(rows [][]string) [][]string {
	for _, r := range rows {
		for j, c := range r {
			r[j] = cleanCell(c)
		}
	}
	end := len(rows)
	for end > 0 && IsRowEmpty(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func cleanCell(c string) string {
	c = strings.ReplaceAll(c, "\u00a0", " ")
	return strings.TrimSpace(c)
}
