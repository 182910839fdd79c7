package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/payroll-intake/internal/types"
)

func loadXLSX(path string) (*types.RawSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// Raw values keep "168.5" instead of a locale formatted "168,50".
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", name, path, err)
	}

	return &types.RawSheet{Name: name, Rows: rows}, nil
}

// CellAddress converts an "I2" style reference into 0-based row and column.
func CellAddress(ref string) (row, col int, err error) {
	c, r, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	return r - 1, c - 1, nil
}

// CellName converts 0-based row and column into an "I2" style reference.
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return name
}
