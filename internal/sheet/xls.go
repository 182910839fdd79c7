package sheet

import (
	"fmt"

	"github.com/extrame/xls"

	"github.com/ginjaninja78/payroll-intake/internal/types"
)

func loadXLS(path string, opts Options) (*types.RawSheet, error) {
	charset := opts.Encoding
	if charset == "" || charset == "utf-8" {
		charset = "windows-1251"
	}

	wb, err := xls.Open(path, charset)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}

	return &types.RawSheet{Name: ws.Name, Rows: rows}, nil
}
