package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/payroll-intake/internal/integrator"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

func sampleReport() Report {
	return Report{
		RunID:  "run-1",
		Period: "с 01.02.2025 по 28.02.2025",
		Norms:  integrator.Norms{Shop: 160, Office: 168},
		Records: []types.IntegratedRecord{
			{
				Key:           "ИВАНОВ ИВАН",
				Name:          "Иванов Иван",
				Branch:        "Центр",
				Department:    "Обои",
				Hours:         150,
				DaysOff:       2,
				Revenue:       1500,
				NormType:      types.NormShop,
				Norm:          160,
				PercentOfNorm: 93.8,
				InRoster:      true,
				HasSchedule:   true,
			},
		},
		Unmatched: []integrator.Unmatched{
			{Seller: "КОЗЛОВ АНДРЕЙ", Name: "Козлов Андрей", Revenue: 50, Suggestion: "ИВАНОВ ИВАН"},
		},
		Stats: integrator.Stats{Employees: 1, WithSchedule: 1, Shop: 1},
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Equal(t, "key", cols[0])
	assert.Contains(t, cols, "percent_of_norm")
	assert.Contains(t, cols, "office_base")
	assert.Equal(t, "has_rule", cols[len(cols)-1])
	assert.Len(t, rowValues(types.IntegratedRecord{}), len(cols))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport().Records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns(), rows[0])

	idx := func(name string) int {
		for i, c := range rows[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %s missing", name)
		return -1
	}
	assert.Equal(t, "Иванов Иван", rows[1][idx("name")])
	assert.Equal(t, "shop", rows[1][idx("norm_type")])
	assert.Equal(t, "93.8", rows[1][idx("percent_of_norm")])
	assert.Equal(t, "true", rows[1][idx("has_schedule")])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns(), ","), strings.TrimSpace(buf.String()))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRecords, SheetSummary, SheetUnmatched}, f.GetSheetList())

	rows, err := f.GetRows(SheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns(), rows[0])
	assert.Equal(t, "ИВАНОВ ИВАН", rows[1][0])
	assert.Equal(t, "Иванов Иван", rows[1][1])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_id", "run-1"}, summary[1])
	assert.Equal(t, []string{"shop_norm", "160"}, summary[3])

	unmatched, err := f.GetRows(SheetUnmatched)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, []string{"КОЗЛОВ АНДРЕЙ", "Козлов Андрей", "50", "ИВАНОВ ИВАН"}, unmatched[1])
}

func TestWriteFormats(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir, "payroll_2025-02", []string{FormatXLSX, FormatCSV}, sampleReport())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "payroll_2025-02.xlsx"),
		filepath.Join(dir, "payroll_2025-02.csv"),
	}, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}

	_, err = Write(dir, "x", []string{"xml"}, sampleReport())
	assert.ErrorContains(t, err, "unsupported export format")
}
