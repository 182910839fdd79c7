package payrules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

func newParser(t *testing.T, opts ...Option) *Parser {
	opts = append(opts, WithLogger(zaptest.NewLogger(t)))
	return New(config.DefaultVocabulary().PayRules, opts...)
}

func rulesSheet() [][]string {
	return [][]string{
		{"Условия расчёта", "", "", "", "", "", "", "", ""},
		{"", "", "", "", "", "", "", "", "25 000,50"},
		{"Фирмы и отделы", "Отделы", "Филиал", "Базовая часть", "Минималка",
			"Неликвиды в котле", "Нелик%", "Норма часов", "Коэф. обычный товар",
			"Коэф. бонусный товар", "Неликвид %", "Опт %", "1 место", "2 место"},
		{"ООО Ромашка", "Обои", "Центр", "30 000", "20000", "да", "5", "магазин", "1,5", "3", "0,5", "1", "10000", "5000"},
		{"ИП Сидоров", "Плитка", "Центр", "28000", "", "нет", "", "Офис", "1", "", "", "", "", ""},
		{"12", "Сантехника", "Север", "abc", "", "", "", "", "", "", "", "", "", ""},
		{"", "Отдел оптовых продаж", "", "", "", "", "", "", "", "", "", "", "", ""},
		{"", "Офис", "", "", "", "", "", "", "", "", "", "", "", ""},
		{"", "Обои", "Север", "1", "", "", "", "", "", "", "", "", "", ""},
		{"", "  Плитка\tпремиум ", "Север", "1", "", "", "", "вахта", "", "", "", "", "", ""},
	}
}

func TestParseRules(t *testing.T) {
	res, err := newParser(t).Parse(sheet.FromRows("urs", rulesSheet()))
	require.NoError(t, err)

	assert.Equal(t, 25000.5, res.OfficeBase)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, []string{"ООО Ромашка", "ИП Сидоров"}, res.Exclusions)

	require.Len(t, res.Rules, 4)

	oboi, ok := res.Rule("обои")
	require.True(t, ok)
	assert.Equal(t, "Центр", oboi.Branch, "first row of a department wins")
	assert.Equal(t, 30000.0, oboi.Base)
	assert.Equal(t, 20000.0, oboi.Floor)
	assert.True(t, oboi.NonLiquidInPool)
	assert.Equal(t, 5.0, oboi.NonLiquidPercent)
	assert.Equal(t, types.NormShop, oboi.NormType)
	assert.Equal(t, 1.5, oboi.CoefRegular)
	assert.Equal(t, 3.0, oboi.CoefBonus)
	assert.Equal(t, 0.5, oboi.CoefNonLiquid)
	assert.Equal(t, 1.0, oboi.CoefWholesale)
	assert.Equal(t, [5]float64{10000, 5000, 0, 0, 0}, oboi.Guarantees)

	tile, ok := res.Rule("Плитка")
	require.True(t, ok)
	assert.Equal(t, types.NormOffice, tile.NormType)
	assert.False(t, tile.NonLiquidInPool)

	plumbing, ok := res.Rule("Сантехника")
	require.True(t, ok)
	assert.Equal(t, 0.0, plumbing.Base, "unparsable numbers default to zero")
	assert.Equal(t, types.NormFixed, plumbing.NormType, "empty norm cell is a fixed norm")
	assert.Equal(t, types.DefaultFixedHours, plumbing.FixedHours)

	premium, ok := res.Rule("Плитка премиум")
	require.True(t, ok)
	assert.Equal(t, "Плитка премиум", premium.Department)
	assert.Equal(t, types.NormFixed, premium.NormType)

	_, ok = res.Rule("Отдел оптовых продаж")
	assert.False(t, ok)
	_, ok = res.Rule("Офис")
	assert.False(t, ok)

	assert.Equal(t, 2, res.Skipped["excluded_department"])
	assert.Equal(t, 1, res.Skipped["duplicate"])
	assert.Equal(t, 2, res.Branches)
}

func TestParseWithoutNormColumnIsShop(t *testing.T) {
	s := sheet.FromRows("urs", [][]string{
		{"Фирмы и отделы", "Отделы", "Базовая"},
		{"", "Обои", "100"},
	})

	res, err := newParser(t).Parse(s)
	require.NoError(t, err)

	rule, ok := res.Rule("Обои")
	require.True(t, ok)
	assert.Equal(t, types.NormShop, rule.NormType)
	assert.Equal(t, 0.0, rule.FixedHours)
}

func TestParseHeaderMissingKeepsScalar(t *testing.T) {
	s := sheet.FromRows("urs", [][]string{
		{"Отделы", "Фирмы и отделы"},
		{"", "", "", "", "", "", "", "", "1 500"},
	})

	res, err := newParser(t, WithScalarCell("I2")).Parse(s)

	var se *validation.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.What, "header row not found")
	require.NotNil(t, res)
	assert.Equal(t, 1500.0, res.OfficeBase)
}

func TestParseScalarDefaultsToZero(t *testing.T) {
	s := sheet.FromRows("urs", [][]string{
		{"Фирмы и отделы", "Отделы"},
		{"", "Обои", "", "", "", "", "", "", "н/д"},
	})

	res, err := newParser(t).Parse(s)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.OfficeBase)
}

func TestAccepts(t *testing.T) {
	p := newParser(t)

	for _, dept := range []string{"Склад", "Водители", "Декрет", "Управление", "Администрация", "Опт"} {
		assert.False(t, p.Accepts(dept), dept)
	}
	for _, dept := range []string{"Обои", "Плитка", "Сантехника"} {
		assert.True(t, p.Accepts(dept), dept)
	}
}

func TestNormalizeDepartment(t *testing.T) {
	assert.Equal(t, "Плитка премиум", NormalizeDepartment(" Плитка\u200b \t премиум\n"))
}
