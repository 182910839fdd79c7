package orders

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

func vocab() config.OrderVocabulary {
	return config.DefaultVocabulary().Orders
}

func row(seller, qty, revenue, profit string) []string {
	return []string{seller, "", "", qty, "", revenue, profit}
}

var roster = []names.Key{"ИВАНОВ ИВАН ИВАНОВИЧ", "ПЕТРОВ ПЁТР", "СИДОРОВА АННА"}

func ledger() *types.RawSheet {
	return sheet.FromRows("zakaz", [][]string{
		row("Отчёт по заказам", "", "", ""),
		row("Иванов Иван Иванович", "9", "9", "9"),
		row("Незаказной", "", "", ""),
		row("Незаказной товар итого", "100", "100", "100"),
		row("Иванов Иван Иванович", "3", "1 200,5", "300"),
		row("Петров Пётр Петрович", "2", "800", "200"),
		row("Козлов Андрей", "1", "50", "5"),
		row("ООО Ромашка", "1", "1", "1"),
		row("Иванов И.И.", "1", "1", "1"),
		row("", "", "", ""),
		row("Заказной", "", "", ""),
		row("Иванов Иван Иванович", "1", "400", "40"),
		row("Иванов Иван Иванович", "2", "700", "70"),
		row("Итого", "5", "5", "5"),
	})
}

func TestParseLedger(t *testing.T) {
	p := New(vocab(), WithLogger(zaptest.NewLogger(t)))

	res, err := p.Parse(ledger(), roster, []string{"ООО Ромашка"})
	require.NoError(t, err)

	require.Len(t, res.Sellers, 2)

	ivanov, ok := res.Seller("ИВАНОВ ИВАН ИВАНОВИЧ")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1200.5").Equal(ivanov.Unordered.Revenue))
	assert.True(t, decimal.NewFromInt(3).Equal(ivanov.Unordered.Quantity))
	assert.True(t, decimal.NewFromInt(700).Equal(ivanov.Ordered.Revenue), "later rows overwrite the section")
	assert.True(t, decimal.NewFromInt(70).Equal(ivanov.Ordered.Profit))

	petrov, ok := res.Seller("ПЕТРОВ ПЁТР")
	require.True(t, ok, "seller containing a roster key resolves to it")
	assert.True(t, decimal.NewFromInt(800).Equal(petrov.Unordered.Revenue))
	assert.True(t, petrov.Ordered.Revenue.IsZero())

	_, ok = res.Seller("СИДОРОВА АННА")
	assert.False(t, ok)

	assert.Equal(t, 1, res.Stats.Unmatched)
	assert.Equal(t, 1, res.Skipped["not_in_roster"])
	assert.Equal(t, 1, res.Skipped[RejectExcluded])
	assert.Equal(t, 1, res.Skipped[RejectAbbreviation])
	assert.Equal(t, 2, res.Skipped[RejectKeyword])

	require.Equal(t, 1, res.Issues.Len())
	assert.Equal(t, "partial_match", res.Issues.List[0].Rule)
	assert.Equal(t, 6, res.Issues.List[0].RowNumber)

	require.Len(t, res.Matches, 4)
	assert.Equal(t, Match{
		Seller:   "Петров Пётр Петрович",
		Employee: "ПЕТРОВ ПЁТР",
		Partial:  true,
		Section:  Unordered,
		Row:      6,
	}, res.Matches[1])

	assert.Equal(t, 2, res.Stats.Unordered.Items)
	assert.Equal(t, 2, res.Stats.Ordered.Items)
	assert.True(t, decimal.NewFromInt(1100).Equal(res.Stats.Ordered.Revenue))
}

func TestParseWithoutMarkersFails(t *testing.T) {
	s := sheet.FromRows("zakaz", [][]string{row("Иванов Иван Иванович", "1", "1", "1")})

	res, err := New(vocab()).Parse(s, roster, nil)

	assert.Nil(t, res)
	var se *validation.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.SourceOrders, se.Source)
}

func TestParseRejectsNarrowSheet(t *testing.T) {
	s := sheet.FromRows("zakaz", [][]string{{"Незаказной"}, {"Иванов Иван", "1"}})

	_, err := New(vocab()).Parse(s, roster, nil)

	var se *validation.StructuralError
	assert.True(t, errors.As(err, &se))
}

func TestMachine(t *testing.T) {
	m := NewMachine(vocab())

	assert.Equal(t, NoSection, m.Section())
	assert.False(t, m.Step("Иванов Иван"))
	assert.True(t, m.Step("  Незаказной "))
	assert.Equal(t, Unordered, m.Section())
	assert.False(t, m.Step("Незаказной товар"), "captions mentioning the product are not markers")
	assert.Equal(t, Unordered, m.Section())
	assert.True(t, m.Step("Заказной"))
	assert.Equal(t, Ordered, m.Section())
	assert.False(t, m.Step("заказной"), "markers are case-sensitive")
	assert.Equal(t, Ordered, m.Section())
}

func TestSellerFilter(t *testing.T) {
	f := NewSellerFilter(vocab(), []string{"Ромашка", "  "})

	tests := []struct {
		name string
		want string
	}{
		{"Иванов Иван Иванович", ""},
		{"Иванов Иван", ""},
		{"Ива", RejectShort},
		{"ромашка", RejectExcluded},
		{"ООО Ромашка плюс", RejectContains},
		{"Итого по продавцу", RejectKeyword},
		{"Скидка 5%", RejectKeyword},
		{"12 345", RejectNumeric},
		{"John Smith", RejectNonCyrillic},
		{"Иванов И.И.", RejectAbbreviation},
		{"Иванов И. Иван", ""},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, f.Check(tt.name), "%q", tt.name)
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]names.Key{"ПЕТРОВА АННА", "ПЕТРОВ ПЁТР", "", "ПЕТРОВ ПЁТР"})

	key, partial, ok := m.Match("ПЕТРОВ ПЁТР")
	assert.True(t, ok)
	assert.False(t, partial)
	assert.Equal(t, names.Key("ПЕТРОВ ПЁТР"), key)

	key, partial, ok = m.Match("ПЕТРОВ")
	assert.True(t, ok)
	assert.True(t, partial)
	assert.Equal(t, names.Key("ПЕТРОВ ПЁТР"), key, "first key in sorted order wins")

	_, _, ok = m.Match("")
	assert.False(t, ok, "empty key never matches")

	_, _, ok = m.Match("КОЗЛОВ")
	assert.False(t, ok)
}
