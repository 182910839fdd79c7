package sales

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

func vocab() config.SalesVocabulary {
	return config.DefaultVocabulary().Sales
}

func row(cells ...string) []string {
	r := make([]string, 7)
	copy(r, cells)
	return r
}

func item(code, qty, revenue, profit string) []string {
	return row(code, "товар", "шт", qty, "", revenue, profit)
}

func ledger() *types.RawSheet {
	return sheet.FromRows("sales", [][]string{
		row("Анализ продаж"),
		row(),
		row(),
		row(),
		row("Период", "01.01.2025 - 31.01.2025"),
		row("Продавец", "Наименование", "Ед.", "Кол", "Себестоимость", "Продажи", "Прибыль"),
		row(`ООО "ТОРГОВЫЙ ДОМ"`),
		row("Иванов Иван Иванович"),
		row("Оптовая продажа"),
		item("12345", "2", "1 000,50", "200"),
		row("Розничная продажа по чекам"),
		item("00-123", "1", "300", "50"),
		row("Розничная продажа"),
		item("555.66", "3", "150", "0"),
		row(),
		item("77777", "1", "999", "999"),
		row("Петров Пётр"),
		item("123", "1", "10", "1"),
		row("ОТДЕЛ ПРОДАЖ"),
		item("999", "1", "5", "5"),
		row("Иванов  Иван Иванович"),
		row("Розничная по чекам"),
		item("12345", "1", "500", "100"),
	})
}

func catalog() types.Catalog {
	return types.NewCatalog([]types.CatalogItem{
		{Code: "00123", Class: types.ClassBonus},
		{Code: "55566", Class: types.ClassNonLiquid},
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

func TestParseLedger(t *testing.T) {
	p := New(vocab(), WithLogger(zaptest.NewLogger(t)))

	res, err := p.Parse(ledger(), catalog(), nil)
	require.NoError(t, err)

	assert.Equal(t, "01.01.2025 - 31.01.2025", res.Period)
	assert.Equal(t, 5, res.StartRow)
	assert.Equal(t, []names.Key{"ИВАНОВ ИВАН ИВАНОВИЧ", "ПЕТРОВ ПЁТР"}, res.Order)

	assert.Equal(t, 3, res.Stats.Blocks)
	assert.Equal(t, 5, res.Stats.Items)
	assert.Equal(t, 2, res.Stats.Banners)
	assert.Equal(t, 1, res.Stats.Bonus)
	assert.Equal(t, 1, res.Stats.NonLiquid)
	assert.Equal(t, 2, res.Skipped["unrecognized"])

	ivanov, ok := res.Seller("ИВАНОВ ИВАН ИВАНОВИЧ")
	require.True(t, ok)
	assert.Equal(t, "Иванов Иван Иванович", ivanov.Name)

	wholesale := ivanov.Type(types.SaleWholesale)
	assert.Equal(t, 1, wholesale.Total.Items)
	assertDecimal(t, "2", wholesale.Regular.Quantity, "wholesale quantity")
	assertDecimal(t, "1000.50", wholesale.Regular.Revenue, "wholesale revenue")

	receipt := ivanov.Type(types.SaleRetailReceipt)
	assert.Equal(t, 2, receipt.Total.Items)
	assertDecimal(t, "300", receipt.Bonus.Revenue, "receipt bonus revenue")
	assertDecimal(t, "500", receipt.Regular.Revenue, "receipt regular revenue")
	assertDecimal(t, "150", receipt.Total.Profit, "receipt profit")

	other := ivanov.Type(types.SaleRetailOther)
	assertDecimal(t, "150", other.NonLiquid.Revenue, "other non-liquid revenue")
	assertDecimal(t, "3", other.NonLiquid.Quantity, "other non-liquid quantity")

	assert.Equal(t, 4, ivanov.Total.Total.Items)
	assertDecimal(t, "1950.50", ivanov.Total.Total.Revenue, "grand revenue")
	assertDecimal(t, "350", ivanov.Total.Total.Profit, "grand profit")
	assertDecimal(t, "300", ivanov.Total.Bonus.Revenue, "grand bonus revenue")

	petrov, ok := res.Seller("ПЕТРОВ ПЁТР")
	require.True(t, ok)
	assert.Equal(t, 1, petrov.Type(types.SaleWholesale).Total.Items, "items without a sale type are wholesale")
	assertDecimal(t, "10", petrov.Total.Total.Revenue, "petrov revenue")
}

func TestSaleTypesSumToGrandTotal(t *testing.T) {
	res, err := New(vocab()).Parse(ledger(), catalog(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Sellers)

	for key, agg := range res.Sellers {
		revenue, profit := decimal.Zero, decimal.Zero
		items := 0
		for _, st := range types.SaleTypes {
			b := agg.Type(st)
			revenue = revenue.Add(b.Total.Revenue)
			profit = profit.Add(b.Total.Profit)
			items += b.Total.Items
		}
		assert.Truef(t, revenue.Equal(agg.Total.Total.Revenue), "%s revenue", key)
		assert.Truef(t, profit.Equal(agg.Total.Total.Profit), "%s profit", key)
		assert.Equalf(t, agg.Total.Total.Items, items, "%s items", key)
		assert.NoError(t, agg.Check())
	}
}

func TestParseExcludedSellerIsNotABlock(t *testing.T) {
	s := sheet.FromRows("sales", [][]string{
		row(), row(), row(), row(), row(),
		row("Продавец"),
		row("Ромашка Плюс"),
		item("12345", "1", "100", "10"),
		row("Сидоров Сидор"),
		item("12345", "1", "100", "10"),
	})

	res, err := New(vocab()).Parse(s, types.Catalog{}, []string{" ромашка плюс "})
	require.NoError(t, err)

	assert.Equal(t, []names.Key{"СИДОРОВ СИДОР"}, res.Order)
	assert.Equal(t, 1, res.Stats.Items)
	assert.Equal(t, 2, res.Skipped["unrecognized"])
}

func TestParseStartsBeforeFirstSeller(t *testing.T) {
	s := sheet.FromRows("sales", [][]string{
		row(), row(), row(), row(), row(), row(),
		row("шапка"),
		row("Сидоров Сидор"),
		item("4444", "1", "1", "1"),
	})

	res, err := New(vocab()).Parse(s, types.Catalog{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, res.StartRow)
	assert.Len(t, res.Sellers, 1)
}

func TestParseRejectsNarrowSheet(t *testing.T) {
	s := sheet.FromRows("sales", [][]string{{"Иванов Иван", "", "", "1"}})

	res, err := New(vocab()).Parse(s, types.Catalog{}, nil)

	assert.Nil(t, res)
	var se *validation.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.SourceSales, se.Source)
}

func TestMachineTransitions(t *testing.T) {
	v := vocab()
	m := NewMachine(v, NewSellerFilter(v, nil).Valid)

	steps := []struct {
		cell     string
		event    Event
		state    State
		saleType types.SaleType
	}{
		{"12345", EventIgnored, Idle, types.SaleNone},
		{"Иванов Иван", EventSeller, InSeller, types.SaleNone},
		{"Розничная продажа по чекам", EventSaleType, InSeller, types.SaleRetailReceipt},
		{"1-23", EventItem, InSeller, types.SaleRetailReceipt},
		{"Продажа", EventSaleType, InSeller, types.SaleNone},
		{"456", EventItem, InSeller, types.SaleWholesale},
		{"123456789", EventIgnored, InSeller, types.SaleWholesale},
		{"АЛЬФА КОМПАНИЯ", EventBanner, Idle, types.SaleNone},
		{"Петров Петр", EventSeller, InSeller, types.SaleNone},
		{"Оптовая продажа", EventSaleType, InSeller, types.SaleWholesale},
		{"   ", EventBlank, Idle, types.SaleNone},
		{"456", EventIgnored, Idle, types.SaleNone},
	}

	for i, st := range steps {
		tr := m.Step(st.cell)
		assert.Equalf(t, st.event, tr.Event, "step %d %q event", i, st.cell)
		assert.Equalf(t, st.state, tr.To, "step %d %q state", i, st.cell)
		assert.Equalf(t, st.saleType, tr.SaleType, "step %d %q sale type", i, st.cell)
		assert.Equal(t, m.State(), tr.To)
	}
}

func TestMachineItemCarriesSellerAndCode(t *testing.T) {
	v := vocab()
	m := NewMachine(v, NewSellerFilter(v, nil).Valid)

	m.Step("Иванов   Иван")
	tr := m.Step("12.34-5")

	assert.Equal(t, EventItem, tr.Event)
	assert.Equal(t, "12345", tr.Code)
	assert.Equal(t, names.Key("ИВАНОВ ИВАН"), tr.Seller)
	assert.Equal(t, "Иванов Иван", tr.SellerName)
	assert.Equal(t, m.Seller(), tr.Seller)
}

func TestSellerFilter(t *testing.T) {
	f := NewSellerFilter(vocab(), []string{"Ромашка Плюс"})

	tests := []struct {
		name string
		want string
	}{
		{"Иванов Иван", ""},
		{"Филиппов Иван", ""},
		{"Ромашка Плюс Два", ""},
		{"Ива", RejectShort},
		{"ромашка плюс", RejectExcluded},
		{"Оптовая продажа", RejectSaleType},
		{"Итого по отделу", RejectForbidden},
		{"Иванов", RejectOneWord},
		{"Иванов John", RejectNonCyrillic},
		{"ИВАНОВА АЛЕКСАНДРА ПЕТРОВНА", RejectUpperCase},
		{"Иванов2 Иван", RejectDigits},
		{`Ромашка "Лидер"`, RejectCorporate},
		{"ИП Сидоров", RejectCorporate},
		{"Сидоров Иван (ООО)", RejectCorporate},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, f.Check(tt.name), "%q", tt.name)
		assert.Equal(t, tt.want == "", f.Valid(tt.name))
	}
}
