package attendance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

func newParser(t *testing.T) *Parser {
	return New(config.DefaultVocabulary().Attendance, WithLogger(zaptest.NewLogger(t)))
}

func TestParseHoursAndDayCodes(t *testing.T) {
	s := sheet.FromRows("schedule", [][]string{
		{"График работы"},
		{"Период: с 01.02.2025 по 28.02.2025"},
		{"№", "Сотрудник", "1", "2", "3", "4", "5", "Итого часов"},
		{"1", "Иванов Иван", "В", "О", "Н", "Б", "12", "168,5"},
		{"2", "Петров Пётр", "ОТ", "ВЫХ", "НН", "11", "", ""},
		{"", "Итого по отделу", "", "", "", "", "", "336"},
	})

	res, err := newParser(t).Parse(s)
	require.NoError(t, err)

	assert.Equal(t, "Период: с 01.02.2025 по 28.02.2025", res.Period)
	assert.Equal(t, 1, res.PeriodRow)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, 7, res.HoursCol)

	require.Len(t, res.Records, 2)

	ivanov := res.Records[0]
	assert.Equal(t, names.Key("ИВАНОВ ИВАН"), ivanov.Key)
	assert.Equal(t, 168.5, ivanov.Hours)
	assert.Equal(t, 1, ivanov.DaysOff)
	assert.Equal(t, 1, ivanov.Vacation)
	assert.Equal(t, 1, ivanov.Absence)
	assert.Equal(t, 1, ivanov.Sick)
	assert.Equal(t, 4, ivanov.Row)

	petrov := res.Records[1]
	assert.Equal(t, 0.0, petrov.Hours, "empty hours cell defaults to zero")
	assert.Equal(t, 1, petrov.Vacation, "ОТ is a vacation code")
	assert.Equal(t, 0, petrov.DaysOff, "ВЫХ is longer than two characters")
	assert.Equal(t, 0, petrov.Absence, "only a lone Н is an absence")

	assert.Equal(t, 1, res.Skipped["no_name"], "total row is skipped")
}

func TestParseHoursHeaderBelowHeaderRow(t *testing.T) {
	s := sheet.FromRows("schedule", [][]string{
		{"ФИО", "Февраль", "", "Всего"},
		{"", "1", "2", "Итого, час."},
		{"Иванов Иван", "8", "8", "16"},
	})

	res, err := newParser(t).Parse(s)
	require.NoError(t, err)

	assert.Equal(t, "", res.Period)
	assert.Equal(t, 3, res.HoursCol)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 16.0, res.Records[0].Hours)
}

func TestParseFailsWithoutHeader(t *testing.T) {
	s := sheet.FromRows("schedule", [][]string{
		{"Имя", "Часы"},
		{"Иванов Иван", "8"},
	})

	_, err := newParser(t).Parse(s)

	var se *validation.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.What, "header row not found")
}

func TestParseFailsWithoutHoursColumn(t *testing.T) {
	s := sheet.FromRows("schedule", [][]string{
		{"Сотрудник", "1", "2"},
		{"Иванов Иван", "8", "8"},
	})

	_, err := newParser(t).Parse(s)

	var se *validation.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"hours"}, se.Missing)
}

func TestNameRequiresNoLeadingDigits(t *testing.T) {
	p := newParser(t)

	assert.True(t, p.isName("Иванов Иван"))
	assert.False(t, p.isName("01.02 Иванов"))
	assert.False(t, p.isName("Иванов"))
	assert.False(t, p.isName("Итого часов"))
	assert.True(t, p.isName("Иванов Иван 2"))
}
