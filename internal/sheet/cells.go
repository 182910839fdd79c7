package sheet

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// IsRowEmpty checks if a row contains only empty values.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// numberText strips grouping spaces and turns a decimal comma into a point.
// "1 234,50" -> "1234.50".
func numberText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ReplaceAll(s, ",", ".")
}

// ParseNumber reads a spreadsheet number tolerant of decimal commas and
// grouping spaces. Unparsable or empty text yields 0.
func ParseNumber(s string) float64 {
	v, ok := TryParseNumber(s)
	if !ok {
		return 0
	}
	return v
}

// TryParseNumber is ParseNumber that reports whether s held a number.
func TryParseNumber(s string) (float64, bool) {
	t := numberText(s)
	if t == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDecimal is ParseNumber for money columns. Unparsable text yields zero.
func ParseDecimal(s string) decimal.Decimal {
	t := numberText(s)
	if t == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ContainsAny reports whether the lowercased text contains any keyword.
// Keywords are expected in lower case.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
