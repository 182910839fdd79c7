package schema

import (
	"strings"

	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// ColumnProfile summarizes the values of one column.
type ColumnProfile struct {
	Col      int
	Samples  int
	NameLike int
	Numeric  int
	Unique   int
	AvgLen   float64
}

// NameLikeRatio is the share of samples that look like a person's name.
func (p ColumnProfile) NameLikeRatio() float64 {
	if p.Samples == 0 {
		return 0
	}
	return float64(p.NameLike) / float64(p.Samples)
}

// IsNameLike reports whether value has the shape of a full name: two to four
// words, Cyrillic letters, and none of the marker words.
func IsNameLike(value string, markers []string) bool {
	words := names.WordCount(value)
	if words < 2 || words > 4 {
		return false
	}
	if !names.HasCyrillic(value) {
		return false
	}
	return !containsAny(strings.ToLower(value), markers)
}

// ProfileColumn samples up to limit non-empty values of col starting at
// fromRow.
func ProfileColumn(s *types.RawSheet, col, fromRow, limit int, markers []string) ColumnProfile {
	p := ColumnProfile{Col: col}
	seen := make(map[string]struct{})
	totalLen := 0

	for r := max(fromRow, 0); r < s.Len() && p.Samples < limit; r++ {
		v := strings.TrimSpace(s.Cell(r, col))
		if v == "" {
			continue
		}
		p.Samples++
		totalLen += len([]rune(v))
		seen[v] = struct{}{}
		if IsNameLike(v, markers) {
			p.NameLike++
		}
		if _, ok := sheet.TryParseNumber(v); ok {
			p.Numeric++
		}
	}

	p.Unique = len(seen)
	if p.Samples > 0 {
		p.AvgLen = float64(totalLen) / float64(p.Samples)
	}
	return p
}

// DetectNameColumn returns the first column whose name-like ratio exceeds
// threshold over the first limit values, or -1.
func DetectNameColumn(s *types.RawSheet, fromRow, limit int, markers []string, threshold float64) int {
	for col := 0; col < s.Width(); col++ {
		p := ProfileColumn(s, col, fromRow, limit, markers)
		if p.Samples > 0 && p.NameLikeRatio() > threshold {
			return col
		}
	}
	return -1
}
