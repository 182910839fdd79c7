package sales

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
)

// Rejection reasons reported by SellerFilter.Check.
const (
	RejectShort       = "too_short"
	RejectExcluded    = "excluded"
	RejectSaleType    = "sale_type"
	RejectForbidden   = "forbidden_word"
	RejectOneWord     = "single_word"
	RejectNonCyrillic = "non_cyrillic_word"
	RejectUpperCase   = "upper_case"
	RejectDigits      = "digits"
	RejectCorporate   = "corporate"
)

const (
	minSellerLen  = 4
	maxUpperLen   = 20
	saleTypeWords = 3
)

// SellerFilter decides whether a ledger cell is a seller's full name.
// Exclusions are compared exactly, ignoring case and surrounding spaces.
type SellerFilter struct {
	vocab      config.SalesVocabulary
	exclusions map[string]struct{}
}

// NewSellerFilter builds a filter over the pay-rule exclusion list.
func NewSellerFilter(vocab config.SalesVocabulary, exclusions []string) *SellerFilter {
	f := &SellerFilter{vocab: vocab, exclusions: make(map[string]struct{}, len(exclusions))}
	for _, ex := range exclusions {
		if ex = strings.ToLower(strings.TrimSpace(ex)); ex != "" {
			f.exclusions[ex] = struct{}{}
		}
	}
	return f
}

// Valid reports whether name passes every check.
func (f *SellerFilter) Valid(name string) bool {
	return f.Check(name) == ""
}

// Check returns the first failed check, or "" for a valid seller name.
func (f *SellerFilter) Check(name string) string {
	clean := strings.TrimSpace(name)
	lower := strings.ToLower(clean)

	if utf8.RuneCountInString(clean) < minSellerLen {
		return RejectShort
	}
	if _, ok := f.exclusions[lower]; ok {
		return RejectExcluded
	}
	if strings.Contains(lower, f.vocab.SaleHeader) && names.WordCount(clean) <= saleTypeWords {
		return RejectSaleType
	}
	if sheet.ContainsAny(lower, f.vocab.ForbiddenPatterns) {
		return RejectForbidden
	}

	words := strings.Fields(clean)
	if len(words) < 2 {
		return RejectOneWord
	}
	for _, w := range words {
		if !names.HasCyrillic(w) {
			return RejectNonCyrillic
		}
	}

	if isUpper(clean) && utf8.RuneCountInString(clean) > maxUpperLen {
		return RejectUpperCase
	}
	if names.HasDigit(clean) {
		return RejectDigits
	}
	if f.corporate(clean, words) {
		return RejectCorporate
	}
	return ""
}

func (f *SellerFilter) corporate(clean string, words []string) bool {
	for _, m := range f.vocab.CorporateMarkers {
		if m != "" && strings.Contains(clean, m) {
			return true
		}
	}
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		for _, form := range f.vocab.CorporateForms {
			if w == form {
				return true
			}
		}
	}
	return false
}
