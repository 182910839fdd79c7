package orders

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
)

// Rejection reasons reported by SellerFilter.Check.
const (
	RejectShort        = "too_short"
	RejectExcluded     = "excluded"
	RejectContains     = "contains_exclusion"
	RejectKeyword      = "invalid_keyword"
	RejectNumeric      = "numeric"
	RejectNonCyrillic  = "no_cyrillic"
	RejectAbbreviation = "abbreviation"
)

const minSellerLen = 4

// SellerFilter decides whether an order-ledger cell is a seller name.
// Unlike the sales ledger, a name containing an exclusion is rejected too.
type SellerFilter struct {
	vocab      config.OrderVocabulary
	exclusions []string
}

// NewSellerFilter builds a filter over the pay-rule exclusion list.
func NewSellerFilter(vocab config.OrderVocabulary, exclusions []string) *SellerFilter {
	f := &SellerFilter{vocab: vocab}
	for _, ex := range exclusions {
		if ex = strings.ToLower(strings.TrimSpace(ex)); ex != "" {
			f.exclusions = append(f.exclusions, ex)
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
	for _, ex := range f.exclusions {
		if lower == ex {
			return RejectExcluded
		}
	}
	for _, ex := range f.exclusions {
		if strings.Contains(lower, ex) {
			return RejectContains
		}
	}
	if sheet.ContainsAny(lower, f.vocab.InvalidKeywords) {
		return RejectKeyword
	}
	if sheet.IsDigits(strings.ReplaceAll(clean, " ", "")) {
		return RejectNumeric
	}
	if !names.HasCyrillic(clean) {
		return RejectNonCyrillic
	}
	// "Иванов И.И." and similar.
	if strings.Contains(clean, ".") && names.WordCount(clean) <= 2 {
		return RejectAbbreviation
	}
	return ""
}

// Matcher resolves ledger sellers against roster keys.
type Matcher struct {
	exact  map[names.Key]struct{}
	sorted []names.Key
}

// NewMatcher indexes the roster keys. Invalid keys are ignored.
func NewMatcher(keys []names.Key) *Matcher {
	m := &Matcher{exact: make(map[names.Key]struct{}, len(keys))}
	for _, k := range keys {
		if !k.Valid() {
			continue
		}
		if _, dup := m.exact[k]; !dup {
			m.exact[k] = struct{}{}
			m.sorted = append(m.sorted, k)
		}
	}
	sort.Slice(m.sorted, func(i, j int) bool { return m.sorted[i] < m.sorted[j] })
	return m
}

// Match returns the roster key for a seller: the equal key if present,
// else the first key in sorted order that contains the seller or is
// contained in it. partial is true for the second case.
func (m *Matcher) Match(seller names.Key) (key names.Key, partial, ok bool) {
	if !seller.Valid() {
		return "", false, false
	}
	if _, ok := m.exact[seller]; ok {
		return seller, false, true
	}
	s := string(seller)
	for _, k := range m.sorted {
		if strings.Contains(string(k), s) || strings.Contains(s, string(k)) {
			return k, true, true
		}
	}
	return "", false, false
}
