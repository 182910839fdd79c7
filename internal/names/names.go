// =============================================================================
// Payroll Intake - Name Normalizer
// =============================================================================
//
// Every source identifies employees by free-text full name. Before any join,
// names are reduced to a canonical Key so that "Иванов  Иван Иванович"
// and "иванов иван иванович" refer to the same person.
//
// NORMALIZATION:
//   1. Unicode NFC (composed form, so "й" typed as и + breve matches "й")
//   2. Every run of whitespace (including non-breaking spaces) becomes one space
//   3. Leading and trailing whitespace is removed
//   4. Upper-casing
//
// An empty Key never matches anything, including another empty Key.
//
// =============================================================================

package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Key is a canonical employee name.
type Key string

// Valid reports whether the key can take part in a join.
func (k Key) Valid() bool {
	return k != ""
}

func (k Key) String() string {
	return string(k)
}

// Matches reports whether two keys identify the same employee.
// Empty keys never match.
func (k Key) Matches(other Key) bool {
	return k.Valid() && k == other
}

// Normalize converts a raw name into its canonical Key.
// Normalize(string(Normalize(s))) == Normalize(s) for every s.
func Normalize(s string) Key {
	return Key(strings.ToUpper(Collapse(s)))
}

// NormalizeAny accepts a cell value of unknown type. Anything that is not a
// string yields the empty key.
func NormalizeAny(v any) Key {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}

// Collapse applies NFC, collapses whitespace runs and trims, keeping case.
// Display fields (branch, department) go through Collapse only.
func Collapse(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.FieldsFunc(norm.NFC.String(s), unicode.IsSpace), " ")
}

// WordCount returns the number of whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

// HasCyrillic reports whether s contains at least one Cyrillic letter.
func HasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// HasDigit reports whether s contains a decimal digit.
func HasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
