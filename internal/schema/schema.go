// =============================================================================
// Payroll Intake - Schema Inference
// =============================================================================
//
// Source spreadsheets have no fixed layout: header rows move, columns are
// reordered and renamed from month to month. This module locates the header
// row and assigns columns to semantic roles.
//
// INFERENCE STEPS:
//   1. Header row detection: the first row within a scan window whose cells
//      contain enough anchor keywords
//   2. Role mapping: each header cell is matched against roles in priority
//      order; the first unclaimed role that matches wins the column
//   3. Positional fallback: roles still missing take a default index
//   4. Value-shape fallback: when headers are useless, columns are profiled
//      by their values (see profile.go)
//
// Every function is pure. Failure is a partial Mapping; callers decide which
// roles are required.
//
// =============================================================================

package schema

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// =============================================================================
// ROLES
// =============================================================================

// Role is a semantic column role and the header keywords that identify it.
// Keywords are lower case; header cells are lowercased before matching.
type Role struct {
	Name string

	// Any: at least one must appear. Empty Any matches every cell.
	Any []string
	// All: every one must appear.
	All []string
	// None: none may appear.
	None []string
}

// NewRole builds a role matching any of keywords.
func NewRole(name string, keywords ...string) Role {
	return Role{Name: name, Any: keywords}
}

// RoleFromKeywords builds a role from a vocabulary entry.
func RoleFromKeywords(name string, kw config.ColumnKeywords) Role {
	return Role{Name: name, Any: kw.Any, All: kw.All, None: kw.None}
}

// Matches reports whether a header cell identifies the role.
func (r Role) Matches(cell string) bool {
	lower := strings.ToLower(strings.TrimSpace(cell))
	if lower == "" {
		return false
	}
	if len(r.Any) == 0 && len(r.All) == 0 {
		return false
	}
	if len(r.Any) > 0 && !containsAny(lower, r.Any) {
		return false
	}
	for _, kw := range r.All {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return !containsAny(lower, r.None)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// =============================================================================
// MAPPING
// =============================================================================

// Mapping assigns 0-based column indexes to role names.
type Mapping map[string]int

// Col returns the column of role, or -1 when unresolved.
func (m Mapping) Col(role string) int {
	if c, ok := m[role]; ok {
		return c
	}
	return -1
}

// Has reports whether role is resolved.
func (m Mapping) Has(role string) bool {
	_, ok := m[role]
	return ok
}

// Missing returns the required roles that are unresolved, in the order given.
func (m Mapping) Missing(required ...string) []string {
	var missing []string
	for _, r := range required {
		if !m.Has(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// Roles returns the resolved role names sorted by column.
func (m Mapping) Roles() []string {
	out := make([]string, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] < m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// MapColumns assigns header cells to roles. Cells are visited left to right;
// each cell goes to the first role, in priority order, that matches it and
// has not claimed a column yet.
func MapColumns(header []string, roles []Role) Mapping {
	m := make(Mapping)
	for col, cell := range header {
		for _, role := range roles {
			if m.Has(role.Name) {
				continue
			}
			if role.Matches(cell) {
				m[role.Name] = col
				break
			}
		}
	}
	return m
}

// MapRows maps header rows [from, to) of a sheet. The row resolving the most
// roles wins (earliest on ties); roles it lacks are taken from the other
// rows, in order, when their column is still free. Title rows such as
// "Перечень бонусных товаров" therefore cannot steal a column from the
// real header.
func MapRows(s *types.RawSheet, from, to int, roles []Role) Mapping {
	var rows []Mapping
	best := -1
	for r := max(from, 0); r < to && r < s.Len(); r++ {
		m := MapColumns(s.Row(r), roles)
		rows = append(rows, m)
		if best < 0 || len(m) > len(rows[best]) {
			best = len(rows) - 1
		}
	}
	if best < 0 {
		return make(Mapping)
	}

	merged := rows[best]
	for i, m := range rows {
		if i == best {
			continue
		}
		for _, role := range roles {
			col, ok := m[role.Name]
			if ok && !merged.Has(role.Name) && !merged.claimed(col) {
				merged[role.Name] = col
			}
		}
	}
	return merged
}

func (m Mapping) claimed(col int) bool {
	for _, c := range m {
		if c == col {
			return true
		}
	}
	return false
}

// Fallback fills unresolved roles with positional defaults that fall inside
// width and are not already claimed. It returns the roles it filled.
func (m Mapping) Fallback(defaults map[string]int, width int) []string {
	names := make([]string, 0, len(defaults))
	for role := range defaults {
		names = append(names, role)
	}
	sort.Strings(names)

	var filled []string
	for _, role := range names {
		col := defaults[role]
		if m.Has(role) || col < 0 || col >= width || m.claimed(col) {
			continue
		}
		m[role] = col
		filled = append(filled, role)
	}
	return filled
}

// =============================================================================
// HEADER ROW DETECTION
// =============================================================================

// FindHeaderRow returns the first row within scanRows whose cells match at
// least minAnchors distinct anchor groups, or -1. An anchor group matches
// when any cell contains any of its keywords.
func FindHeaderRow(s *types.RawSheet, anchors [][]string, minAnchors, scanRows int) int {
	if minAnchors < 1 {
		minAnchors = 1
	}
	for r := 0; r < scanRows && r < s.Len(); r++ {
		hits := 0
		for _, group := range anchors {
			if RowContainsAny(s.Row(r), group) {
				hits++
			}
		}
		if hits >= minAnchors {
			return r
		}
	}
	return -1
}

// RowContainsAny reports whether any cell of row contains any keyword.
func RowContainsAny(row []string, keywords []string) bool {
	for _, cell := range row {
		if containsAny(strings.ToLower(cell), keywords) {
			return true
		}
	}
	return false
}

// FindCell returns the first cell in rows [from, to), scanned row by row,
// that satisfies pred.
func FindCell(s *types.RawSheet, from, to int, pred func(cell string) bool) (row, col int, ok bool) {
	for r := max(from, 0); r < to && r < s.Len(); r++ {
		for c, cell := range s.Row(r) {
			if pred(cell) {
				return r, c, true
			}
		}
	}
	return -1, -1, false
}

// ContainsAll reports whether the lowercased cell contains every keyword.
func ContainsAll(cell string, keywords []string) bool {
	lower := strings.ToLower(cell)
	for _, kw := range keywords {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return len(keywords) > 0
}
