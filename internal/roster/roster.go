// =============================================================================
// Payroll Intake - Roster Parser
// =============================================================================
//
// The roster is the authoritative list of employees with their branch,
// manager and department. Only employees present here reach the output.
//
// COLUMN RESOLUTION (first strategy that resolves the required roles wins):
//   1. header:      a row within the first 10 whose cells map to the name and
//                   department roles by keyword
//   2. value_shape: the first column whose values look like full names
//                   (>70% of the first 10 values); the remaining columns in
//                   order are branch, manager, department
//   3. positional:  name, branch, manager, department = columns 0..3
//
// Name, branch and department are required. A roster missing any of them
// fails as a whole.
//
// ROW RULES:
//   - empty, 1-character and header-echo names are skipped and counted
//   - rows without a department are skipped and logged with their row
//   - empty branch and manager become the "unspecified" marker
//
// =============================================================================

package roster

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/schema"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// Column roles.
const (
	RoleName       = "name"
	RoleBranch     = "branch"
	RoleManager    = "manager"
	RoleDepartment = "department"
)

// Column resolution strategies.
const (
	StrategyHeader     = "header"
	StrategyValueShape = "value_shape"
	StrategyPositional = "positional"
)

const (
	headerScanRows  = 10
	profileSamples  = 10
	nameLikeCutoff  = 0.7
	positionalWidth = 4
)

// Result is the parsed roster.
type Result struct {
	Records []types.RosterRecord

	Columns   schema.Mapping
	Strategy  string
	HeaderRow int

	ByBranch       map[string]int
	ByDepartment   map[string]int
	BranchManagers map[string]string

	Skipped validation.Skips
	Issues  validation.Issues

	index map[names.Key]int
}

// Lookup returns the record of an employee key.
func (r *Result) Lookup(key names.Key) (types.RosterRecord, bool) {
	i, ok := r.index[key]
	if !ok {
		return types.RosterRecord{}, false
	}
	return r.Records[i], true
}

// Keys returns the employee keys in roster order.
func (r *Result) Keys() []names.Key {
	keys := make([]names.Key, len(r.Records))
	for i, rec := range r.Records {
		keys[i] = rec.Key
	}
	return keys
}

// Parser parses roster sheets.
type Parser struct {
	vocab  config.RosterVocabulary
	logger *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a roster parser.
func New(vocab config.RosterVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Parser) roles() []schema.Role {
	// Manager before department and branch: "Руководитель отдела" and
	// "Директор филиала" name the manager.
	return []schema.Role{
		schema.NewRole(RoleName, p.vocab.NameHeaders...),
		schema.NewRole(RoleManager, p.vocab.ManagerHeaders...),
		schema.NewRole(RoleDepartment, p.vocab.DepartmentHeaders...),
		schema.NewRole(RoleBranch, p.vocab.BranchHeaders...),
	}
}

// Parse extracts roster records from s.
//
// RETURNS:
//   - The roster.
//   - A *validation.StructuralError when the required columns cannot be
//     resolved or no employee rows remain.
func (p *Parser) Parse(s *types.RawSheet) (*Result, error) {
	res := &Result{
		HeaderRow:      -1,
		ByBranch:       make(map[string]int),
		ByDepartment:   make(map[string]int),
		BranchManagers: make(map[string]string),
		Skipped:        validation.Skips{},
		Issues:         validation.Issues{Source: types.SourceRoster, File: s.Source},
		index:          make(map[names.Key]int),
	}

	start, err := p.resolveColumns(s, res)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("roster columns resolved",
		zap.String("file", s.Source),
		zap.String("strategy", res.Strategy),
		zap.Int("header_row", res.HeaderRow),
		zap.Any("columns", res.Columns))

	for r := start; r < s.Len(); r++ {
		p.parseRow(s, r, res)
	}

	if len(res.Records) == 0 {
		return nil, validation.NewStructuralError(types.SourceRoster, s.Source, "no employee rows").
			WithHint("skipped rows: %s", res.Skipped)
	}

	p.logger.Info("roster parsed",
		zap.String("file", s.Source),
		zap.Int("employees", len(res.Records)),
		zap.Int("branches", len(res.ByBranch)),
		zap.Int("departments", len(res.ByDepartment)),
		zap.Int("skipped", res.Skipped.Total()))

	return res, nil
}

// resolveColumns fills res.Columns and res.Strategy and returns the first
// data row.
func (p *Parser) resolveColumns(s *types.RawSheet, res *Result) (int, error) {
	required := []string{RoleName, RoleBranch, RoleDepartment}

	// 1. Header keywords.
	var best schema.Mapping
	for r := 0; r < headerScanRows && r < s.Len(); r++ {
		m := schema.MapColumns(s.Row(r), p.roles())
		if m.Has(RoleName) && m.Has(RoleDepartment) {
			res.Columns, res.Strategy, res.HeaderRow = m, StrategyHeader, r
			if missing := m.Missing(required...); len(missing) > 0 {
				return 0, validation.NewStructuralError(types.SourceRoster, s.Source, "header row lacks required columns").
					At(r, -1).WithMissing(missing...)
			}
			return r + 1, nil
		}
		if best == nil || len(m) > len(best) {
			best = m
		}
	}

	// 2. Value shape.
	if nameCol := schema.DetectNameColumn(s, 0, profileSamples, p.vocab.NonNameMarkers, nameLikeCutoff); nameCol >= 0 {
		m := schema.Mapping{RoleName: nameCol}
		rest := []string{RoleBranch, RoleManager, RoleDepartment}
		for col := 0; col < s.Width() && len(rest) > 0; col++ {
			if col == nameCol {
				continue
			}
			m[rest[0]] = col
			rest = rest[1:]
		}
		if len(m.Missing(required...)) == 0 {
			res.Columns, res.Strategy = m, StrategyValueShape
			return 0, nil
		}
	}

	// 3. Positional.
	if s.Width() >= positionalWidth {
		res.Columns = schema.Mapping{RoleName: 0, RoleBranch: 1, RoleManager: 2, RoleDepartment: 3}
		res.Strategy = StrategyPositional
		return 0, nil
	}

	if best == nil {
		best = schema.Mapping{}
	}
	return 0, validation.NewStructuralError(types.SourceRoster, s.Source, "cannot resolve roster columns").
		WithMissing(best.Missing(required...)...).
		WithHint("no header with %v and %v, no column of full names, fewer than %d columns",
			p.vocab.NameHeaders, p.vocab.DepartmentHeaders, positionalWidth)
}

func (p *Parser) parseRow(s *types.RawSheet, r int, res *Result) {
	cell := func(role string) string {
		return names.Collapse(s.Cell(r, res.Columns.Col(role)))
	}

	name := cell(RoleName)
	switch {
	case name == "":
		res.Skipped.Add("empty_name")
		return
	case utf8.RuneCountInString(name) < 2:
		res.Skipped.Add("short_name")
		return
	case p.isHeaderEcho(name):
		res.Skipped.Add("header_echo")
		return
	}

	department := cell(RoleDepartment)
	if department == "" || department == p.vocab.Unspecified {
		res.Skipped.Add("empty_department")
		res.Issues.Warn(r, "empty_department", name, "employee has no department and is excluded")
		p.logger.Warn("roster row without department",
			zap.String("file", s.Source),
			zap.Int("row", r+1),
			zap.String("name", name))
		return
	}

	key := names.Normalize(name)
	if _, dup := res.index[key]; dup {
		res.Skipped.Add("duplicate_name")
		res.Issues.Warn(r, "duplicate_name", name, "employee already listed, first row kept")
		return
	}

	branch := p.orUnspecified(cell(RoleBranch))
	manager := p.orUnspecified(cell(RoleManager))

	res.index[key] = len(res.Records)
	res.Records = append(res.Records, types.RosterRecord{
		Name:       name,
		Key:        key,
		Branch:     branch,
		Department: department,
		Manager:    manager,
		Row:        r + 1,
	})

	res.ByBranch[branch]++
	res.ByDepartment[department]++
	if _, ok := res.BranchManagers[branch]; !ok && manager != p.vocab.Unspecified {
		res.BranchManagers[branch] = manager
	}
}

func (p *Parser) isHeaderEcho(name string) bool {
	lower := strings.ToLower(name)
	for _, e := range p.vocab.HeaderEchoes {
		if lower == e {
			return true
		}
	}
	return false
}

func (p *Parser) orUnspecified(v string) string {
	if v == "" {
		return p.vocab.Unspecified
	}
	return v
}
