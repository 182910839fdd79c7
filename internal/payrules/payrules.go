// =============================================================================
// Payroll Intake - Pay-Rule Parser
// =============================================================================
//
// The pay-rule table ("УРС") holds one row per department: base amount,
// wage floor, item coefficients, rank guarantees and the hour-norm type.
// It also carries two things that are not per department:
//
//   - a base office amount in a fixed cell (I2 by default)
//   - column A below the header: the exclusion list, names that must never
//     be taken for sellers in the sales and order ledgers
//
// PROCESSING PIPELINE:
//   1. Read the scalar cell (tolerant of spaces and decimal commas, 0 on
//      failure)
//   2. Header row: column A contains "фирмы и отделы" and column B contains
//      "отделы", within the first 10 rows
//   3. Exclusions from column A
//   4. Column roles from header keywords, in fixed priority
//   5. Department rows, skipping blocklisted and reserved names; the first
//      row of a department wins
//
// NORM TYPES:
//   "магазин" -> shop, "офис" -> office, anything else -> fixed (160 h).
//   Without a norm column every department is shop.
//
// =============================================================================

package payrules

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/schema"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// Column roles.
const (
	RoleExclusions       = "exclusions"
	RoleDepartment       = "department"
	RoleBranch           = "branch"
	RoleBase             = "base"
	RoleAverageWage      = "average_wage"
	RoleFloor            = "floor"
	RoleNonLiquidInPool  = "non_liquid_in_pool"
	RoleNonLiquidPercent = "non_liquid_percent"
	RoleNormType         = "norm_type"
	RoleCoefRegular      = "coef_regular"
	RoleCoefBonus        = "coef_bonus"
	RoleCoefNonLiquid    = "coef_non_liquid"
	RoleCoefWholesale    = "coef_wholesale"
)

// RoleGuarantee returns the role name of the guarantee for place n (1-5).
func RoleGuarantee(n int) string {
	return "guarantee_" + strconv.Itoa(n)
}

const (
	headerScanRows = 10
	minExclusion   = 2
)

// DefaultScalarCell is the cell holding the base office amount.
const DefaultScalarCell = "I2"

// Result is the parsed pay-rule table.
type Result struct {
	// OfficeBase is the scalar cell value. It is set even when Parse fails.
	OfficeBase float64

	Rules      map[names.Key]types.DepartmentRule
	Order      []names.Key
	Exclusions []string

	HeaderRow int
	Columns   schema.Mapping
	Branches  int

	Skipped validation.Skips
}

// Rule returns the rule of a department by display name.
func (r *Result) Rule(department string) (types.DepartmentRule, bool) {
	rule, ok := r.Rules[names.Normalize(department)]
	return rule, ok
}

// Parser parses pay-rule tables.
type Parser struct {
	vocab      config.PayRuleVocabulary
	scalarCell string
	logger     *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithScalarCell sets the A1 reference of the base office amount.
func WithScalarCell(ref string) Option {
	return func(p *Parser) {
		if ref != "" {
			p.scalarCell = ref
		}
	}
}

// New creates a pay-rule parser.
func New(vocab config.PayRuleVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, scalarCell: DefaultScalarCell, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Parser) roles() []schema.Role {
	v := p.vocab
	roles := []schema.Role{
		schema.RoleFromKeywords(RoleExclusions, v.Exclusions),
		schema.RoleFromKeywords(RoleDepartment, v.Department),
		schema.RoleFromKeywords(RoleBranch, v.Branch),
		schema.RoleFromKeywords(RoleBase, v.Base),
		schema.RoleFromKeywords(RoleAverageWage, v.AverageWage),
		schema.RoleFromKeywords(RoleFloor, v.Floor),
		schema.RoleFromKeywords(RoleNonLiquidInPool, v.NonLiquidInPool),
		schema.RoleFromKeywords(RoleNonLiquidPercent, v.NonLiquidPercent),
		schema.RoleFromKeywords(RoleNormType, v.NormType),
		schema.RoleFromKeywords(RoleCoefRegular, v.CoefRegular),
		schema.RoleFromKeywords(RoleCoefBonus, v.CoefBonus),
		schema.RoleFromKeywords(RoleCoefNonLiquid, v.CoefNonLiquid),
		schema.RoleFromKeywords(RoleCoefWholesale, v.CoefWholesale),
	}
	for i, g := range v.Guarantees {
		roles = append(roles, schema.RoleFromKeywords(RoleGuarantee(i+1), g))
	}
	return roles
}

// Parse extracts department rules and the exclusion list from s.
//
// RETURNS:
//   - The result. On a structural failure it is still returned, holding
//     only OfficeBase.
//   - A *validation.StructuralError when the header row or the department
//     column is missing.
func (p *Parser) Parse(s *types.RawSheet) (*Result, error) {
	res := &Result{
		HeaderRow: -1,
		Rules:     make(map[names.Key]types.DepartmentRule),
		Skipped:   validation.Skips{},
	}

	if row, col, err := sheet.CellAddress(p.scalarCell); err == nil {
		res.OfficeBase = sheet.ParseNumber(s.Cell(row, col))
	}

	for r := 0; r < headerScanRows && r < s.Len(); r++ {
		a := strings.ToLower(s.Cell(r, 0))
		b := strings.ToLower(s.Cell(r, 1))
		if strings.Contains(a, p.vocab.HeaderAnchorA) && strings.Contains(b, p.vocab.HeaderAnchorB) {
			res.HeaderRow = r
			break
		}
	}
	if res.HeaderRow < 0 {
		return res, validation.NewStructuralError(types.SourcePayRules, s.Source, "header row not found").
			WithHint("looked for %q in column A and %q in column B within the first %d rows",
				p.vocab.HeaderAnchorA, p.vocab.HeaderAnchorB, headerScanRows)
	}

	for r := res.HeaderRow + 1; r < s.Len(); r++ {
		if ex := strings.TrimSpace(s.Cell(r, 0)); isExclusion(ex) {
			res.Exclusions = append(res.Exclusions, ex)
		}
	}

	res.Columns = schema.MapColumns(s.Row(res.HeaderRow), p.roles())
	if !res.Columns.Has(RoleDepartment) {
		return &Result{OfficeBase: res.OfficeBase}, validation.NewStructuralError(types.SourcePayRules, s.Source, "department column not found").
			At(res.HeaderRow, -1).
			WithMissing(RoleDepartment)
	}

	branches := make(map[string]struct{})
	for r := res.HeaderRow + 1; r < s.Len(); r++ {
		rule, ok := p.parseRow(s, r, res)
		if !ok {
			continue
		}
		if _, dup := res.Rules[rule.Key]; dup {
			res.Skipped.Add("duplicate")
			continue
		}
		res.Rules[rule.Key] = rule
		res.Order = append(res.Order, rule.Key)
		if rule.Branch != "" {
			branches[rule.Branch] = struct{}{}
		}
	}
	res.Branches = len(branches)

	p.logger.Info("pay rules parsed",
		zap.String("file", s.Source),
		zap.Int("departments", len(res.Rules)),
		zap.Int("exclusions", len(res.Exclusions)),
		zap.Float64("office_base", res.OfficeBase),
		zap.Int("skipped", res.Skipped.Total()))

	return res, nil
}

func isExclusion(v string) bool {
	if utf8.RuneCountInString(v) <= minExclusion {
		return false
	}
	stripped := strings.NewReplacer(",", "", ".", "").Replace(v)
	return !sheet.IsDigits(stripped)
}

// NormalizeDepartment drops non-printable characters and collapses
// whitespace.
func NormalizeDepartment(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	return names.Collapse(s)
}

// Accepts reports whether a department name may carry a rule.
func (p *Parser) Accepts(department string) bool {
	lower := strings.ToLower(department)
	if sheet.ContainsAny(lower, p.vocab.Blocklist) {
		return false
	}
	for _, r := range p.vocab.Reserved {
		if lower == r {
			return false
		}
	}
	return true
}

func (p *Parser) parseRow(s *types.RawSheet, r int, res *Result) (types.DepartmentRule, bool) {
	cols := res.Columns
	dept := NormalizeDepartment(s.Cell(r, cols.Col(RoleDepartment)))
	if dept == "" {
		res.Skipped.Add("empty")
		return types.DepartmentRule{}, false
	}
	if !p.Accepts(dept) {
		res.Skipped.Add("excluded_department")
		p.logger.Debug("department skipped", zap.String("department", dept), zap.Int("row", r+1))
		return types.DepartmentRule{}, false
	}

	num := func(role string) float64 {
		if !cols.Has(role) {
			return 0
		}
		return sheet.ParseNumber(s.Cell(r, cols.Col(role)))
	}

	rule := types.DepartmentRule{
		Department:       dept,
		Key:              names.Normalize(dept),
		Branch:           NormalizeDepartment(s.Cell(r, cols.Col(RoleBranch))),
		Base:             num(RoleBase),
		Floor:            num(RoleFloor),
		AverageWage:      num(RoleAverageWage),
		CoefRegular:      num(RoleCoefRegular),
		CoefBonus:        num(RoleCoefBonus),
		CoefNonLiquid:    num(RoleCoefNonLiquid),
		CoefWholesale:    num(RoleCoefWholesale),
		NonLiquidPercent: num(RoleNonLiquidPercent),
		Row:              r + 1,
	}
	for i := range rule.Guarantees {
		rule.Guarantees[i] = num(RoleGuarantee(i + 1))
	}
	if cols.Has(RoleNonLiquidInPool) {
		rule.NonLiquidInPool = sheet.ContainsAny(s.Cell(r, cols.Col(RoleNonLiquidInPool)), p.vocab.YesValues)
	}

	rule.NormType, rule.FixedHours = p.normType(s, r, cols)
	return rule, true
}

func (p *Parser) normType(s *types.RawSheet, r int, cols schema.Mapping) (types.NormType, float64) {
	if !cols.Has(RoleNormType) {
		return types.NormShop, 0
	}
	switch strings.ToLower(NormalizeDepartment(s.Cell(r, cols.Col(RoleNormType)))) {
	case p.vocab.ShopMarker:
		return types.NormShop, 0
	case p.vocab.OfficeMarker:
		return types.NormOffice, 0
	default:
		return types.NormFixed, types.DefaultFixedHours
	}
}
