// =============================================================================
// Payroll Intake - Item Catalog Parser
// =============================================================================
//
// The catalog lists item codes with a free-text status. The status decides
// how revenue from the item is paid:
//
//   status contains "бонус" and "уценка" -> non_liquid
//   status contains "бонус"              -> bonus
//   anything else                        -> regular
//
// COLUMNS:
//   Found by keyword in the first 5 rows (code, name, status). When the
//   code column is not found and the sheet has at least 5 columns, the
//   layout of the standard export fills the gaps: code=A, name=B, status=E.
//
// DATA START:
//   The first row within the first 10 whose code cell is all digits.
//
// =============================================================================

package catalog

import (
	"strings"

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
	RoleCode   = "code"
	RoleName   = "name"
	RoleStatus = "status"
)

const (
	headerScanRows   = 5
	startScanRows    = 10
	positionalMinCol = 5
)

// Stats summarizes a catalog parse.
type Stats struct {
	Processed int
	Bonus     int
	NonLiquid int
	Regular   int
	StartRow  int
}

// Result is the parsed catalog.
type Result struct {
	Catalog    types.Catalog
	Items      []types.CatalogItem
	Columns    schema.Mapping
	Positional bool
	Stats      Stats
	Skipped    validation.Skips
}

// Parser parses item catalogs.
type Parser struct {
	vocab  config.CatalogVocabulary
	logger *zap.Logger
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

// New creates a catalog parser.
func New(vocab config.CatalogVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Classify maps a status text to an item class.
func (p *Parser) Classify(status string) types.ItemClass {
	s := strings.ToLower(names.Collapse(status))
	switch {
	case strings.Contains(s, p.vocab.BonusMarker) && strings.Contains(s, p.vocab.MarkdownMarker):
		return types.ClassNonLiquid
	case strings.Contains(s, p.vocab.BonusMarker):
		return types.ClassBonus
	default:
		return types.ClassRegular
	}
}

// Parse extracts the catalog from s.
func (p *Parser) Parse(s *types.RawSheet) (*Result, error) {
	res := &Result{Skipped: validation.Skips{}}

	res.Columns = schema.MapRows(s, 0, headerScanRows, []schema.Role{
		schema.NewRole(RoleCode, p.vocab.CodeHeaders...),
		schema.NewRole(RoleName, p.vocab.NameHeaders...),
		schema.NewRole(RoleStatus, p.vocab.StatusHeaders...),
	})
	if !res.Columns.Has(RoleCode) && s.Width() >= positionalMinCol {
		res.Columns.Fallback(map[string]int{RoleCode: 0, RoleName: 1, RoleStatus: 4}, s.Width())
		res.Positional = true
		p.logger.Warn("catalog headers not found, using standard column positions",
			zap.String("file", s.Source))
	}
	if !res.Columns.Has(RoleCode) {
		return nil, validation.NewStructuralError(types.SourceCatalog, s.Source, "item code column not found").
			WithMissing(RoleCode).
			WithHint("looked for %v in the first %d rows", p.vocab.CodeHeaders, headerScanRows)
	}

	codeCol := res.Columns.Col(RoleCode)
	for r := 0; r < startScanRows && r < s.Len(); r++ {
		if sheet.IsDigits(s.Cell(r, codeCol)) {
			res.Stats.StartRow = r
			break
		}
	}

	for r := res.Stats.StartRow; r < s.Len(); r++ {
		code := strings.TrimSpace(s.Cell(r, codeCol))
		switch {
		case code == "":
			res.Skipped.Add("empty_code")
			continue
		case sheet.ContainsAny(code, p.vocab.CodeHeaders):
			res.Skipped.Add("header_row")
			continue
		case !names.HasDigit(code):
			res.Skipped.Add("no_digits")
			continue
		}

		status := s.Cell(r, res.Columns.Col(RoleStatus))
		item := types.CatalogItem{
			Code:      code,
			Name:      names.Collapse(s.Cell(r, res.Columns.Col(RoleName))),
			Class:     p.Classify(status),
			RawStatus: status,
			Row:       r + 1,
		}
		res.Items = append(res.Items, item)
		res.Stats.Processed++
	}

	res.Catalog = types.NewCatalog(res.Items)
	final := make(map[string]types.ItemClass, len(res.Items))
	for _, it := range res.Items {
		final[it.Code] = it.Class
	}
	for _, class := range final {
		switch class {
		case types.ClassBonus:
			res.Stats.Bonus++
		case types.ClassNonLiquid:
			res.Stats.NonLiquid++
		default:
			res.Stats.Regular++
		}
	}

	p.logger.Info("catalog parsed",
		zap.String("file", s.Source),
		zap.Int("codes", res.Catalog.Len()),
		zap.Int("bonus", res.Stats.Bonus),
		zap.Int("non_liquid", res.Stats.NonLiquid),
		zap.Int("start_row", res.Stats.StartRow+1),
		zap.Int("skipped", res.Skipped.Total()))

	return res, nil
}
