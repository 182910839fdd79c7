// =============================================================================
// Payroll Intake - Special-Order Ledger Parser
// =============================================================================
//
// The order ledger has two sections, "Незаказной" (stock items) and
// "Заказной" (special orders), each listing sellers with one summary row.
// Only sellers that resolve to a roster employee are kept: this ledger
// cannot introduce new employees.
//
// COLUMNS (fixed): A seller, D quantity, F revenue, G profit.
//
// MATCHING:
//   1. exact name key
//   2. substring in either direction, first roster key in sorted order
//      (reported as a partial match)
//
// A seller row overwrites the section figures of its employee; a seller
// appears at most once per section.
//
// =============================================================================

package orders

import (
	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// Fixed columns.
const (
	ColSeller   = 0
	ColQuantity = 3
	ColRevenue  = 5
	ColProfit   = 6

	minColumns = 7
)

// Match records how a ledger seller was resolved.
type Match struct {
	Seller   string
	Employee names.Key
	Partial  bool
	Section  Section
	Row      int
}

// Stats holds section totals over every matched row.
type Stats struct {
	Unordered types.Figures
	Ordered   types.Figures
	Unmatched int
}

// Result is the parsed order ledger.
type Result struct {
	Sellers map[names.Key]types.OrderAggregate
	Matches []Match
	Stats   Stats
	Skipped validation.Skips
	Issues  validation.Issues
}

// Seller returns the order figures of an employee.
func (r *Result) Seller(key names.Key) (types.OrderAggregate, bool) {
	a, ok := r.Sellers[key]
	return a, ok
}

// Parser parses special-order ledgers.
type Parser struct {
	vocab  config.OrderVocabulary
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

// New creates an order ledger parser.
func New(vocab config.OrderVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse extracts the ordered and unordered figures of roster employees.
//
// PARAMETERS:
//   - s: the ledger sheet
//   - roster: keys of the employees sellers may resolve to
//   - exclusions: firm and department names from the pay-rule table
//
// RETURNS:
//   - Figures per employee key.
//   - A *validation.StructuralError when the sheet is narrower than 7
//     columns or has no section marker.
func (p *Parser) Parse(s *types.RawSheet, roster []names.Key, exclusions []string) (*Result, error) {
	if w := s.Width(); w < minColumns {
		return nil, validation.NewStructuralError(types.SourceOrders, s.Source,
			"ledger has %d columns, at least %d required", w, minColumns).
			WithHint("expected sellers in A, quantity in D, revenue in F, profit in G")
	}

	res := &Result{
		Sellers: make(map[names.Key]types.OrderAggregate),
		Skipped: validation.Skips{},
		Issues:  validation.Issues{Source: types.SourceOrders, File: s.Source},
	}
	filter := NewSellerFilter(p.vocab, exclusions)
	matcher := NewMatcher(roster)
	m := NewMachine(p.vocab)
	markers := 0

	for r := 0; r < s.Len(); r++ {
		cell := s.Cell(r, ColSeller)
		if m.Step(cell) {
			markers++
			continue
		}
		if m.Section() == NoSection {
			continue
		}
		if sheet.IsRowEmpty(s.Row(r)) || cell == "" {
			continue
		}
		if reason := filter.Check(cell); reason != "" {
			res.Skipped.Add(reason)
			continue
		}

		seller := names.Normalize(cell)
		emp, partial, ok := matcher.Match(seller)
		if !ok {
			res.Stats.Unmatched++
			res.Skipped.Add("not_in_roster")
			p.logger.Debug("order seller not in roster", zap.String("seller", cell), zap.Int("row", r+1))
			continue
		}
		if partial {
			res.Issues.Warn(r, "partial_match", cell, "seller matched employee %s by substring", emp)
			p.logger.Warn("order seller matched by substring",
				zap.String("seller", cell),
				zap.String("employee", emp.String()),
				zap.Int("row", r+1))
		}

		fig := types.Figures{}.Add(
			sheet.ParseDecimal(s.Cell(r, ColQuantity)),
			sheet.ParseDecimal(s.Cell(r, ColRevenue)),
			sheet.ParseDecimal(s.Cell(r, ColProfit)))

		agg := res.Sellers[emp]
		if m.Section() == Unordered {
			agg.Unordered = fig
			res.Stats.Unordered = res.Stats.Unordered.Plus(fig)
		} else {
			agg.Ordered = fig
			res.Stats.Ordered = res.Stats.Ordered.Plus(fig)
		}
		res.Sellers[emp] = agg
		res.Matches = append(res.Matches, Match{
			Seller:   cell,
			Employee: emp,
			Partial:  partial,
			Section:  m.Section(),
			Row:      r + 1,
		})
	}

	if markers == 0 {
		return nil, validation.NewStructuralError(types.SourceOrders, s.Source, "section markers not found").
			WithHint("looked for %q and %q in column A", p.vocab.UnorderedMarker, p.vocab.OrderedMarker)
	}

	p.logger.Info("order ledger parsed",
		zap.String("file", s.Source),
		zap.Int("employees", len(res.Sellers)),
		zap.Int("roster", len(roster)),
		zap.Int("partial_matches", res.Issues.Len()),
		zap.Int("unmatched", res.Stats.Unmatched),
		zap.String("unordered_revenue", res.Stats.Unordered.Revenue.StringFixed(2)),
		zap.String("ordered_revenue", res.Stats.Ordered.Revenue.StringFixed(2)))

	return res, nil
}
