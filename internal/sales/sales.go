// =============================================================================
// Payroll Intake - Sales Ledger Parser
// =============================================================================
//
// The "sales analysis" export lists, for every seller, the items sold split
// into sale-type sub-blocks. Column A carries everything: seller names,
// sale-type captions, item codes and firm banners. Numbers sit in fixed
// columns.
//
// LAYOUT:
//   A: seller / sale type / item code   D: quantity
//   B: item name                        F: revenue
//   B5: report period                   G: profit
//
// ROW WALK (see Machine):
//   seller name  -> open a seller block, sale type reset
//   blank row    -> close the block
//   sale type    -> "оптовая" wholesale, "розничная ... по чек" retail by
//                   receipt, "розничная" other retail
//   item code    -> 3-8 digits after removing spaces, dashes and dots;
//                   wholesale when no sale type was given
//   banner       -> upper case text longer than 5 characters closes the block
//
// Every item row adds to exactly one sale-type bucket and to the seller's
// grand total, so the buckets always sum to the total.
//
// =============================================================================

package sales

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// Fixed columns.
const (
	ColLabel    = 0
	ColQuantity = 3
	ColRevenue  = 5
	ColProfit   = 6

	minColumns = 7
)

const (
	periodRow, periodCol = 4, 1

	scanFrom       = 5
	headerScanTo   = 50
	sellerScanTo   = 100
	defaultStartAt = 5
)

// Stats summarizes a ledger parse.
type Stats struct {
	// Blocks counts seller rows, including repeated blocks of one seller.
	Blocks  int
	Items   int
	Banners int

	Quantity  decimal.Decimal
	Revenue   decimal.Decimal
	Bonus     int
	NonLiquid int
}

// Result is the parsed sales ledger.
type Result struct {
	Period   string
	StartRow int

	Sellers map[names.Key]*types.SalesAggregate

	// Order lists sellers in order of first appearance.
	Order []names.Key

	Stats   Stats
	Skipped validation.Skips
}

// Seller returns the aggregate of one seller.
func (r *Result) Seller(key names.Key) (*types.SalesAggregate, bool) {
	a, ok := r.Sellers[key]
	return a, ok
}

// Parser parses sales ledgers.
type Parser struct {
	vocab  config.SalesVocabulary
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

// New creates a sales ledger parser.
func New(vocab config.SalesVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse aggregates s per seller.
//
// PARAMETERS:
//   - s: the ledger sheet
//   - catalog: item classes; unknown codes are regular
//   - exclusions: firm and department names from the pay-rule table
//
// RETURNS:
//   - The per-seller aggregates.
//   - A *validation.StructuralError when the sheet has fewer than 7 columns.
func (p *Parser) Parse(s *types.RawSheet, catalog types.Catalog, exclusions []string) (*Result, error) {
	if w := s.Width(); w < minColumns {
		return nil, validation.NewStructuralError(types.SourceSales, s.Source,
			"ledger has %d columns, at least %d required", w, minColumns).
			WithHint("expected seller and item codes in A, quantity in D, revenue in F, profit in G")
	}

	filter := NewSellerFilter(p.vocab, exclusions)
	res := &Result{
		Period:  s.Cell(periodRow, periodCol),
		Sellers: make(map[names.Key]*types.SalesAggregate),
		Skipped: validation.Skips{},
	}
	res.StartRow = p.startRow(s, filter)

	p.logger.Debug("sales ledger layout",
		zap.String("file", s.Source),
		zap.String("period", res.Period),
		zap.Int("start_row", res.StartRow+1),
		zap.Int("exclusions", len(exclusions)))

	m := NewMachine(p.vocab, filter.Valid)
	for r := res.StartRow + 1; r < s.Len(); r++ {
		t := m.Step(s.Cell(r, ColLabel))

		switch t.Event {
		case EventSeller:
			res.Stats.Blocks++
			if _, ok := res.Sellers[t.Seller]; !ok {
				res.Sellers[t.Seller] = types.NewSalesAggregate(t.SellerName, t.Seller)
				res.Order = append(res.Order, t.Seller)
			}
		case EventItem:
			p.addItem(res, s, r, t, catalog)
		case EventBanner:
			res.Stats.Banners++
		case EventIgnored:
			res.Skipped.Add("unrecognized")
		}
	}

	for _, key := range res.Order {
		if err := res.Sellers[key].Check(); err != nil {
			return nil, fmt.Errorf("sales ledger %s: %w", s.Source, err)
		}
	}

	p.logger.Info("sales ledger parsed",
		zap.String("file", s.Source),
		zap.Int("sellers", len(res.Sellers)),
		zap.Int("blocks", res.Stats.Blocks),
		zap.Int("items", res.Stats.Items),
		zap.String("revenue", res.Stats.Revenue.StringFixed(2)),
		zap.Int("bonus_items", res.Stats.Bonus),
		zap.Int("non_liquid_items", res.Stats.NonLiquid))

	return res, nil
}

func (p *Parser) addItem(res *Result, s *types.RawSheet, r int, t Transition, catalog types.Catalog) {
	agg := res.Sellers[t.Seller]

	qty := sheet.ParseDecimal(s.Cell(r, ColQuantity))
	revenue := sheet.ParseDecimal(s.Cell(r, ColRevenue))
	profit := sheet.ParseDecimal(s.Cell(r, ColProfit))
	class := catalog.Class(t.Code)

	agg.Add(t.SaleType, class, qty, revenue, profit)

	res.Stats.Items++
	res.Stats.Quantity = res.Stats.Quantity.Add(qty)
	res.Stats.Revenue = res.Stats.Revenue.Add(revenue)
	switch class {
	case types.ClassBonus:
		res.Stats.Bonus++
	case types.ClassNonLiquid:
		res.Stats.NonLiquid++
	}
}

// startRow returns the row after which the walk begins: the seller header
// row, else the row before the first valid seller, else row 6.
func (p *Parser) startRow(s *types.RawSheet, filter *SellerFilter) int {
	for r := scanFrom; r < headerScanTo && r < s.Len(); r++ {
		if sheet.ContainsAny(s.Cell(r, ColLabel), p.vocab.SellerHeaders) {
			return r
		}
	}
	for r := scanFrom; r < sellerScanTo && r < s.Len(); r++ {
		if filter.Valid(s.Cell(r, ColLabel)) {
			return r - 1
		}
	}
	return defaultStartAt
}
