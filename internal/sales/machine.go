package sales

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
)

// State of the ledger walk.
type State int

const (
	Idle State = iota
	InSeller
)

func (s State) String() string {
	if s == InSeller {
		return "in_seller"
	}
	return "idle"
}

// Event classifies the row a transition was taken on.
type Event int

const (
	EventIgnored Event = iota
	EventSeller
	EventBlank
	EventSaleType
	EventItem
	EventBanner
)

func (e Event) String() string {
	switch e {
	case EventSeller:
		return "seller"
	case EventBlank:
		return "blank"
	case EventSaleType:
		return "sale_type"
	case EventItem:
		return "item"
	case EventBanner:
		return "banner"
	default:
		return "ignored"
	}
}

// Transition is the outcome of one Step.
type Transition struct {
	Event    Event
	From, To State

	// Seller is the block owner after the step (empty when idle).
	Seller     names.Key
	SellerName string

	// SaleType is the sale type after the step. For item rows it is the
	// bucket the item belongs to.
	SaleType types.SaleType

	// Code is the cleaned item code of an item row.
	Code string
}

const (
	minCodeLen   = 3
	maxCodeLen   = 8
	minBannerLen = 5
)

var codeNoise = strings.NewReplacer(" ", "", "-", "", ".", "")

// Machine walks a sales ledger one first-column cell at a time.
// The zero value is not usable; see NewMachine.
type Machine struct {
	vocab    config.SalesVocabulary
	isSeller func(string) bool

	state      State
	saleType   types.SaleType
	seller     names.Key
	sellerName string
}

// NewMachine returns an idle machine. isSeller decides whether a cell opens
// a seller block.
func NewMachine(vocab config.SalesVocabulary, isSeller func(string) bool) *Machine {
	return &Machine{vocab: vocab, isSeller: isSeller, saleType: types.SaleNone}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// SaleType returns the current sale type.
func (m *Machine) SaleType() types.SaleType { return m.saleType }

// Seller returns the key of the open seller block.
func (m *Machine) Seller() names.Key { return m.seller }

// Step consumes the first cell of a row. Rules are checked in order:
// blank, seller name, sale-type keyword, item code, banner.
func (m *Machine) Step(cell string) Transition {
	from := m.state
	cell = strings.TrimSpace(cell)
	lower := strings.ToLower(cell)

	ev := EventIgnored
	var code string

	switch {
	case cell == "" || lower == "nan" || lower == "none":
		ev = EventBlank
		m.close()

	case m.isSeller(cell):
		ev = EventSeller
		m.state = InSeller
		m.seller = names.Normalize(cell)
		m.sellerName = names.Collapse(cell)
		m.saleType = types.SaleNone

	case m.state == InSeller && m.saleTypeRow(lower):
		ev = EventSaleType
		m.saleType = m.classifySaleType(lower)

	case m.state == InSeller && isItemCode(cell):
		ev = EventItem
		code = codeNoise.Replace(cell)
		if m.saleType == types.SaleNone {
			m.saleType = types.SaleWholesale
		}

	case isBanner(cell):
		ev = EventBanner
		m.close()
	}

	return Transition{
		Event:      ev,
		From:       from,
		To:         m.state,
		Seller:     m.seller,
		SellerName: m.sellerName,
		SaleType:   m.saleType,
		Code:       code,
	}
}

func (m *Machine) close() {
	m.state = Idle
	m.seller = ""
	m.sellerName = ""
	m.saleType = types.SaleNone
}

func (m *Machine) saleTypeRow(lower string) bool {
	v := m.vocab
	return strings.Contains(lower, v.Wholesale) ||
		strings.Contains(lower, v.Retail) ||
		strings.Contains(lower, v.SaleHeader)
}

func (m *Machine) classifySaleType(lower string) types.SaleType {
	v := m.vocab
	switch {
	case strings.Contains(lower, v.Wholesale):
		return types.SaleWholesale
	case strings.Contains(lower, v.Retail) && strings.Contains(lower, v.ByReceipt):
		return types.SaleRetailReceipt
	case strings.Contains(lower, v.Retail):
		return types.SaleRetailOther
	default:
		return types.SaleNone
	}
}

func isItemCode(cell string) bool {
	code := codeNoise.Replace(cell)
	n := utf8.RuneCountInString(code)
	return n >= minCodeLen && n <= maxCodeLen && sheet.IsDigits(code)
}

func isBanner(cell string) bool {
	return utf8.RuneCountInString(cell) > minBannerLen && isUpper(cell)
}

// isUpper reports whether s has at least one cased letter and no lower
// case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
