package types

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/payroll-intake/internal/names"
)

// SaleType is the sale-type section an item row belongs to.
type SaleType int

const (
	SaleNone SaleType = iota - 1
	SaleWholesale
	SaleRetailReceipt
	SaleRetailOther
)

// SaleTypes lists the sale types that own a bucket, in report order.
var SaleTypes = [...]SaleType{SaleWholesale, SaleRetailReceipt, SaleRetailOther}

func (t SaleType) String() string {
	switch t {
	case SaleWholesale:
		return "wholesale"
	case SaleRetailReceipt:
		return "retail_receipt"
	case SaleRetailOther:
		return "retail_other"
	default:
		return "none"
	}
}

// Figures is a running total of item rows. Zero value is all zeros.
type Figures struct {
	Items    int
	Quantity decimal.Decimal
	Revenue  decimal.Decimal
	Profit   decimal.Decimal
}

// Add returns f with one more item row accounted for.
func (f Figures) Add(qty, revenue, profit decimal.Decimal) Figures {
	return Figures{
		Items:    f.Items + 1,
		Quantity: f.Quantity.Add(qty),
		Revenue:  f.Revenue.Add(revenue),
		Profit:   f.Profit.Add(profit),
	}
}

// Plus returns the sum of f and o.
func (f Figures) Plus(o Figures) Figures {
	return Figures{
		Items:    f.Items + o.Items,
		Quantity: f.Quantity.Add(o.Quantity),
		Revenue:  f.Revenue.Add(o.Revenue),
		Profit:   f.Profit.Add(o.Profit),
	}
}

// Equal reports exact equality of all totals.
func (f Figures) Equal(o Figures) bool {
	return f.Items == o.Items &&
		f.Quantity.Equal(o.Quantity) &&
		f.Revenue.Equal(o.Revenue) &&
		f.Profit.Equal(o.Profit)
}

// Bucket splits figures by item class and keeps their total.
type Bucket struct {
	Regular   Figures
	Bonus     Figures
	NonLiquid Figures
	Total     Figures
}

func (b *Bucket) add(class ItemClass, qty, revenue, profit decimal.Decimal) {
	switch class {
	case ClassBonus:
		b.Bonus = b.Bonus.Add(qty, revenue, profit)
	case ClassNonLiquid:
		b.NonLiquid = b.NonLiquid.Add(qty, revenue, profit)
	default:
		b.Regular = b.Regular.Add(qty, revenue, profit)
	}
	b.Total = b.Total.Add(qty, revenue, profit)
}

// Class returns the figures of one item class.
func (b Bucket) Class(class ItemClass) Figures {
	switch class {
	case ClassBonus:
		return b.Bonus
	case ClassNonLiquid:
		return b.NonLiquid
	default:
		return b.Regular
	}
}

// SalesAggregate is the ledger total of one seller.
type SalesAggregate struct {
	Key  names.Key
	Name string

	// ByType is indexed by SaleType.
	ByType [len(SaleTypes)]Bucket

	// Total is the grand total over every sale type.
	Total Bucket
}

// NewSalesAggregate returns an empty aggregate for a seller.
func NewSalesAggregate(name string, key names.Key) *SalesAggregate {
	return &SalesAggregate{Key: key, Name: name}
}

// Add records one item row in its sale-type bucket and in the grand total.
func (a *SalesAggregate) Add(t SaleType, class ItemClass, qty, revenue, profit decimal.Decimal) {
	if t < SaleWholesale || int(t) >= len(a.ByType) {
		t = SaleWholesale
	}
	a.ByType[t].add(class, qty, revenue, profit)
	a.Total.add(class, qty, revenue, profit)
}

// Type returns the bucket of one sale type.
func (a *SalesAggregate) Type(t SaleType) Bucket {
	if t < SaleWholesale || int(t) >= len(a.ByType) {
		return Bucket{}
	}
	return a.ByType[t]
}

// Check verifies that the sale-type buckets and the class splits sum to
// the grand total.
func (a *SalesAggregate) Check() error {
	var sum Bucket
	for _, b := range a.ByType {
		sum.Regular = sum.Regular.Plus(b.Regular)
		sum.Bonus = sum.Bonus.Plus(b.Bonus)
		sum.NonLiquid = sum.NonLiquid.Plus(b.NonLiquid)
		sum.Total = sum.Total.Plus(b.Total)

		if classes := b.Regular.Plus(b.Bonus).Plus(b.NonLiquid); !classes.Equal(b.Total) {
			return fmt.Errorf("seller %s: class split %s does not match bucket total %s",
				a.Key, classes.Revenue, b.Total.Revenue)
		}
	}
	if !sum.Total.Equal(a.Total.Total) {
		return fmt.Errorf("seller %s: sale types sum to %s, grand total is %s",
			a.Key, sum.Total.Revenue, a.Total.Total.Revenue)
	}
	if !sum.Bonus.Equal(a.Total.Bonus) || !sum.NonLiquid.Equal(a.Total.NonLiquid) || !sum.Regular.Equal(a.Total.Regular) {
		return fmt.Errorf("seller %s: class totals do not match sale-type buckets", a.Key)
	}
	return nil
}
