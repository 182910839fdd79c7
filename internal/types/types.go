// =============================================================================
// Payroll Intake - Shared Types
// =============================================================================
//
// This package contains the records exchanged between the parsers, the
// integrator and the exporters. Keeping them here avoids import cycles:
//   - parsers produce RosterRecord, AttendanceRecord, Catalog, DepartmentRule,
//     SalesAggregate and OrderAggregate
//   - integrator consumes all of them and produces IntegratedRecord
//   - export and pipeline only read them
//
// =============================================================================

package types

import (
	"fmt"

	"github.com/ginjaninja78/payroll-intake/internal/names"
)

// =============================================================================
// RAW INPUT
// =============================================================================

// RawSheet is the first worksheet of an input file as an immutable grid of
// cell text. Rows may have different lengths.
type RawSheet struct {
	// Source is the path of the file the sheet was read from.
	Source string

	// Name is the worksheet name ("" for CSV input).
	Name string

	// Rows holds the cell text, row-major, 0-indexed.
	Rows [][]string
}

// Cell returns the trimmed-as-stored text at (row, col), or "" when the
// address is outside the grid.
func (s *RawSheet) Cell(row, col int) string {
	if s == nil || row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Row returns the row at index i, or nil when out of range.
func (s *RawSheet) Row(i int) []string {
	if s == nil || i < 0 || i >= len(s.Rows) {
		return nil
	}
	return s.Rows[i]
}

// Len returns the number of rows.
func (s *RawSheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Width returns the length of the longest row.
func (s *RawSheet) Width() int {
	if s == nil {
		return 0
	}
	w := 0
	for _, r := range s.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// =============================================================================
// ROSTER AND ATTENDANCE
// =============================================================================

// RosterRecord is one employee from the organizational roster.
type RosterRecord struct {
	Name       string
	Key        names.Key
	Branch     string
	Department string
	Manager    string

	// Row is the 1-based source row, for diagnostics.
	Row int
}

// AttendanceRecord is one employee from the attendance schedule.
type AttendanceRecord struct {
	Name     string
	Key      names.Key
	Hours    float64
	DaysOff  int
	Vacation int
	Absence  int
	Sick     int
	Row      int
}

// =============================================================================
// ITEM CATALOG
// =============================================================================

// ItemClass is the payroll class of a sold item.
type ItemClass string

const (
	ClassRegular   ItemClass = "regular"
	ClassBonus     ItemClass = "bonus"
	ClassNonLiquid ItemClass = "non_liquid"
)

// CatalogItem is one entry of the bonus/non-liquid catalog.
type CatalogItem struct {
	Code      string
	Name      string
	Class     ItemClass
	RawStatus string
	Row       int
}

// Catalog is an immutable item code to class lookup. The zero value is an
// empty catalog in which every code is regular. Safe for concurrent readers.
type Catalog struct {
	items map[string]CatalogItem
}

// NewCatalog builds a catalog from entries. Later entries with the same code
// replace earlier ones.
func NewCatalog(entries []CatalogItem) Catalog {
	items := make(map[string]CatalogItem, len(entries))
	for _, e := range entries {
		items[e.Code] = e
	}
	return Catalog{items: items}
}

// Class returns the class of code, ClassRegular when unknown.
func (c Catalog) Class(code string) ItemClass {
	if it, ok := c.items[code]; ok {
		return it.Class
	}
	return ClassRegular
}

// Lookup returns the catalog entry for code.
func (c Catalog) Lookup(code string) (CatalogItem, bool) {
	it, ok := c.items[code]
	return it, ok
}

// Len returns the number of codes in the catalog.
func (c Catalog) Len() int {
	return len(c.items)
}

// =============================================================================
// PAY RULES
// =============================================================================

// NormType selects how the monthly hour norm of a department is resolved.
type NormType string

const (
	NormUnset  NormType = ""
	NormShop   NormType = "shop"
	NormOffice NormType = "office"
	NormFixed  NormType = "fixed"
)

// DefaultFixedHours is the norm used by departments whose norm column holds
// anything other than the shop or office markers.
const DefaultFixedHours = 160.0

// DepartmentRule is one row of the pay-rule table.
type DepartmentRule struct {
	Department string
	Key        names.Key
	Branch     string

	Base        float64
	Floor       float64
	AverageWage float64

	CoefRegular   float64
	CoefBonus     float64
	CoefNonLiquid float64
	CoefWholesale float64

	// Guarantees holds the rank guarantees for places 1-5.
	Guarantees [5]float64

	NormType NormType

	// FixedHours is meaningful only when NormType is NormFixed.
	FixedHours float64

	NonLiquidInPool  bool
	NonLiquidPercent float64

	Row int
}

// =============================================================================
// AGGREGATES
// =============================================================================

// OrderAggregate holds the special-order totals of one seller.
type OrderAggregate struct {
	Ordered   Figures
	Unordered Figures
}

// =============================================================================
// INTEGRATED RECORD
// =============================================================================

// IntegratedRecord is one employee of the unified output. The gocsv and
// export column names are the csv tags.
type IntegratedRecord struct {
	Key        names.Key `csv:"key"`
	Name       string    `csv:"name"`
	Branch     string    `csv:"branch"`
	Department string    `csv:"department"`
	Manager    string    `csv:"manager"`

	Hours    float64 `csv:"hours"`
	DaysOff  int     `csv:"days_off"`
	Vacation int     `csv:"vacation"`
	Absence  int     `csv:"absence"`
	Sick     int     `csv:"sick"`

	Revenue          float64 `csv:"revenue"`
	Profit           float64 `csv:"profit"`
	BonusRevenue     float64 `csv:"bonus_revenue"`
	NonLiquidRevenue float64 `csv:"non_liquid_revenue"`
	WholesaleRevenue float64 `csv:"wholesale_revenue"`
	RetailRevenue    float64 `csv:"retail_revenue"`

	OrderedRevenue   float64 `csv:"ordered_revenue"`
	OrderedProfit    float64 `csv:"ordered_profit"`
	UnorderedRevenue float64 `csv:"unordered_revenue"`
	UnorderedProfit  float64 `csv:"unordered_profit"`

	Base          float64  `csv:"base"`
	OfficeBase    float64  `csv:"office_base"`
	Floor         float64  `csv:"floor"`
	AverageWage   float64  `csv:"average_wage"`
	CoefRegular   float64  `csv:"coef_regular"`
	CoefBonus     float64  `csv:"coef_bonus"`
	CoefNonLiquid float64  `csv:"coef_non_liquid"`
	CoefWholesale float64  `csv:"coef_wholesale"`
	Guarantee1    float64  `csv:"guarantee_1"`
	Guarantee2    float64  `csv:"guarantee_2"`
	Guarantee3    float64  `csv:"guarantee_3"`
	Guarantee4    float64  `csv:"guarantee_4"`
	Guarantee5    float64  `csv:"guarantee_5"`
	NormType      NormType `csv:"norm_type"`
	Norm          float64  `csv:"norm"`

	NonLiquidInPool  bool    `csv:"non_liquid_in_pool"`
	NonLiquidPercent float64 `csv:"non_liquid_percent"`

	PercentOfNorm float64 `csv:"percent_of_norm"`
	HoursMet      bool    `csv:"hours_met"`
	HasSales      bool    `csv:"has_sales"`
	BonusRatio    float64 `csv:"bonus_ratio"`

	// Provenance.
	InRoster     bool `csv:"in_roster"`
	HasSchedule  bool `csv:"has_schedule"`
	HasSalesData bool `csv:"has_sales_data"`
	HasOrderData bool `csv:"has_order_data"`
	HasRule      bool `csv:"has_rule"`
}

// =============================================================================
// SOURCE KINDS
// =============================================================================

// SourceKind identifies one of the six monthly input files.
type SourceKind string

const (
	SourceRoster     SourceKind = "roster"
	SourceAttendance SourceKind = "attendance"
	SourceCatalog    SourceKind = "catalog"
	SourcePayRules   SourceKind = "pay_rules"
	SourceSales      SourceKind = "sales"
	SourceOrders     SourceKind = "orders"
)

// SourceKinds lists every kind in load order.
var SourceKinds = []SourceKind{
	SourceRoster, SourceAttendance, SourceCatalog, SourcePayRules, SourceSales, SourceOrders,
}

// Required reports whether a run cannot proceed without this source.
func (k SourceKind) Required() bool {
	return k != SourceOrders
}

// ParseSourceKind returns the kind named s.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range SourceKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}
