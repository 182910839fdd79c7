// =============================================================================
// Payroll Intake - Integration Engine
// =============================================================================
//
// The integrator is the only component that joins across sources. It turns
// the parsed roster, schedule, ledgers and pay rules into one record per
// payable employee.
//
// STEPS (fixed order, each reads only what earlier steps produced):
//   1. Join schedule and roster on the name key; only roster keys survive.
//      Employees without a schedule row keep zero hours and HasSchedule=false.
//   2. Drop employees whose department is empty or the roster's
//      "unspecified" marker.
//   3. Sort by branch, department, name.
//   4. Attach sales and order figures by exact key.
//   5. Attach pay-rule fields by department key.
//   6. Resolve the hour norm. Any zero norm aborts the whole run with
//      *validation.UnresolvedNormError.
//   7. Derived fields: percent of norm, hours met, has sales, bonus ratio.
//
// Sellers that matched no employee are listed with the closest employee
// key for the operator. They are never joined.
//
// =============================================================================

package integrator

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/closestmatch"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

// DefaultUnspecified is the roster's marker for a missing value.
const DefaultUnspecified = "Не указан"

// Inputs are the parsed sources. Sales, Orders and Rules may be nil.
type Inputs struct {
	Roster     []types.RosterRecord
	Attendance []types.AttendanceRecord
	Sales      map[names.Key]*types.SalesAggregate
	Orders     map[names.Key]types.OrderAggregate
	Rules      map[names.Key]types.DepartmentRule

	// OfficeBase is the pay-rule scalar attached to employees with a rule.
	OfficeBase float64

	// Unspecified overrides DefaultUnspecified.
	Unspecified string
}

// Norms are the externally resolved hour norms.
type Norms struct {
	Shop   float64
	Office float64
}

// Unmatched is a ledger seller that joined no employee.
type Unmatched struct {
	Seller     names.Key
	Name       string
	Revenue    float64
	Suggestion names.Key
}

// Stats summarizes an integration run.
type Stats struct {
	Employees    int
	WithSchedule int
	WithSales    int
	WithOrders   int
	WithRule     int

	Shop   int
	Office int
	Fixed  int

	// ScheduleOnly counts schedule rows whose key is not in the roster.
	ScheduleOnly int
	// Dropped counts roster employees removed in step 2.
	Dropped int

	// NoSchedule lists employees present only in the roster.
	NoSchedule []string
}

// Result is one integration run.
type Result struct {
	RunID     uuid.UUID
	Records   []types.IntegratedRecord
	Unmatched []Unmatched
	Stats     Stats
}

// Integrator joins parsed sources.
type Integrator struct {
	logger *zap.Logger
}

// Option configures an Integrator.
type Option func(*Integrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Integrator) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an integrator.
func New(opts ...Option) *Integrator {
	i := &Integrator{logger: zap.NewNop()}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Integrate runs New().Integrate.
func Integrate(in Inputs, norms Norms) (*Result, error) {
	return New().Integrate(in, norms)
}

// Integrate joins the inputs into integrated records.
//
// RETURNS:
//   - The records, sorted by branch, department and name.
//   - *validation.UnresolvedNormError when any employee's norm is zero. No
//     records are returned in that case.
func (ig *Integrator) Integrate(in Inputs, norms Norms) (*Result, error) {
	res := &Result{RunID: uuid.New()}
	log := ig.logger.With(zap.String("run_id", res.RunID.String()))

	unspecified := in.Unspecified
	if unspecified == "" {
		unspecified = DefaultUnspecified
	}

	// Step 1.
	schedule := make(map[names.Key]types.AttendanceRecord, len(in.Attendance))
	for _, a := range in.Attendance {
		if !a.Key.Valid() {
			continue
		}
		if _, dup := schedule[a.Key]; dup {
			log.Debug("duplicate schedule row ignored", zap.String("key", a.Key.String()), zap.Int("row", a.Row))
			continue
		}
		schedule[a.Key] = a
	}

	inRoster := make(map[names.Key]bool, len(in.Roster))
	records := make([]types.IntegratedRecord, 0, len(in.Roster))
	for _, emp := range in.Roster {
		if !emp.Key.Valid() || inRoster[emp.Key] {
			continue
		}
		inRoster[emp.Key] = true

		rec := types.IntegratedRecord{
			Key:        emp.Key,
			Name:       emp.Name,
			Branch:     emp.Branch,
			Department: emp.Department,
			Manager:    emp.Manager,
			InRoster:   true,
		}
		if a, ok := schedule[emp.Key]; ok {
			rec.Name = a.Name
			rec.Hours = a.Hours
			rec.DaysOff = a.DaysOff
			rec.Vacation = a.Vacation
			rec.Absence = a.Absence
			rec.Sick = a.Sick
			rec.HasSchedule = true
		}
		records = append(records, rec)
	}
	for key := range schedule {
		if !inRoster[key] {
			res.Stats.ScheduleOnly++
		}
	}

	// Step 2.
	kept := records[:0]
	for _, rec := range records {
		if rec.Department == "" || rec.Department == unspecified {
			res.Stats.Dropped++
			continue
		}
		kept = append(kept, rec)
	}
	records = kept

	// Step 3.
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		return a.Name < b.Name
	})

	// Steps 4 and 5.
	for i := range records {
		rec := &records[i]
		if agg, ok := in.Sales[rec.Key]; ok && agg != nil {
			attachSales(rec, agg)
		}
		if ord, ok := in.Orders[rec.Key]; ok {
			attachOrders(rec, ord)
		}
		if rule, ok := in.Rules[names.Normalize(rec.Department)]; ok {
			attachRule(rec, rule, in.OfficeBase)
		}
	}

	// Step 6.
	var unresolved []validation.NormIssue
	for i := range records {
		rec := &records[i]
		var fixed float64
		if rule, ok := in.Rules[names.Normalize(rec.Department)]; ok {
			fixed = rule.FixedHours
		}
		rec.Norm = resolveNorm(rec.NormType, fixed, norms)
		if rec.Norm == 0 {
			unresolved = append(unresolved, validation.NormIssue{
				Key:        rec.Key.String(),
				Name:       rec.Name,
				Department: rec.Department,
				NormType:   rec.NormType,
			})
		}
	}
	if len(unresolved) > 0 {
		log.Error("hour norm unresolved, integration aborted",
			zap.Int("employees", len(unresolved)),
			zap.Float64("shop_norm", norms.Shop),
			zap.Float64("office_norm", norms.Office))
		return nil, &validation.UnresolvedNormError{Employees: unresolved}
	}

	// Step 7.
	for i := range records {
		derive(&records[i])
	}

	res.Records = records
	res.Stats = summarize(records, res.Stats)
	res.Unmatched = unmatchedSellers(in.Sales, records)

	for _, u := range res.Unmatched {
		log.Warn("sales seller matched no employee",
			zap.String("seller", u.Name),
			zap.Float64("revenue", u.Revenue),
			zap.String("closest", u.Suggestion.String()))
	}
	for _, name := range res.Stats.NoSchedule {
		log.Warn("employee has no schedule row", zap.String("name", name))
	}
	log.Info("integration complete",
		zap.Int("employees", res.Stats.Employees),
		zap.Int("with_schedule", res.Stats.WithSchedule),
		zap.Int("with_sales", res.Stats.WithSales),
		zap.Int("with_orders", res.Stats.WithOrders),
		zap.Int("dropped", res.Stats.Dropped),
		zap.Int("shop", res.Stats.Shop),
		zap.Int("office", res.Stats.Office),
		zap.Int("fixed", res.Stats.Fixed))

	return res, nil
}

func attachSales(rec *types.IntegratedRecord, agg *types.SalesAggregate) {
	rec.HasSalesData = true
	rec.Revenue = toFloat(agg.Total.Total.Revenue)
	rec.Profit = toFloat(agg.Total.Total.Profit)
	rec.BonusRevenue = toFloat(agg.Total.Bonus.Revenue)
	rec.NonLiquidRevenue = toFloat(agg.Total.NonLiquid.Revenue)
	rec.WholesaleRevenue = toFloat(agg.Type(types.SaleWholesale).Total.Revenue)
	rec.RetailRevenue = toFloat(agg.Type(types.SaleRetailReceipt).Total.Revenue.
		Add(agg.Type(types.SaleRetailOther).Total.Revenue))
}

func attachOrders(rec *types.IntegratedRecord, ord types.OrderAggregate) {
	rec.HasOrderData = true
	rec.OrderedRevenue = toFloat(ord.Ordered.Revenue)
	rec.OrderedProfit = toFloat(ord.Ordered.Profit)
	rec.UnorderedRevenue = toFloat(ord.Unordered.Revenue)
	rec.UnorderedProfit = toFloat(ord.Unordered.Profit)
}

func attachRule(rec *types.IntegratedRecord, rule types.DepartmentRule, officeBase float64) {
	rec.HasRule = true
	rec.Base = rule.Base
	rec.OfficeBase = officeBase
	rec.Floor = rule.Floor
	rec.AverageWage = rule.AverageWage
	rec.CoefRegular = rule.CoefRegular
	rec.CoefBonus = rule.CoefBonus
	rec.CoefNonLiquid = rule.CoefNonLiquid
	rec.CoefWholesale = rule.CoefWholesale
	rec.Guarantee1 = rule.Guarantees[0]
	rec.Guarantee2 = rule.Guarantees[1]
	rec.Guarantee3 = rule.Guarantees[2]
	rec.Guarantee4 = rule.Guarantees[3]
	rec.Guarantee5 = rule.Guarantees[4]
	rec.NormType = rule.NormType
	rec.NonLiquidInPool = rule.NonLiquidInPool
	rec.NonLiquidPercent = rule.NonLiquidPercent
}

func resolveNorm(t types.NormType, fixed float64, norms Norms) float64 {
	switch t {
	case types.NormShop:
		return norms.Shop
	case types.NormOffice:
		return norms.Office
	case types.NormFixed:
		return fixed
	default:
		return 0
	}
}

func derive(rec *types.IntegratedRecord) {
	rec.PercentOfNorm = round1(rec.Hours / rec.Norm * 100)
	rec.HoursMet = rec.PercentOfNorm >= 100
	rec.HasSales = rec.Revenue > 0
	if rec.Revenue > 0 {
		rec.BonusRatio = round1(rec.BonusRevenue / rec.Revenue * 100)
	}
}

func summarize(records []types.IntegratedRecord, s Stats) Stats {
	s.Employees = len(records)
	for _, r := range records {
		if r.HasSchedule {
			s.WithSchedule++
		} else {
			s.NoSchedule = append(s.NoSchedule, r.Name)
		}
		if r.HasSales {
			s.WithSales++
		}
		if r.HasOrderData {
			s.WithOrders++
		}
		if r.HasRule {
			s.WithRule++
		}
		switch r.NormType {
		case types.NormShop:
			s.Shop++
		case types.NormOffice:
			s.Office++
		case types.NormFixed:
			s.Fixed++
		}
	}
	return s
}

// unmatchedSellers lists sellers with no record, each with the closest
// employee key. Sellers are returned in key order.
func unmatchedSellers(sales map[names.Key]*types.SalesAggregate, records []types.IntegratedRecord) []Unmatched {
	if len(sales) == 0 {
		return nil
	}

	joined := make(map[names.Key]bool, len(records))
	byLower := make(map[string]names.Key, len(records))
	candidates := make([]string, 0, len(records))
	for _, r := range records {
		joined[r.Key] = true
		lower := strings.ToLower(r.Key.String())
		if _, dup := byLower[lower]; !dup {
			byLower[lower] = r.Key
			candidates = append(candidates, lower)
		}
	}

	var cm *closestmatch.ClosestMatch
	if len(candidates) > 0 {
		cm = closestmatch.New(candidates, []int{2, 3})
	}

	var out []Unmatched
	for key, agg := range sales {
		if joined[key] || agg == nil {
			continue
		}
		u := Unmatched{Seller: key, Name: agg.Name, Revenue: toFloat(agg.Total.Total.Revenue)}
		if cm != nil {
			u.Suggestion = byLower[cm.Closest(strings.ToLower(key.String()))]
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seller < out[j].Seller })
	return out
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
