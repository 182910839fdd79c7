// =============================================================================
// Payroll Intake - Pipeline
// =============================================================================
//
// The pipeline runs one monthly intake: it loads the six source files, runs
// the matching parser on each and hands the parsed sources to the
// integrator. It owns ordering and concurrency; the parsers and the
// integrator stay synchronous and share no mutable state.
//
// PROCESSING PIPELINE:
//   1. Check that every required source file was supplied
//   2. Reference tables: item catalog and pay rules (they feed the ledgers)
//   3. Roster, attendance schedule and sales ledger, in parallel
//   4. Special-order ledger (needs the roster keys)
//   5. Stop with a joined report if any required source failed
//   6. Resolve the reporting period and the hour norms
//   7. Integrate
//
// FAILURE HANDLING:
//   Every source yields a SourceResult. A required source that fails stops
//   the run before integration, and every failed file is reported together.
//   The order ledger is optional: when it is missing or cannot be parsed the
//   run goes on without order figures unless continue_on_error is off.
//
// CONCURRENCY:
//   Stages 2 and 3 parse their files with errgroup, at most
//   max_concurrency at once. Cancelling the context stops new parses from
//   being scheduled; a parse already running finishes.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/payroll-intake/internal/attendance"
	"github.com/ginjaninja78/payroll-intake/internal/catalog"
	"github.com/ginjaninja78/payroll-intake/internal/config"
	"github.com/ginjaninja78/payroll-intake/internal/hournorm"
	"github.com/ginjaninja78/payroll-intake/internal/integrator"
	"github.com/ginjaninja78/payroll-intake/internal/names"
	"github.com/ginjaninja78/payroll-intake/internal/orders"
	"github.com/ginjaninja78/payroll-intake/internal/payrules"
	"github.com/ginjaninja78/payroll-intake/internal/roster"
	"github.com/ginjaninja78/payroll-intake/internal/sales"
	"github.com/ginjaninja78/payroll-intake/internal/sheet"
	"github.com/ginjaninja78/payroll-intake/internal/types"
	"github.com/ginjaninja78/payroll-intake/internal/validation"
)

var (
	// ErrMissingSource marks a source kind with no file.
	ErrMissingSource = errors.New("source file not supplied")

	// ErrDependency marks a source that was not parsed because a source it
	// depends on failed.
	ErrDependency = errors.New("dependency failed")
)

// Files maps each source kind to its file path.
type Files map[types.SourceKind]string

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// SourceResult is the outcome of one source file.
type SourceResult struct {
	Kind types.SourceKind
	File string

	// Err is nil on success. Structural failures are *validation.StructuralError.
	Err error

	// Records is the number of records extracted.
	Records int
	Skipped validation.Skips
	Elapsed time.Duration
}

// Success reports whether the source was parsed.
func (r SourceResult) Success() bool {
	return r.Err == nil
}

// Extraction holds every parsed source. A field is nil when its source was
// not supplied or failed.
type Extraction struct {
	Catalog    *catalog.Result
	PayRules   *payrules.Result
	Roster     *roster.Result
	Attendance *attendance.Result
	Sales      *sales.Result
	Orders     *orders.Result

	// Sources is in types.SourceKinds order.
	Sources []SourceResult
}

// Source returns the outcome of one source kind.
func (e *Extraction) Source(kind types.SourceKind) SourceResult {
	for _, s := range e.Sources {
		if s.Kind == kind {
			return s
		}
	}
	return SourceResult{Kind: kind}
}

// Issues returns the row-level issues of every parsed source.
func (e *Extraction) Issues() []*validation.Issue {
	var out []*validation.Issue
	if e.Roster != nil {
		out = append(out, e.Roster.Issues.List...)
	}
	if e.Attendance != nil {
		out = append(out, e.Attendance.Issues.List...)
	}
	if e.Orders != nil {
		out = append(out, e.Orders.Issues.List...)
	}
	return out
}

// Failures returns the error of every failed source, labelled with its file.
func (e *Extraction) Failures() []error {
	return e.failures(func(types.SourceKind) bool { return true })
}

func (e *Extraction) failures(include func(types.SourceKind) bool) []error {
	var errs []error
	for _, s := range e.Sources {
		if s.Err == nil || !include(s.Kind) {
			continue
		}
		if s.File == "" {
			errs = append(errs, s.Err)
			continue
		}
		errs = append(errs, fmt.Errorf("%s (%s): %w", s.Kind, filepath.Base(s.File), s.Err))
	}
	return errs
}

// Result is one pipeline run.
type Result struct {
	Extraction  *Extraction
	Integration *integrator.Result

	// Period is zero when no period text could be parsed.
	Period     hournorm.Period
	PeriodText string
	Norms      integrator.Norms

	// Degraded is set when the run went on without order figures.
	Degraded bool

	Elapsed time.Duration
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline runs intakes with one configuration.
type Pipeline struct {
	cfg    *config.MainConfig
	vocab  config.Vocabulary
	logger *zap.Logger

	shopNorm   float64
	officeNorm float64
	period     string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithVocabulary replaces the default vocabulary.
func WithVocabulary(v config.Vocabulary) Option {
	return func(p *Pipeline) {
		p.vocab = v
	}
}

// WithShopNorm overrides the shop norm. 0 keeps the configured or derived one.
func WithShopNorm(hours float64) Option {
	return func(p *Pipeline) {
		p.shopNorm = hours
	}
}

// WithOfficeNorm overrides the office norm. 0 keeps the configured one.
func WithOfficeNorm(hours float64) Option {
	return func(p *Pipeline) {
		p.officeNorm = hours
	}
}

// WithPeriod overrides the period text read from the schedule.
func WithPeriod(text string) Option {
	return func(p *Pipeline) {
		p.period = text
	}
}

// New creates a pipeline. A nil cfg means config.Default().
func New(cfg *config.MainConfig, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{cfg: cfg, vocab: config.DefaultVocabulary(), logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run runs New(cfg, opts...).Run(ctx, files).
func Run(ctx context.Context, cfg *config.MainConfig, files Files, opts ...Option) (*Result, error) {
	return New(cfg, opts...).Run(ctx, files)
}

// Run performs one intake.
//
// RETURNS:
//   - The result. It is returned on failure too, so callers can report the
//     per-source outcomes.
//   - An error joining every failed required source, an error from the
//     integrator (*validation.UnresolvedNormError), or ctx.Err().
func (p *Pipeline) Run(ctx context.Context, files Files) (*Result, error) {
	startTime := time.Now()
	res := &Result{}

	// =========================================================================
	// STEP 1: CHECK SOURCES
	// =========================================================================

	var missing []types.SourceKind
	for _, k := range types.SourceKinds {
		if files[k] == "" && k.Required() {
			missing = append(missing, k)
		}
	}

	// =========================================================================
	// STEPS 2-4: EXTRACT
	// =========================================================================

	ext, err := p.Extract(ctx, files)
	res.Extraction = ext
	if err != nil {
		return res, err
	}
	for i := range ext.Sources {
		for _, k := range missing {
			if ext.Sources[i].Kind == k {
				ext.Sources[i].Err = fmt.Errorf("%w: %s", ErrMissingSource, k)
			}
		}
	}

	// =========================================================================
	// STEP 5: REQUIRED SOURCES
	// =========================================================================

	failed := ext.failures(func(k types.SourceKind) bool { return k.Required() })
	if len(failed) > 0 {
		for _, f := range failed {
			p.logger.Error("source failed", zap.Error(f))
		}
		res.Elapsed = time.Since(startTime)
		return res, errors.Join(failed...)
	}

	ord := ext.Source(types.SourceOrders)
	if ord.Err != nil {
		res.Degraded = true
		if ord.File != "" && !p.continueOnError() {
			return res, fmt.Errorf("orders (%s): %w", filepath.Base(ord.File), ord.Err)
		}
		p.logger.Warn("continuing without order figures", zap.String("file", ord.File), zap.Error(ord.Err))
	} else if ext.Orders == nil {
		res.Degraded = true
		p.logger.Warn("orders ledger not supplied, continuing without order figures")
	}

	// =========================================================================
	// STEP 6: PERIOD AND NORMS
	// =========================================================================

	res.Period, res.PeriodText = p.resolvePeriod(ext)
	res.Norms = p.resolveNorms(res.Period)
	p.logger.Info("hour norms resolved",
		zap.String("period", res.PeriodText),
		zap.Float64("shop", res.Norms.Shop),
		zap.Float64("office", res.Norms.Office))

	// =========================================================================
	// STEP 7: INTEGRATE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return res, err
	}

	in := integrator.Inputs{
		Roster:      ext.Roster.Records,
		Attendance:  ext.Attendance.Records,
		Sales:       ext.Sales.Sellers,
		Rules:       ext.PayRules.Rules,
		OfficeBase:  ext.PayRules.OfficeBase,
		Unspecified: p.vocab.Roster.Unspecified,
	}
	if ext.Orders != nil {
		in.Orders = ext.Orders.Sellers
	}

	integ, err := integrator.New(integrator.WithLogger(p.logger)).Integrate(in, res.Norms)
	res.Integration = integ
	res.Elapsed = time.Since(startTime)
	if err != nil {
		return res, fmt.Errorf("integration failed: %w", err)
	}

	p.logger.Info("intake complete",
		zap.String("run_id", integ.RunID.String()),
		zap.Int("records", len(integ.Records)),
		zap.Int("unmatched_sellers", len(integ.Unmatched)),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}

// Extract loads and parses every supplied file without integrating. Files
// that are absent are left out; their SourceResult has an empty File and a
// nil Err.
//
// The returned error is non-nil only when ctx is cancelled.
func (p *Pipeline) Extract(ctx context.Context, files Files) (*Extraction, error) {
	st := &state{
		files:   files,
		results: make(map[types.SourceKind]*SourceResult, len(types.SourceKinds)),
	}
	for _, k := range types.SourceKinds {
		st.results[k] = &SourceResult{Kind: k, File: files[k]}
	}

	if err := p.stage(ctx, st, types.SourceCatalog, types.SourcePayRules); err != nil {
		return st.extraction(), err
	}
	if err := p.stage(ctx, st, types.SourceRoster, types.SourceAttendance, types.SourceSales); err != nil {
		return st.extraction(), err
	}

	if files[types.SourceOrders] != "" && st.roster == nil && files[types.SourceRoster] != "" {
		st.results[types.SourceOrders].Err = fmt.Errorf("%w: roster", ErrDependency)
	} else if err := p.stage(ctx, st, types.SourceOrders); err != nil {
		return st.extraction(), err
	}

	return st.extraction(), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// state holds the parsed sources of one run. Each parse goroutine writes
// only its own field; later stages read them after the previous Wait.
type state struct {
	files   Files
	results map[types.SourceKind]*SourceResult

	catalog    *catalog.Result
	payRules   *payrules.Result
	roster     *roster.Result
	attendance *attendance.Result
	sales      *sales.Result
	orders     *orders.Result
}

func (st *state) extraction() *Extraction {
	e := &Extraction{
		Catalog:    st.catalog,
		PayRules:   st.payRules,
		Roster:     st.roster,
		Attendance: st.attendance,
		Sales:      st.sales,
		Orders:     st.orders,
	}
	for _, k := range types.SourceKinds {
		e.Sources = append(e.Sources, *st.results[k])
	}
	return e
}

// stage parses the given kinds concurrently. Absent files are skipped.
func (p *Pipeline) stage(ctx context.Context, st *state, kinds ...types.SourceKind) error {
	limit := p.cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, k := range kinds {
		src := st.results[k]
		if src.File == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			begin := time.Now()
			src.Err = p.parse(st, src)
			src.Elapsed = time.Since(begin)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) sheetOptions() sheet.Options {
	return sheet.Options{Encoding: p.cfg.Encoding, Delimiter: p.cfg.CSVDelimiter}
}

// parse loads one file and runs its parser.
func (p *Pipeline) parse(st *state, src *SourceResult) error {
	log := p.logger.With(zap.String("source", string(src.Kind)), zap.String("file", filepath.Base(src.File)))

	s, err := sheet.Load(src.File, p.sheetOptions())
	if err != nil {
		log.Error("failed to load sheet", zap.Error(err))
		return fmt.Errorf("failed to load sheet: %w", err)
	}

	switch src.Kind {
	case types.SourceCatalog:
		res, err := catalog.New(p.vocab.Catalog, catalog.WithLogger(log)).Parse(s)
		if err != nil {
			return err
		}
		st.catalog = res
		src.Records, src.Skipped = len(res.Items), res.Skipped

	case types.SourcePayRules:
		res, err := payrules.New(p.vocab.PayRules,
			payrules.WithLogger(log),
			payrules.WithScalarCell(p.cfg.PayRuleScalarCell)).Parse(s)
		if err != nil {
			return err
		}
		st.payRules = res
		src.Records, src.Skipped = len(res.Rules), res.Skipped

	case types.SourceRoster:
		res, err := roster.New(p.vocab.Roster, roster.WithLogger(log)).Parse(s)
		if err != nil {
			return err
		}
		st.roster = res
		src.Records, src.Skipped = len(res.Records), res.Skipped

	case types.SourceAttendance:
		res, err := attendance.New(p.vocab.Attendance, attendance.WithLogger(log)).Parse(s)
		if err != nil {
			return err
		}
		st.attendance = res
		src.Records, src.Skipped = len(res.Records), res.Skipped

	case types.SourceSales:
		var cat types.Catalog
		if st.catalog != nil {
			cat = st.catalog.Catalog
		}
		res, err := sales.New(p.vocab.Sales, sales.WithLogger(log)).Parse(s, cat, st.exclusions())
		if err != nil {
			return err
		}
		st.sales = res
		src.Records, src.Skipped = len(res.Sellers), res.Skipped

	case types.SourceOrders:
		var keys []names.Key
		if st.roster != nil {
			keys = st.roster.Keys()
		}
		res, err := orders.New(p.vocab.Orders, orders.WithLogger(log)).Parse(s, keys, st.exclusions())
		if err != nil {
			return err
		}
		st.orders = res
		src.Records, src.Skipped = len(res.Sellers), res.Skipped

	default:
		return fmt.Errorf("unknown source kind %q", src.Kind)
	}
	return nil
}

func (st *state) exclusions() []string {
	if st.payRules == nil {
		return nil
	}
	return st.payRules.Exclusions
}

func (p *Pipeline) continueOnError() bool {
	return p.cfg.ContinueOnError == nil || *p.cfg.ContinueOnError
}

// resolvePeriod returns the first parsable period of: the override, the
// schedule period cell, the sales ledger period cell.
func (p *Pipeline) resolvePeriod(ext *Extraction) (hournorm.Period, string) {
	candidates := []string{p.period}
	if ext.Attendance != nil {
		candidates = append(candidates, ext.Attendance.Period)
	}
	if ext.Sales != nil {
		candidates = append(candidates, ext.Sales.Period)
	}
	for _, text := range candidates {
		if text == "" {
			continue
		}
		period, err := hournorm.ParsePeriod(text)
		if err != nil {
			p.logger.Warn("period not parsable", zap.String("text", text), zap.Error(err))
			continue
		}
		return period, text
	}
	return hournorm.Period{}, ""
}

// resolveNorms applies, in order: option overrides, configured values and
// for the shop norm the calendar of the period.
func (p *Pipeline) resolveNorms(period hournorm.Period) integrator.Norms {
	n := integrator.Norms{Shop: p.shopNorm, Office: p.officeNorm}
	if n.Shop == 0 {
		n.Shop = p.cfg.Norms.ShopHours
	}
	if n.Shop == 0 && !period.IsZero() {
		n.Shop = hournorm.ShopNorm(period)
	}
	if n.Office == 0 {
		n.Office = p.cfg.Norms.OfficeHours
	}
	if n.Shop == 0 {
		p.logger.Warn("shop norm unresolved: no override and no period")
	}
	return n
}
