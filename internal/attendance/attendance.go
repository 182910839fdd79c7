// =============================================================================
// Payroll Intake - Attendance Parser
// =============================================================================
//
// The attendance schedule is a day-by-day grid: one row per employee, one
// column per day holding worked hours or a letter code, and a total-hours
// column somewhere to the right.
//
// PROCESSING PIPELINE:
//   1. Period:       first cell in the first 10 rows containing "с " and
//                    " по " (optional)
//   2. Header row:   first row with a "сотрудник" or "фио" cell (required)
//   3. Hours column: a cell in the header row or the two rows below it that
//                    contains both "итого" and "час" (required)
//   4. Rows:         the employee name is the first cell with at least two
//                    words, no digit among its first five characters, and
//                    not starting with "итого"
//
// DAY CODES (after upper-casing, first rule wins):
//   exactly "Н"              -> absence
//   contains "О", length <=2 -> vacation
//   contains "В", length <=2 -> day off
//   contains "Б", length <=2 -> sick
//
// =============================================================================

package attendance

import (
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

const (
	periodScanRows = 10
	hoursScanDepth = 3
	nameDigitSpan  = 5
	maxCodeLen     = 2
)

// Result is the parsed schedule.
type Result struct {
	// Period is the raw period text, "" when not found.
	Period    string
	PeriodRow int

	HeaderRow int
	HoursCol  int

	Records []types.AttendanceRecord

	Skipped validation.Skips
	Issues  validation.Issues
}

// Parser parses attendance schedules.
type Parser struct {
	vocab  config.AttendanceVocabulary
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

// New creates an attendance parser.
func New(vocab config.AttendanceVocabulary, opts ...Option) *Parser {
	p := &Parser{vocab: vocab, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse extracts per-employee hours and day-code counts.
func (p *Parser) Parse(s *types.RawSheet) (*Result, error) {
	res := &Result{
		PeriodRow: -1,
		Skipped:   validation.Skips{},
		Issues:    validation.Issues{Source: types.SourceAttendance, File: s.Source},
	}

	if r, c, ok := schema.FindCell(s, 0, periodScanRows, func(cell string) bool {
		return schema.ContainsAll(cell, p.vocab.PeriodMarkers)
	}); ok {
		res.Period, res.PeriodRow = s.Cell(r, c), r
	}

	res.HeaderRow = schema.FindHeaderRow(s, [][]string{p.vocab.HeaderKeywords}, 1, s.Len())
	if res.HeaderRow < 0 {
		return nil, validation.NewStructuralError(types.SourceAttendance, s.Source, "header row not found").
			WithHint("looked for a cell containing one of %v", p.vocab.HeaderKeywords)
	}

	res.HoursCol = p.findHoursColumn(s, res.HeaderRow)
	if res.HoursCol < 0 {
		return nil, validation.NewStructuralError(types.SourceAttendance, s.Source, "total hours column not found").
			At(res.HeaderRow, -1).
			WithMissing("hours").
			WithHint("looked for a header containing all of %v in rows %d-%d",
				p.vocab.HoursKeywords, res.HeaderRow+1, res.HeaderRow+hoursScanDepth)
	}

	for r := res.HeaderRow + 1; r < s.Len(); r++ {
		rec, ok := p.parseRow(s, r, res.HoursCol)
		if !ok {
			res.Skipped.Add("no_name")
			continue
		}
		res.Records = append(res.Records, rec)
	}

	p.logger.Info("attendance parsed",
		zap.String("file", s.Source),
		zap.String("period", res.Period),
		zap.Int("header_row", res.HeaderRow+1),
		zap.String("hours_column", sheet.CellName(res.HeaderRow, res.HoursCol)),
		zap.Int("employees", len(res.Records)),
		zap.Int("skipped", res.Skipped.Total()))

	return res, nil
}

// findHoursColumn scans column by column, each through the header row and
// the rows just below it.
func (p *Parser) findHoursColumn(s *types.RawSheet, headerRow int) int {
	for c := 0; c < s.Width(); c++ {
		for r := headerRow; r < headerRow+hoursScanDepth && r < s.Len(); r++ {
			if schema.ContainsAll(s.Cell(r, c), p.vocab.HoursKeywords) {
				return c
			}
		}
	}
	return -1
}

func (p *Parser) parseRow(s *types.RawSheet, r, hoursCol int) (types.AttendanceRecord, bool) {
	row := s.Row(r)

	nameCol := -1
	for c, cell := range row {
		if p.isName(cell) {
			nameCol = c
			break
		}
	}
	if nameCol < 0 {
		return types.AttendanceRecord{}, false
	}

	name := names.Collapse(row[nameCol])
	rec := types.AttendanceRecord{
		Name:  name,
		Key:   names.Normalize(name),
		Hours: sheet.ParseNumber(s.Cell(r, hoursCol)),
		Row:   r + 1,
	}

	for c, cell := range row {
		if c == hoursCol || c == nameCol {
			continue
		}
		switch p.classify(cell) {
		case codeAbsence:
			rec.Absence++
		case codeVacation:
			rec.Vacation++
		case codeDayOff:
			rec.DaysOff++
		case codeSick:
			rec.Sick++
		}
	}

	return rec, true
}

func (p *Parser) isName(cell string) bool {
	cell = strings.TrimSpace(cell)
	if names.WordCount(cell) < 2 {
		return false
	}
	prefix := []rune(cell)
	if len(prefix) > nameDigitSpan {
		prefix = prefix[:nameDigitSpan]
	}
	for _, r := range prefix {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return !strings.HasPrefix(strings.ToLower(cell), p.vocab.TotalPrefix)
}

type dayCode int

const (
	codeNone dayCode = iota
	codeAbsence
	codeVacation
	codeDayOff
	codeSick
)

func (p *Parser) classify(cell string) dayCode {
	code := strings.ToUpper(strings.TrimSpace(cell))
	if code == "" {
		return codeNone
	}
	if code == p.vocab.AbsenceCode {
		return codeAbsence
	}
	if utf8.RuneCountInString(code) > maxCodeLen {
		return codeNone
	}
	switch {
	case strings.Contains(code, p.vocab.VacationCode):
		return codeVacation
	case strings.Contains(code, p.vocab.DayOffCode):
		return codeDayOff
	case strings.Contains(code, p.vocab.SickCode):
		return codeSick
	}
	return codeNone
}
