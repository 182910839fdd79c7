// Package hournorm derives the monthly hour norms fed to the integrator.
//
// The shop norm follows the calendar: a five-day, eight-hour week over the
// days of the reporting period, rounded down to 0.1 h. The office norm comes
// from the production calendar and is configured, not computed.
package hournorm

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ErrNoPeriod is returned when the text does not hold two dates.
var ErrNoPeriod = errors.New("period must contain a start and an end date")

var dateRe = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`)

// Date layouts by year length.
var layouts = map[int]string{
	2: "2.1.06",
	4: "2.1.2006",
}

// Period is an inclusive date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days, both ends included.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start)/(24*time.Hour)) + 1
}

// Month returns "2006-01" of the start date, for file names.
func (p Period) Month() string {
	return p.Start.Format("2006-01")
}

func (p Period) String() string {
	return p.Start.Format("02.01.2006") + " - " + p.End.Format("02.01.2006")
}

// IsZero reports whether p is unset.
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// ParsePeriod reads the first two dd.mm.yy or dd.mm.yyyy dates of text,
// e.g. "с 01.12.25 по 31.12.25".
func ParsePeriod(text string) (Period, error) {
	dates := dateRe.FindAllString(text, 2)
	if len(dates) < 2 {
		return Period{}, fmt.Errorf("%w: found %d in %q", ErrNoPeriod, len(dates), text)
	}

	start, err := parseDate(dates[0])
	if err != nil {
		return Period{}, err
	}
	end, err := parseDate(dates[1])
	if err != nil {
		return Period{}, err
	}
	if end.Before(start) {
		return Period{}, fmt.Errorf("period %q ends before it starts", text)
	}
	return Period{Start: start, End: end}, nil
}

func parseDate(s string) (time.Time, error) {
	year := s[strings.LastIndexByte(s, '.')+1:]
	layout, ok := layouts[len(year)]
	if !ok {
		return time.Time{}, fmt.Errorf("date %q: year must have 2 or 4 digits", s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

// ShopNorm returns days/7*5*8 rounded down to one decimal.
func ShopNorm(p Period) float64 {
	n := float64(p.Days()) / 7 * 5 * 8
	return math.Floor(n*10) / 10
}

// ShopNormFromText parses a period and returns its shop norm.
func ShopNormFromText(text string) (float64, Period, error) {
	p, err := ParsePeriod(text)
	if err != nil {
		return 0, Period{}, err
	}
	return ShopNorm(p), p, nil
}
