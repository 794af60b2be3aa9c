package flow

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
)

const isoDate = "2006-01-02"

var (
	rangeSeparator = regexp.MustCompile(`(?i)^\s*(.+?)\s+(?:to|until|-|–)\s+(.+?)\s*$`)
	hourSeparator  = regexp.MustCompile(`(?i)^\s*(.+?)\s*(?:\bto\b|-|–)\s*(.+?)\s*$`)

	fullDateLayouts  = []string{"02/01/2006", "2/1/2006", isoDate}
	shortDateLayouts = []string{"02/01", "2/1"}
	clockLayouts     = []string{"15:04", "3:04pm", "3:04 pm", "3pm", "3 pm"}
)

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days in the range
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// SingleDay reports whether start and end are the same day
func (r DateRange) SingleDay() bool {
	return r.Start.Equal(r.End)
}

func (r DateRange) String() string {
	if r.SingleDay() {
		return r.Start.Format(isoDate)
	}
	return r.Start.Format(isoDate) + " to " + r.End.Format(isoDate)
}

// Today returns the calendar day of now, as a UTC midnight
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts DD/MM/YYYY, ISO YYYY-MM-DD and DD/MM (current year)
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range fullDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range shortDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			// reject 29/02 rolling into March on non-leap years
			if d.Month() != t.Month() {
				break
			}
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", apperr.ErrMalformedInput, s)
}

// ParseDateRange accepts "A to B", "A - B" or a single date, which becomes a one-day range.
// It fails when end is before start.
func ParseDateRange(s string, now time.Time) (DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateRange{}, fmt.Errorf("%w: empty date range", apperr.ErrMalformedInput)
	}

	var r DateRange
	if m := rangeSeparator.FindStringSubmatch(s); m != nil {
		start, err := ParseDate(m[1], now)
		if err != nil {
			return DateRange{}, err
		}
		end, err := ParseDate(m[2], now)
		if err != nil {
			return DateRange{}, err
		}
		r = DateRange{Start: start, End: end}
	} else {
		day, err := ParseDate(s, now)
		if err != nil {
			return DateRange{}, err
		}
		r = DateRange{Start: day, End: day}
	}

	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end date is before start date", apperr.ErrMalformedInput)
	}
	return r, nil
}

// Clock is a time of day in minutes after midnight
type Clock int

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseClock accepts 24h HH:MM and simple am/pm forms
func ParseClock(s string) (Clock, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognised time %q", apperr.ErrMalformedInput, s)
}

// HourRange is a same-day interval
type HourRange struct {
	From Clock
	To   Clock
}

// Hours returns the length of the range in hours
func (h HourRange) Hours() float64 {
	return float64(h.To-h.From) / 60
}

// NewHourRange parses both ends; to must be after from
func NewHourRange(from, to string) (HourRange, error) {
	f, err := ParseClock(from)
	if err != nil {
		return HourRange{}, err
	}
	t, err := ParseClock(to)
	if err != nil {
		return HourRange{}, err
	}
	if t <= f {
		return HourRange{}, fmt.Errorf("%w: end time must be after start time", apperr.ErrMalformedInput)
	}
	return HourRange{From: f, To: t}, nil
}

// ParseHourRange accepts "17:00 to 19:00" or "17:00-19:00"
func ParseHourRange(s string) (HourRange, error) {
	m := hourSeparator.FindStringSubmatch(s)
	if m == nil {
		return HourRange{}, fmt.Errorf("%w: unrecognised hour range %q", apperr.ErrMalformedInput, s)
	}
	return NewHourRange(m[1], m[2])
}

// ParseAmount parses a positive money amount into cents
func ParseAmount(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	for _, cut := range []string{",", "$", "€", "£", "AED", "SAR", "USD"} {
		cleaned = strings.ReplaceAll(cleaned, cut, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !finite(v) || v <= 0 || v > 1_000_000 {
		return 0, fmt.Errorf("%w: invalid amount %q", apperr.ErrMalformedInput, s)
	}
	cents := int64(math.Round(v * 100))
	if cents <= 0 {
		return 0, fmt.Errorf("%w: amount %q rounds to zero", apperr.ErrMalformedInput, s)
	}
	return cents, nil
}

// FormatCents renders cents as a decimal string
func FormatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// ParseWorkHours accepts a decimal (1.5) or H:MM, within (0, 24]
func ParseWorkHours(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "h"))
	var hours float64
	if h, m, ok := strings.Cut(s, ":"); ok {
		hi, err1 := strconv.Atoi(h)
		mi, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || mi < 0 || mi >= 60 {
			return 0, fmt.Errorf("%w: invalid hours %q", apperr.ErrMalformedInput, s)
		}
		hours = float64(hi) + float64(mi)/60
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(v) {
			return 0, fmt.Errorf("%w: invalid hours %q", apperr.ErrMalformedInput, s)
		}
		hours = v
	}
	hours = math.Round(hours*100) / 100
	if hours <= 0 || hours > 24 {
		return 0, fmt.Errorf("%w: hours must be between 0 and 24", apperr.ErrMalformedInput)
	}
	return hours, nil
}

// finite rejects the NaN and Inf spellings strconv.ParseFloat accepts
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
