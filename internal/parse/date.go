// Package parse turns loosely formatted chat input into canonical dates,
// timestamps, odometer readings and money amounts.
//
// Every ambiguous form resolves through a fixed order: exact layout,
// relative keyword, lenient separator-normalized match, and (for
// timestamps) date-only with the default time. Unparseable input always
// yields an *Error, never a guess.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate validates and builds a calendar date.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// ParseISODate parses a strict YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return Date{}, &Error{Input: s, Expected: ExpectedDate}
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// At returns the instant at hour:minute on d in loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.At(12, 0, time.UTC).AddDate(0, 0, n))
}

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dayFirstRe    = regexp.MustCompile(`^(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{4}|\d{2})$`)
	nonDigitRunRe = regexp.MustCompile(`\D+`)
)

// relativeDays maps localized keywords to an offset from today.
var relativeDays = map[string]int{
	"today":     0,
	"oggi":      0,
	"tomorrow":  1,
	"domani":    1,
	"yesterday": -1,
	"ieri":      -1,
}

// ParseDate parses text as a calendar date. Relative keywords resolve
// against now.
func ParseDate(text string, now time.Time) (Date, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Date{}, &Error{Input: text, Expected: ExpectedDate}
	}

	if d, ok := exactDate(s); ok {
		return d, nil
	}
	if offset, ok := relativeDays[s]; ok {
		return DateOf(now).AddDays(offset), nil
	}
	if d, ok := lenientDate(s); ok {
		return d, nil
	}
	return Date{}, &Error{Input: text, Expected: ExpectedDate}
}

func exactDate(s string) (Date, bool) {
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return Date{}, false
		}
		return buildDate(m[5], m[3], m[1])
	}
	return Date{}, false
}

// lenientDate accepts any non-digit separators, including mixed ones and
// whitespace, in either year-first or day-first order.
func lenientDate(s string) (Date, bool) {
	parts := strings.Split(strings.Trim(nonDigitRunRe.ReplaceAllString(s, "/"), "/"), "/")
	if len(parts) != 3 {
		return Date{}, false
	}
	if len(parts[0]) == 4 {
		if len(parts[1]) > 2 || len(parts[2]) > 2 {
			return Date{}, false
		}
		return buildDate(parts[0], parts[1], parts[2])
	}
	if len(parts[0]) > 2 || len(parts[1]) > 2 {
		return Date{}, false
	}
	if len(parts[2]) != 2 && len(parts[2]) != 4 {
		return Date{}, false
	}
	return buildDate(parts[2], parts[1], parts[0])
}

func buildDate(yearStr, monthStr, dayStr string) (Date, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Date{}, false
	}
	if len(yearStr) == 2 {
		year += 2000
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return Date{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return Date{}, false
	}
	return NewDate(year, time.Month(month), day)
}
