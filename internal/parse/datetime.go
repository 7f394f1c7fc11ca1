package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultHour is the time of day assumed when only a date is given.
const DefaultHour = 9

var exactDateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04",
	"02.01.2006 15:04",
}

var (
	clockRe = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
	hourRe  = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?$`)
)

// connectors introduce a time of day: "tomorrow at 10", "domani alle 10".
var connectors = map[string]bool{
	"at":   true,
	"@":    true,
	"alle": true,
	"ore":  true,
	"h":    true,
}

// ParseDateTime parses text as a local timestamp in now's location.
func ParseDateTime(text string, now time.Time) (time.Time, error) {
	loc := now.Location()
	raw := strings.Join(strings.Fields(text), " ")
	if raw == "" {
		return time.Time{}, &Error{Input: text, Expected: ExpectedDateTime}
	}
	s := strings.ToLower(raw)

	for _, layout := range exactDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}

	if offset, ok := relativeDays[s]; ok {
		return DateOf(now).AddDays(offset).At(DefaultHour, 0, loc), nil
	}

	tokens := make([]string, 0, 4)
	hasConnector := false
	for _, tok := range strings.Fields(s) {
		if connectors[tok] {
			hasConnector = true
			continue
		}
		tokens = append(tokens, tok)
	}

	switch {
	case len(tokens) == 1 && clockRe.MatchString(tokens[0]):
		// Bare time of day means today.
		if h, m, ok := timeOfDay(tokens[0]); ok {
			return DateOf(now).At(h, m, loc), nil
		}
	case len(tokens) == 1 && hasConnector:
		if h, m, ok := timeOfDay(tokens[0]); ok {
			return DateOf(now).At(h, m, loc), nil
		}
	case len(tokens) >= 2:
		last := tokens[len(tokens)-1]
		if h, m, ok := timeOfDay(last); ok {
			if d, err := ParseDate(strings.Join(tokens[:len(tokens)-1], " "), now); err == nil {
				return d.At(h, m, loc), nil
			}
		}
	}

	// Fall back to a date alone at the default hour.
	if d, err := ParseDate(strings.Join(tokens, " "), now); err == nil {
		return d.At(DefaultHour, 0, loc), nil
	}
	return time.Time{}, &Error{Input: text, Expected: ExpectedDateTime}
}

func timeOfDay(s string) (hour, minute int, ok bool) {
	m := hourRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
