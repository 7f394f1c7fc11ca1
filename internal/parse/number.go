package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	digitsRe = regexp.MustCompile(`^\d+$`)
	amountRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

	// "1.500" and "1,500" group thousands; "0,005" does not.
	groupedRe = regexp.MustCompile(`^[1-9]\d{0,2}[.,]\d{3}$`)
)

var groupingReplacer = strings.NewReplacer(
	".", "",
	",", "",
	" ", "",
	"'", "",
	"_", "",
	"\u00a0", "",
	"\u202f", "",
)

// ParseQuantity parses an odometer reading or threshold. Grouping
// separators (dot, comma, space, apostrophe) and a trailing "km" are
// ignored.
func ParseQuantity(text string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSpace(strings.TrimSuffix(s, "km"))
	s = groupingReplacer.Replace(s)
	if !digitsRe.MatchString(s) {
		return 0, &Error{Input: text, Expected: ExpectedQuantity}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &Error{Input: text, Expected: ExpectedQuantity}
	}
	return n, nil
}

var currencyReplacer = strings.NewReplacer(
	"€", "",
	"$", "",
	"£", "",
	"eur", "",
	"usd", "",
	"gbp", "",
	" ", "",
	"\u00a0", "",
	"\u202f", "",
)

// ParseCurrency parses a non-negative money amount with at most two
// decimals. Either comma or dot may be the decimal separator; when both
// appear, the last one is. A single separator followed by exactly three
// digits groups thousands. Amounts are never rounded: more decimals are
// rejected.
func ParseCurrency(text string) (decimal.Decimal, error) {
	s := currencyReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.Zero, &Error{Input: text, Expected: ExpectedCurrency}
	}
	s = strings.TrimPrefix(s, "+")
	if groupedRe.MatchString(s) {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if !amountRe.MatchString(s) {
		return decimal.Zero, &Error{Input: text, Expected: ExpectedCurrency}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &Error{Input: text, Expected: ExpectedCurrency}
	}
	return d, nil
}
