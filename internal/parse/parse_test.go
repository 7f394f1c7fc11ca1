package parse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rome = mustLocation("Europe/Rome")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 3600)
	}
	return loc
}

// Wednesday 2025-08-20 15:42 local.
var now = time.Date(2025, 8, 20, 15, 42, 0, 0, rome)

func TestParseDate_SeparatorAndYearVariants(t *testing.T) {
	want := Date{Year: 2025, Month: time.August, Day: 22}
	inputs := []string{
		"2025-08-22",
		"22/08/2025",
		"22-08-2025",
		"22.08.2025",
		"22/8/2025",
		"22/08/25",
		"22-08-25",
		"  22/08/2025  ",
		"22 08 2025",
		"22/08-2025",
		"2025/08/22",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in, now)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, "2025-08-22", got.String())
		})
	}
}

func TestParseDate_SingleDigitDayMonth(t *testing.T) {
	got, err := ParseDate("3/9/2024", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-03", got.String())
}

func TestParseDate_Keywords(t *testing.T) {
	cases := map[string]string{
		"today":     "2025-08-20",
		"Oggi":      "2025-08-20",
		"tomorrow":  "2025-08-21",
		"DOMANI":    "2025-08-21",
		"yesterday": "2025-08-19",
		"ieri":      "2025-08-19",
	}
	for in, want := range cases {
		got, err := ParseDate(in, now)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}

func TestParseDate_KeywordCrossesMonth(t *testing.T) {
	endOfMonth := time.Date(2025, 8, 31, 23, 30, 0, 0, rome)
	got, err := ParseDate("tomorrow", endOfMonth)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01", got.String())
}

func TestParseDate_Invalid(t *testing.T) {
	inputs := []string{"", "   ", "hello", "31/02/2025", "2025-13-01", "32/01/2025", "22/08", "123/08/2025", "22/08/202"}
	for _, in := range inputs {
		_, err := ParseDate(in, now)
		var perr *Error
		require.Error(t, err, in)
		require.True(t, errors.As(err, &perr), in)
		assert.Equal(t, ExpectedDate, perr.Expected)
	}
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-08-22 10:30", time.Date(2025, 8, 22, 10, 30, 0, 0, rome)},
		{"22/08/2025 10:30", time.Date(2025, 8, 22, 10, 30, 0, 0, rome)},
		{"22/08/25 7:05", time.Date(2025, 8, 22, 7, 5, 0, 0, rome)},
		{"22-08-2025 18.15", time.Date(2025, 8, 22, 18, 15, 0, 0, rome)},
		{"22/08/2025 18", time.Date(2025, 8, 22, 18, 0, 0, 0, rome)},
		{"22/08/2025 at 18", time.Date(2025, 8, 22, 18, 0, 0, 0, rome)},
		{"domani alle 10", time.Date(2025, 8, 21, 10, 0, 0, 0, rome)},
		{"tomorrow at 10:45", time.Date(2025, 8, 21, 10, 45, 0, 0, rome)},
		{"tomorrow", time.Date(2025, 8, 21, 9, 0, 0, 0, rome)},
		{"today", time.Date(2025, 8, 20, 9, 0, 0, 0, rome)},
		{"22/08/2025", time.Date(2025, 8, 22, 9, 0, 0, 0, rome)},
		{"22 08 2025", time.Date(2025, 8, 22, 9, 0, 0, 0, rome)},
		{"18:30", time.Date(2025, 8, 20, 18, 30, 0, 0, rome)},
		{"at 7", time.Date(2025, 8, 20, 7, 0, 0, 0, rome)},
		{"2025-08-22T06:00", time.Date(2025, 8, 22, 6, 0, 0, 0, rome)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDateTime(tc.in, now)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %v want %v", got, tc.want)
			assert.Equal(t, rome, got.Location())
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	inputs := []string{"", "soon", "22/08/2025 25:00", "10", "tomorrow at 99", "31/02/2025 10:00"}
	for _, in := range inputs {
		_, err := ParseDateTime(in, now)
		var perr *Error
		require.True(t, errors.As(err, &perr), in)
		assert.Equal(t, ExpectedDateTime, perr.Expected)
	}
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]int64{
		"123456":     123456,
		"123.456":    123456,
		"123,456":    123456,
		"123 456":    123456,
		"1.234.567":  1234567,
		" 10000 km ": 10000,
		"10000km":    10000,
		"0":          0,
		"12'500":     12500,
	}
	for in, want := range cases {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseQuantity_Invalid(t *testing.T) {
	inputs := []string{"", "-", "abc", "-5", "12a", "99999999999999999999999"}
	for _, in := range inputs {
		_, err := ParseQuantity(in)
		var perr *Error
		require.True(t, errors.As(err, &perr), in)
		assert.Equal(t, ExpectedQuantity, perr.Expected)
	}
}

func TestParseCurrency(t *testing.T) {
	cases := map[string]string{
		"120.50":    "120.5",
		"120,50":    "120.5",
		"€ 89,90":   "89.9",
		"89.90€":    "89.9",
		"$15":       "15",
		"1.234,56":  "1234.56",
		"1,234.56":  "1234.56",
		"1.234.567": "1234567",
		"0":         "0",
		"45 EUR":    "45",
		"€1.500":    "1500",
		"1,500":     "1500",
		"1.234":     "1234",
		"0,05":      "0.05",
		"999.999":   "999999",
	}
	for in, want := range cases {
		got, err := ParseCurrency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}

func TestParseCurrency_Invalid(t *testing.T) {
	inputs := []string{"", "€", "-10", "ten", "1.2.3,4,5", "12,5a", "0,005", "1.2345", "12345.678", "1.234,567", "0.123"}
	for _, in := range inputs {
		_, err := ParseCurrency(in)
		var perr *Error
		require.True(t, errors.As(err, &perr), in)
		assert.Equal(t, ExpectedCurrency, perr.Expected)
	}
}

func TestDate_AtAndAddDays(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, time.Date(2024, 2, 28, 9, 0, 0, 0, rome), d.At(9, 0, rome))

	iso, err := ParseISODate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, d.AddDays(1), iso)
}
