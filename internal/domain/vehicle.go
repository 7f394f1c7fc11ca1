package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

type Vehicle struct {
	ID        int64
	UserID    int64
	Alias     *string
	Plate     *string
	Brand     *string
	Model     *string
	Year      *int
	Notes     *string
	KmCurrent int64
	CreatedAt time.Time
}

// DisplayName picks the most human label available: alias, then brand
// and model, then plate, then the numeric id.
func (v *Vehicle) DisplayName() string {
	if s := deref(v.Alias); s != "" {
		return s
	}
	if s := strings.TrimSpace(deref(v.Brand) + " " + deref(v.Model)); s != "" {
		return s
	}
	if s := deref(v.Plate); s != "" {
		return s
	}
	return fmt.Sprintf("Vehicle #%d", v.ID)
}

// CanonicalPlate uppercases a plate and drops everything that is not a
// letter or digit.
func CanonicalPlate(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
