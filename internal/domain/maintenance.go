package domain

import (
	"time"

	"github.com/set-night/carlog/internal/parse"
	"github.com/shopspring/decimal"
)

type MaintenanceRecord struct {
	ID        int64
	VehicleID int64
	Date      parse.Date
	Km        *int64
	Type      string
	Notes     *string
	Cost      *decimal.Decimal
	CreatedAt time.Time
}

// Validate checks the record invariants before it is written.
func (m *MaintenanceRecord) Validate() error {
	if m.Date.IsZero() {
		return &ValidationError{Field: "date", Expected: parse.ExpectedDate}
	}
	if m.Type == "" {
		return &ValidationError{Field: "type", Expected: "a maintenance type"}
	}
	if m.Cost != nil && m.Cost.IsNegative() {
		return &ValidationError{Field: "cost", Expected: parse.ExpectedCurrency}
	}
	if m.Cost != nil && m.Cost.GreaterThan(MaxCost) {
		return &ValidationError{Field: "cost", Expected: ExpectedCost}
	}
	return nil
}

// MaxCost is the largest amount the cost column holds (NUMERIC(12,2)).
var MaxCost = decimal.RequireFromString("9999999999.99")

const ExpectedCost = "an amount up to 9999999999.99"

// MaintenanceOther asks for a free-text type instead of a suggestion.
const MaintenanceOther = "Other"

// MaintenanceTypes are the suggestions offered as buttons. Callback
// tokens carry the index into this slice.
var MaintenanceTypes = []string{
	"Service",
	"Oil change",
	"Air filter",
	"Cabin filter",
	"Tyres",
	"Brakes",
	"Battery",
	MaintenanceOther,
}
