package domain

import "time"

type ReminderKind string

const (
	ReminderTime ReminderKind = "time"
	ReminderKm   ReminderKind = "km"
)

type Reminder struct {
	ID          int64
	VehicleID   int64
	Kind        ReminderKind
	DueAt       *time.Time
	KmThreshold *int64
	Description string
	Active      bool
	CreatedAt   time.Time
}

// Validate enforces that exactly the field matching Kind is set.
func (r *Reminder) Validate() error {
	switch r.Kind {
	case ReminderTime:
		if r.DueAt == nil || r.KmThreshold != nil {
			return &ValidationError{Field: "due_at", Expected: "a due date for a time reminder"}
		}
	case ReminderKm:
		if r.KmThreshold == nil || r.DueAt != nil {
			return &ValidationError{Field: "km_threshold", Expected: "a km threshold for a km reminder"}
		}
		if *r.KmThreshold < 0 {
			return &ValidationError{Field: "km_threshold", Expected: "a non-negative km threshold"}
		}
	default:
		return &ValidationError{Field: "kind", Expected: "time or km"}
	}
	return nil
}

// ReminderDue is an active reminder joined with what is needed to
// deliver it.
type ReminderDue struct {
	Reminder
	ChatID      int64
	VehicleName string
	KmCurrent   int64
}
