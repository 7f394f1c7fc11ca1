package repository

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID        int64
	ChatID    int64
	CreatedAt pgtype.Timestamptz
}

type Vehicle struct {
	ID        int64
	UserID    int64
	Alias     *string
	Plate     *string
	Brand     *string
	Model     *string
	Year      *int32
	Notes     *string
	KmCurrent int64
	CreatedAt pgtype.Timestamptz
}

type Maintenance struct {
	ID        int64
	VehicleID int64
	Date      pgtype.Date
	Km        *int64
	Type      string
	Notes     *string
	Cost      *string
	CreatedAt pgtype.Timestamptz
}

type Reminder struct {
	ID          int64
	VehicleID   int64
	Kind        string
	DueAt       pgtype.Timestamptz
	KmThreshold *int64
	Description string
	Active      bool
	CreatedAt   pgtype.Timestamptz
}

// ReminderDue joins an active reminder with its owner chat and vehicle.
type ReminderDue struct {
	Reminder
	ChatID  int64
	Vehicle Vehicle
}

// MaintenanceWithVehicle is one export row.
type MaintenanceWithVehicle struct {
	Maintenance
	Vehicle Vehicle
}

type ReminderWithVehicle struct {
	Reminder
	Vehicle Vehicle
}

type ConversationSession struct {
	UserID      int64
	Flow        string
	State       string
	Data        map[string]string
	Incarnation uuid.UUID
	UpdatedAt   pgtype.Timestamptz
}
