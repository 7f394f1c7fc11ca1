package service

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/parse"
	"github.com/set-night/carlog/internal/repository"
	"github.com/shopspring/decimal"
)

// pgTimestamptzToTime converts pgtype.Timestamptz to time.Time.
func pgTimestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time
	}
	return time.Time{}
}

// pgTimestamptzToTimePtr converts pgtype.Timestamptz to *time.Time.
func pgTimestamptzToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if ts.Valid {
		t := ts.Time
		return &t
	}
	return nil
}

func dateToPgDate(d parse.Date) pgtype.Date {
	return pgtype.Date{Time: d.At(0, 0, time.UTC), Valid: !d.IsZero()}
}

func pgDateToDate(d pgtype.Date) parse.Date {
	if !d.Valid {
		return parse.Date{}
	}
	return parse.DateOf(d.Time.UTC())
}

// int32PtrToIntPtr converts *int32 to *int.
func int32PtrToIntPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// intPtrToInt32Ptr converts *int to *int32.
func intPtrToInt32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

func decimalPtrToStringPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func stringPtrToDecimalPtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func rowToVehicle(row repository.Vehicle) domain.Vehicle {
	return domain.Vehicle{
		ID:        row.ID,
		UserID:    row.UserID,
		Alias:     row.Alias,
		Plate:     row.Plate,
		Brand:     row.Brand,
		Model:     row.Model,
		Year:      int32PtrToIntPtr(row.Year),
		Notes:     row.Notes,
		KmCurrent: row.KmCurrent,
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}

func rowToMaintenance(row repository.Maintenance) domain.MaintenanceRecord {
	return domain.MaintenanceRecord{
		ID:        row.ID,
		VehicleID: row.VehicleID,
		Date:      pgDateToDate(row.Date),
		Km:        row.Km,
		Type:      row.Type,
		Notes:     row.Notes,
		Cost:      stringPtrToDecimalPtr(row.Cost),
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}

func rowToReminder(row repository.Reminder) domain.Reminder {
	return domain.Reminder{
		ID:          row.ID,
		VehicleID:   row.VehicleID,
		Kind:        domain.ReminderKind(row.Kind),
		DueAt:       pgTimestamptzToTimePtr(row.DueAt),
		KmThreshold: row.KmThreshold,
		Description: row.Description,
		Active:      row.Active,
		CreatedAt:   pgTimestamptzToTime(row.CreatedAt),
	}
}

func rowToReminderDue(row repository.ReminderDue) domain.ReminderDue {
	v := rowToVehicle(row.Vehicle)
	return domain.ReminderDue{
		Reminder:    rowToReminder(row.Reminder),
		ChatID:      row.ChatID,
		VehicleName: v.DisplayName(),
		KmCurrent:   v.KmCurrent,
	}
}

func rowsToReminderDue(rows []repository.ReminderDue) []domain.ReminderDue {
	out := make([]domain.ReminderDue, len(rows))
	for i, row := range rows {
		out[i] = rowToReminderDue(row)
	}
	return out
}

func rowToSession(row repository.ConversationSession) domain.ConversationSession {
	data := row.Data
	if data == nil {
		data = map[string]string{}
	}
	return domain.ConversationSession{
		UserID:      row.UserID,
		Flow:        row.Flow,
		State:       row.State,
		Data:        data,
		Incarnation: row.Incarnation,
		UpdatedAt:   pgTimestamptzToTime(row.UpdatedAt),
	}
}

// persistErr maps a missing row to notFound and wraps everything else as
// a transient storage failure.
func persistErr(op string, err error, notFound error) error {
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
