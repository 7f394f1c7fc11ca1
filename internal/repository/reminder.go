package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const reminderColumns = `r.id, r.vehicle_id, r.kind, r.due_at, r.km_threshold, r.description, r.active, r.created_at`

func reminderDest(r *Reminder) []any {
	return []any{&r.ID, &r.VehicleID, &r.Kind, &r.DueAt, &r.KmThreshold, &r.Description, &r.Active, &r.CreatedAt}
}

func reminderDueDest(r *ReminderDue) []any {
	dest := reminderDest(&r.Reminder)
	dest = append(dest, &r.ChatID)
	return append(dest, vehicleDest(&r.Vehicle)...)
}

func collectReminderDue(rows pgx.Rows) ([]ReminderDue, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReminderDue, error) {
		var r ReminderDue
		err := row.Scan(reminderDueDest(&r)...)
		return r, err
	})
}

type CreateReminderParams struct {
	VehicleID   int64
	Kind        string
	DueAt       *time.Time
	KmThreshold *int64
	Description string
}

const createReminder = `
INSERT INTO reminders AS r (vehicle_id, kind, due_at, km_threshold, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + reminderColumns

func (q *Queries) CreateReminder(ctx context.Context, arg CreateReminderParams) (Reminder, error) {
	var r Reminder
	err := q.db.QueryRow(ctx, createReminder,
		arg.VehicleID,
		arg.Kind,
		arg.DueAt,
		arg.KmThreshold,
		arg.Description,
	).Scan(reminderDest(&r)...)
	return r, err
}

const reminderDueSelect = `
SELECT ` + reminderColumns + `, u.chat_id, ` + vehicleColumns + `
FROM reminders r
JOIN vehicles v ON v.id = r.vehicle_id
JOIN users u ON u.id = v.user_id
`

const listActiveRemindersByKind = reminderDueSelect + `
WHERE r.active AND r.kind = $1
ORDER BY r.id
`

func (q *Queries) ListActiveRemindersByKind(ctx context.Context, kind string) ([]ReminderDue, error) {
	rows, err := q.db.Query(ctx, listActiveRemindersByKind, kind)
	if err != nil {
		return nil, err
	}
	return collectReminderDue(rows)
}

const listActiveKmRemindersByVehicle = reminderDueSelect + `
WHERE r.active AND r.kind = 'km' AND r.vehicle_id = $1
ORDER BY r.id
`

func (q *Queries) ListActiveKmRemindersByVehicle(ctx context.Context, vehicleID int64) ([]ReminderDue, error) {
	rows, err := q.db.Query(ctx, listActiveKmRemindersByVehicle, vehicleID)
	if err != nil {
		return nil, err
	}
	return collectReminderDue(rows)
}

const listActiveRemindersByUser = reminderDueSelect + `
WHERE r.active AND v.user_id = $1
ORDER BY r.kind, r.due_at NULLS LAST, r.km_threshold NULLS LAST, r.id
`

func (q *Queries) ListActiveRemindersByUser(ctx context.Context, userID int64) ([]ReminderDue, error) {
	rows, err := q.db.Query(ctx, listActiveRemindersByUser, userID)
	if err != nil {
		return nil, err
	}
	return collectReminderDue(rows)
}

const getActiveReminder = reminderDueSelect + `
WHERE r.id = $1 AND r.active
`

func (q *Queries) GetActiveReminder(ctx context.Context, id int64) (ReminderDue, error) {
	var r ReminderDue
	err := q.db.QueryRow(ctx, getActiveReminder, id).Scan(reminderDueDest(&r)...)
	return r, err
}

// The active guard makes deactivation a one-way transition.
const deactivateReminder = `
UPDATE reminders SET active = FALSE WHERE id = $1 AND active
`

func (q *Queries) DeactivateReminder(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, deactivateReminder, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const deactivateUserReminder = `
UPDATE reminders r SET active = FALSE
FROM vehicles v
WHERE r.id = $1 AND r.active AND v.id = r.vehicle_id AND v.user_id = $2
RETURNING r.kind
`

// DeactivateUserReminder returns pgx.ErrNoRows when the reminder is not
// active or not owned by userID.
func (q *Queries) DeactivateUserReminder(ctx context.Context, id, userID int64) (string, error) {
	var kind string
	err := q.db.QueryRow(ctx, deactivateUserReminder, id, userID).Scan(&kind)
	return kind, err
}

const listRemindersByUser = `
SELECT ` + reminderColumns + `, ` + vehicleColumns + `
FROM reminders r
JOIN vehicles v ON v.id = r.vehicle_id
WHERE v.user_id = $1
ORDER BY v.id, r.id
`

func (q *Queries) ListRemindersByUser(ctx context.Context, userID int64) ([]ReminderWithVehicle, error) {
	rows, err := q.db.Query(ctx, listRemindersByUser, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReminderWithVehicle, error) {
		var r ReminderWithVehicle
		dest := append(reminderDest(&r.Reminder), vehicleDest(&r.Vehicle)...)
		err := row.Scan(dest...)
		return r, err
	})
}
