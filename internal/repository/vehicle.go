package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const vehicleColumns = `v.id, v.user_id, v.alias, v.plate, v.brand, v.model, v.year, v.notes, v.km_current, v.created_at`

func vehicleDest(v *Vehicle) []any {
	return []any{&v.ID, &v.UserID, &v.Alias, &v.Plate, &v.Brand, &v.Model, &v.Year, &v.Notes, &v.KmCurrent, &v.CreatedAt}
}

type CreateVehicleParams struct {
	UserID    int64
	Alias     *string
	Plate     *string
	Brand     *string
	Model     *string
	Year      *int32
	Notes     *string
	KmCurrent int64
}

const createVehicle = `
INSERT INTO vehicles AS v (user_id, alias, plate, brand, model, year, notes, km_current)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + vehicleColumns

func (q *Queries) CreateVehicle(ctx context.Context, arg CreateVehicleParams) (Vehicle, error) {
	var v Vehicle
	err := q.db.QueryRow(ctx, createVehicle,
		arg.UserID,
		arg.Alias,
		arg.Plate,
		arg.Brand,
		arg.Model,
		arg.Year,
		arg.Notes,
		arg.KmCurrent,
	).Scan(vehicleDest(&v)...)
	return v, err
}

const getVehicle = `
SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = $1 AND v.user_id = $2
`

func (q *Queries) GetVehicle(ctx context.Context, id, userID int64) (Vehicle, error) {
	var v Vehicle
	err := q.db.QueryRow(ctx, getVehicle, id, userID).Scan(vehicleDest(&v)...)
	return v, err
}

const listVehiclesByUser = `
SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.user_id = $1 ORDER BY v.id
`

func (q *Queries) ListVehiclesByUser(ctx context.Context, userID int64) ([]Vehicle, error) {
	rows, err := q.db.Query(ctx, listVehiclesByUser, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Vehicle, error) {
		var v Vehicle
		err := row.Scan(vehicleDest(&v)...)
		return v, err
	})
}

const updateVehicleKm = `
UPDATE vehicles SET km_current = $3 WHERE id = $1 AND user_id = $2
`

// UpdateVehicleKm reports false when the vehicle does not exist or
// belongs to someone else.
func (q *Queries) UpdateVehicleKm(ctx context.Context, id, userID, km int64) (bool, error) {
	tag, err := q.db.Exec(ctx, updateVehicleKm, id, userID, km)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const deleteVehicle = `
DELETE FROM vehicles WHERE id = $1 AND user_id = $2
`

func (q *Queries) DeleteVehicle(ctx context.Context, id, userID int64) (bool, error) {
	tag, err := q.db.Exec(ctx, deleteVehicle, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const listReminderIDsByVehicle = `
SELECT id FROM reminders WHERE vehicle_id = $1 AND active ORDER BY id
`

func (q *Queries) ListActiveReminderIDsByVehicle(ctx context.Context, vehicleID int64) ([]int64, error) {
	rows, err := q.db.Query(ctx, listReminderIDsByVehicle, vehicleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
