package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const maintenanceColumns = `m.id, m.vehicle_id, m.date, m.km, m.type, m.notes, m.cost::text, m.created_at`

func maintenanceDest(m *Maintenance) []any {
	return []any{&m.ID, &m.VehicleID, &m.Date, &m.Km, &m.Type, &m.Notes, &m.Cost, &m.CreatedAt}
}

type CreateMaintenanceParams struct {
	VehicleID int64
	Date      pgtype.Date
	Km        *int64
	Type      string
	Notes     *string
	Cost      *string
}

const createMaintenance = `
INSERT INTO maintenance AS m (vehicle_id, date, km, type, notes, cost)
VALUES ($1, $2, $3, $4, $5, $6::text::numeric)
RETURNING ` + maintenanceColumns

func (q *Queries) CreateMaintenance(ctx context.Context, arg CreateMaintenanceParams) (Maintenance, error) {
	var m Maintenance
	err := q.db.QueryRow(ctx, createMaintenance,
		arg.VehicleID,
		arg.Date,
		arg.Km,
		arg.Type,
		arg.Notes,
		arg.Cost,
	).Scan(maintenanceDest(&m)...)
	return m, err
}

const listMaintenanceByVehicle = `
SELECT ` + maintenanceColumns + `
FROM maintenance m
JOIN vehicles v ON v.id = m.vehicle_id
WHERE m.vehicle_id = $1 AND v.user_id = $2
ORDER BY m.date DESC, m.id DESC
LIMIT $3
`

func (q *Queries) ListMaintenanceByVehicle(ctx context.Context, vehicleID, userID int64, limit int32) ([]Maintenance, error) {
	rows, err := q.db.Query(ctx, listMaintenanceByVehicle, vehicleID, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Maintenance, error) {
		var m Maintenance
		err := row.Scan(maintenanceDest(&m)...)
		return m, err
	})
}

const listMaintenanceByUser = `
SELECT ` + maintenanceColumns + `, ` + vehicleColumns + `
FROM maintenance m
JOIN vehicles v ON v.id = m.vehicle_id
WHERE v.user_id = $1
ORDER BY v.id, m.date, m.id
`

func (q *Queries) ListMaintenanceByUser(ctx context.Context, userID int64) ([]MaintenanceWithVehicle, error) {
	rows, err := q.db.Query(ctx, listMaintenanceByUser, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MaintenanceWithVehicle, error) {
		var r MaintenanceWithVehicle
		dest := append(maintenanceDest(&r.Maintenance), vehicleDest(&r.Vehicle)...)
		err := row.Scan(dest...)
		return r, err
	})
}
