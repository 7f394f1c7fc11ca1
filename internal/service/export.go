package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

type ExportService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewExportService(db *pgxpool.Pool, queries *repository.Queries) *ExportService {
	return &ExportService{db: db, queries: queries}
}

// Snapshot reads everything the user owns inside one read-only
// transaction so the three tables agree with each other.
func (s *ExportService) Snapshot(ctx context.Context, userID int64) (*domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, persistErr("begin export", err, nil)
	}
	defer tx.Rollback(ctx)
	q := s.queries.WithTx(tx)

	vrows, err := q.ListVehiclesByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("export vehicles", err, nil)
	}
	mrows, err := q.ListMaintenanceByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("export maintenance", err, nil)
	}
	rrows, err := q.ListRemindersByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("export reminders", err, nil)
	}

	snap := &domain.Snapshot{
		Vehicles:    make([]domain.Vehicle, len(vrows)),
		Maintenance: make([]domain.MaintenanceRow, len(mrows)),
		Reminders:   make([]domain.ReminderRow, len(rrows)),
	}
	for i, row := range vrows {
		snap.Vehicles[i] = rowToVehicle(row)
	}
	for i, row := range mrows {
		v := rowToVehicle(row.Vehicle)
		snap.Maintenance[i] = domain.MaintenanceRow{MaintenanceRecord: rowToMaintenance(row.Maintenance), VehicleName: v.DisplayName()}
	}
	for i, row := range rrows {
		v := rowToVehicle(row.Vehicle)
		snap.Reminders[i] = domain.ReminderRow{Reminder: rowToReminder(row.Reminder), VehicleName: v.DisplayName()}
	}
	return snap, nil
}
