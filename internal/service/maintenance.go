package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

type MaintenanceService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewMaintenanceService(db *pgxpool.Pool, queries *repository.Queries) *MaintenanceService {
	return &MaintenanceService{db: db, queries: queries}
}

// Add records a maintenance event on a vehicle owned by userID.
func (s *MaintenanceService) Add(ctx context.Context, userID int64, m *domain.MaintenanceRecord) error {
	if err := m.Validate(); err != nil {
		return err
	}

	return repository.InTx(ctx, s.db, func(q *repository.Queries) error {
		if _, err := q.GetVehicle(ctx, m.VehicleID, userID); err != nil {
			return persistErr("get vehicle", err, domain.ErrVehicleNotFound)
		}
		row, err := q.CreateMaintenance(ctx, repository.CreateMaintenanceParams{
			VehicleID: m.VehicleID,
			Date:      dateToPgDate(m.Date),
			Km:        m.Km,
			Type:      m.Type,
			Notes:     trimmed(m.Notes),
			Cost:      decimalPtrToStringPtr(m.Cost),
		})
		if err != nil {
			return persistErr("create maintenance", err, nil)
		}
		*m = rowToMaintenance(row)
		return nil
	})
}

// History returns the most recent records for a vehicle, newest first.
func (s *MaintenanceService) History(ctx context.Context, userID, vehicleID int64) ([]domain.MaintenanceRecord, error) {
	if _, err := s.queries.GetVehicle(ctx, vehicleID, userID); err != nil {
		return nil, persistErr("get vehicle", err, domain.ErrVehicleNotFound)
	}
	rows, err := s.queries.ListMaintenanceByVehicle(ctx, vehicleID, userID, config.HistoryLimit)
	if err != nil {
		return nil, persistErr("list maintenance", err, nil)
	}
	out := make([]domain.MaintenanceRecord, len(rows))
	for i, row := range rows {
		out[i] = rowToMaintenance(row)
	}
	return out, nil
}
