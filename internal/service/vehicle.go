package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

type VehicleService struct {
	db      *pgxpool.Pool
	queries *repository.Queries

	sched         ReminderScheduler
	checkOnUpdate bool
}

func NewVehicleService(db *pgxpool.Pool, queries *repository.Queries) *VehicleService {
	return &VehicleService{db: db, queries: queries}
}

// SetScheduler wires timer cleanup on delete and, when checkOnUpdate is
// set, an immediate km reminder check after every odometer update.
func (s *VehicleService) SetScheduler(sched ReminderScheduler, checkOnUpdate bool) {
	s.sched = sched
	s.checkOnUpdate = checkOnUpdate
}

func (s *VehicleService) Create(ctx context.Context, v *domain.Vehicle) error {
	if v.Plate != nil {
		plate := domain.CanonicalPlate(*v.Plate)
		if plate == "" {
			v.Plate = nil
		} else {
			v.Plate = &plate
		}
	}
	if v.KmCurrent < 0 {
		return &domain.ValidationError{Field: "km_current", Expected: "a non-negative odometer reading"}
	}

	row, err := s.queries.CreateVehicle(ctx, repository.CreateVehicleParams{
		UserID:    v.UserID,
		Alias:     trimmed(v.Alias),
		Plate:     v.Plate,
		Brand:     trimmed(v.Brand),
		Model:     trimmed(v.Model),
		Year:      intPtrToInt32Ptr(v.Year),
		Notes:     trimmed(v.Notes),
		KmCurrent: v.KmCurrent,
	})
	if err != nil {
		return persistErr("create vehicle", err, nil)
	}
	*v = rowToVehicle(row)
	return nil
}

func (s *VehicleService) List(ctx context.Context, userID int64) ([]domain.Vehicle, error) {
	rows, err := s.queries.ListVehiclesByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("list vehicles", err, nil)
	}
	out := make([]domain.Vehicle, len(rows))
	for i, row := range rows {
		out[i] = rowToVehicle(row)
	}
	return out, nil
}

func (s *VehicleService) Get(ctx context.Context, userID, vehicleID int64) (*domain.Vehicle, error) {
	row, err := s.queries.GetVehicle(ctx, vehicleID, userID)
	if err != nil {
		return nil, persistErr("get vehicle", err, domain.ErrVehicleNotFound)
	}
	v := rowToVehicle(row)
	return &v, nil
}

// UpdateOdometer overwrites the current reading. The last write wins;
// lower readings are accepted so typos can be corrected.
func (s *VehicleService) UpdateOdometer(ctx context.Context, userID, vehicleID, km int64) error {
	if km < 0 {
		return &domain.ValidationError{Field: "km", Expected: "a non-negative odometer reading"}
	}
	ok, err := s.queries.UpdateVehicleKm(ctx, vehicleID, userID, km)
	if err != nil {
		return persistErr("update odometer", err, nil)
	}
	if !ok {
		return domain.ErrVehicleNotFound
	}

	if s.sched != nil && s.checkOnUpdate {
		if n, err := s.sched.CheckVehicle(ctx, vehicleID); err != nil {
			slog.Error("km reminder check after odometer update", "error", err, "vehicle_id", vehicleID)
		} else if n > 0 {
			slog.Info("km reminders fired after odometer update", "vehicle_id", vehicleID, "count", n)
		}
	}
	return nil
}

// Delete removes the vehicle together with its maintenance and
// reminders, and cancels any pending timers for those reminders.
func (s *VehicleService) Delete(ctx context.Context, userID, vehicleID int64) error {
	var reminderIDs []int64
	err := repository.InTx(ctx, s.db, func(q *repository.Queries) error {
		if _, err := q.GetVehicle(ctx, vehicleID, userID); err != nil {
			return persistErr("get vehicle", err, domain.ErrVehicleNotFound)
		}
		ids, err := q.ListActiveReminderIDsByVehicle(ctx, vehicleID)
		if err != nil {
			return persistErr("list vehicle reminders", err, nil)
		}
		ok, err := q.DeleteVehicle(ctx, vehicleID, userID)
		if err != nil {
			return persistErr("delete vehicle", err, nil)
		}
		if !ok {
			return domain.ErrVehicleNotFound
		}
		reminderIDs = ids
		return nil
	})
	if err != nil {
		return err
	}

	if s.sched != nil {
		for _, id := range reminderIDs {
			s.sched.Unschedule(id)
		}
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
