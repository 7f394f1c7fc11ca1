package service

import (
	"context"

	"github.com/set-night/carlog/internal/domain"
)

// Records groups the services behind one facade. It satisfies
// conversation.Backend for flow commits and handler.Store for the
// command surface.
type Records struct {
	Vehicles    *VehicleService
	Maintenance *MaintenanceService
	Reminders   *ReminderService
	Export      *ExportService
}

func (r *Records) ListVehicles(ctx context.Context, userID int64) ([]domain.Vehicle, error) {
	return r.Vehicles.List(ctx, userID)
}

func (r *Records) GetVehicle(ctx context.Context, userID, vehicleID int64) (*domain.Vehicle, error) {
	return r.Vehicles.Get(ctx, userID, vehicleID)
}

func (r *Records) CreateVehicle(ctx context.Context, v *domain.Vehicle) error {
	return r.Vehicles.Create(ctx, v)
}

func (r *Records) UpdateOdometer(ctx context.Context, userID, vehicleID, km int64) error {
	return r.Vehicles.UpdateOdometer(ctx, userID, vehicleID, km)
}

func (r *Records) AddMaintenance(ctx context.Context, userID int64, m *domain.MaintenanceRecord) error {
	return r.Maintenance.Add(ctx, userID, m)
}

func (r *Records) CreateReminder(ctx context.Context, userID int64, rem *domain.Reminder) error {
	return r.Reminders.Create(ctx, userID, rem)
}

func (r *Records) DeleteVehicle(ctx context.Context, userID, vehicleID int64) error {
	return r.Vehicles.Delete(ctx, userID, vehicleID)
}

func (r *Records) History(ctx context.Context, userID, vehicleID int64) ([]domain.MaintenanceRecord, error) {
	return r.Maintenance.History(ctx, userID, vehicleID)
}

func (r *Records) ListActiveReminders(ctx context.Context, userID int64) ([]domain.ReminderDue, error) {
	return r.Reminders.ListActive(ctx, userID)
}

func (r *Records) CancelReminder(ctx context.Context, userID, reminderID int64) error {
	return r.Reminders.Cancel(ctx, userID, reminderID)
}

func (r *Records) Snapshot(ctx context.Context, userID int64) (*domain.Snapshot, error) {
	return r.Export.Snapshot(ctx, userID)
}
