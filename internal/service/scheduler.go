package service

import (
	"context"

	"github.com/set-night/carlog/internal/domain"
)

// ReminderScheduler is the part of the reminder scheduler that write
// paths notify. A nil scheduler is allowed and turns these into no-ops.
type ReminderScheduler interface {
	ScheduleTime(r domain.ReminderDue)
	Unschedule(id int64)
	Cancel(id int64, deactivate func() error) error
	CheckVehicle(ctx context.Context, vehicleID int64) (int, error)
}
