package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/set-night/carlog/internal/domain"
)

// Sweep fires every active km reminder whose vehicle reached the
// threshold. Failed deliveries stay active for the next sweep.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	reminders, err := s.store.ListActiveKmReminders(ctx)
	if err != nil {
		return 0, err
	}
	return s.fireReached(ctx, reminders)
}

// CheckVehicle runs the sweep for a single vehicle, right after its
// odometer changed.
func (s *Scheduler) CheckVehicle(ctx context.Context, vehicleID int64) (int, error) {
	reminders, err := s.store.ListActiveKmRemindersForVehicle(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	return s.fireReached(ctx, reminders)
}

func (s *Scheduler) fireReached(ctx context.Context, reminders []domain.ReminderDue) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, r := range reminders {
		if !kmReached(r) {
			continue
		}
		fired, err := s.fire(ctx, r.ID)
		if fired {
			n++
		}
		if err != nil {
			slog.Error("km reminder failed", "error", err, "reminder_id", r.ID)
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// NextSweep returns the first sweep time strictly after now.
func (s *Scheduler) NextSweep(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	y, m, d := local.Date()
	next := time.Date(y, m, d, s.cfg.SweepHour, 0, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = time.Date(y, m, d+1, s.cfg.SweepHour, 0, 0, 0, s.cfg.Location)
	}
	return next
}

func (s *Scheduler) armSweep() {
	now := s.clock.Now()
	delay := s.NextSweep(now).Sub(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.sweep = s.clock.AfterFunc(delay, s.runSweep)
}

func (s *Scheduler) runSweep() {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()

	n, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("km sweep finished with errors", "error", err, "fired", n)
	} else {
		slog.Info("km sweep finished", "fired", n)
	}
	s.armSweep()
}
