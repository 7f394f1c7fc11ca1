// Package scheduler fires reminders. Time reminders get one timer each;
// km reminders are evaluated by a daily sweep against the vehicle's
// current odometer.
//
// Delivery is at-least-once: a reminder is deactivated only after the
// notifier accepted it, and a reminder that is no longer active is
// never delivered.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/carlog/internal/clock"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/keylock"
)

// Store is the reminder state the scheduler reads and flips.
type Store interface {
	ListActiveTimeReminders(ctx context.Context) ([]domain.ReminderDue, error)
	ListActiveKmReminders(ctx context.Context) ([]domain.ReminderDue, error)
	ListActiveKmRemindersForVehicle(ctx context.Context, vehicleID int64) ([]domain.ReminderDue, error)
	// GetActiveReminder returns domain.ErrReminderNotFound for inactive
	// or deleted reminders.
	GetActiveReminder(ctx context.Context, id int64) (*domain.ReminderDue, error)
	DeactivateReminder(ctx context.Context, id int64) (bool, error)
}

type Notifier interface {
	Deliver(ctx context.Context, r domain.ReminderDue) error
}

type Config struct {
	Location   *time.Location
	SweepHour  int
	RetryDelay time.Duration

	// OnFire, if set, observes every reminder after it was delivered
	// and deactivated.
	OnFire func(r domain.ReminderDue)
}

type Scheduler struct {
	store    Store
	notifier Notifier
	clock    clock.Clock
	cfg      Config
	locks    *keylock.Map[int64]

	mu      sync.Mutex
	base    context.Context
	timers  map[int64]*entry
	sweep   *clock.Timer
	stopped bool
}

type entry struct {
	timer *clock.Timer
}

func New(store Store, notifier Notifier, clk clock.Clock, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 15 * time.Minute
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
		locks:    keylock.New[int64](),
		base:     context.Background(),
		timers:   make(map[int64]*entry),
	}
}

// Run restores pending timers, arms the daily sweep and blocks until
// ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	n, err := s.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	slog.Info("reminder timers restored", "count", n)

	s.armSweep()
	slog.Info("km sweep scheduled", "hour", s.cfg.SweepHour, "next", s.NextSweep(s.clock.Now()))

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop cancels every pending timer and the sweep.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	timers := s.timers
	s.timers = make(map[int64]*entry)
	sweep := s.sweep
	s.sweep = nil
	s.mu.Unlock()

	for _, e := range timers {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	if sweep != nil {
		sweep.Stop()
	}
}

// Restore arms a timer for every active time reminder. Past-due
// reminders fire right away. It returns how many timers were armed.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	reminders, err := s.store.ListActiveTimeReminders(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range reminders {
		if r.DueAt == nil {
			slog.Warn("skipping time reminder without due date", "reminder_id", r.ID)
			continue
		}
		if s.schedule(r.ID, r.DueAt.Sub(s.clock.Now())) {
			n++
		}
	}
	return n, nil
}

// ScheduleTime arms the timer for a time reminder. Scheduling the same
// reminder twice keeps the first timer.
func (s *Scheduler) ScheduleTime(r domain.ReminderDue) {
	if r.Kind != domain.ReminderTime || r.DueAt == nil {
		slog.Warn("not a time reminder", "reminder_id", r.ID, "kind", r.Kind)
		return
	}
	s.schedule(r.ID, r.DueAt.Sub(s.clock.Now()))
}

// Unschedule drops the pending timer of a reminder, if any.
func (s *Scheduler) Unschedule(id int64) {
	s.mu.Lock()
	e, ok := s.timers[id]
	delete(s.timers, id)
	var timer *clock.Timer
	if ok {
		timer = e.timer
	}
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
}

// Cancel runs deactivate under the reminder's key lock and drops its
// timer once deactivate succeeds. A delivery already in progress finishes
// first; a later one sees the reminder inactive.
func (s *Scheduler) Cancel(id int64, deactivate func() error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := deactivate(); err != nil {
		return err
	}
	s.Unschedule(id)
	return nil
}

// Pending returns the number of armed time reminder timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) schedule(id int64, d time.Duration) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.timers[id]; ok {
		s.mu.Unlock()
		return false
	}
	e := &entry{}
	s.timers[id] = e
	s.mu.Unlock()

	// The callback may run before AfterFunc returns, so the entry is
	// registered first and the timer attached afterwards.
	timer := s.clock.AfterFunc(d, func() { s.onTimer(id, e) })

	s.mu.Lock()
	if s.timers[id] == e {
		e.timer = timer
	}
	s.mu.Unlock()
	return true
}

func (s *Scheduler) onTimer(id int64, e *entry) {
	s.mu.Lock()
	if s.timers[id] != e {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	ctx := s.base
	s.mu.Unlock()

	fired, err := s.fire(ctx, id)
	if err == nil {
		return
	}
	if fired {
		slog.Error("reminder delivered but not deactivated", "error", err, "reminder_id", id)
		return
	}
	slog.Error("time reminder failed, retrying later", "error", err, "reminder_id", id, "retry_in", s.cfg.RetryDelay)
	s.schedule(id, s.cfg.RetryDelay)
}

// fire delivers one reminder under its key lock. The active flag is
// re-read first so a reminder that was cancelled, deleted or already
// delivered is skipped. fired is true once the notifier accepted it.
func (s *Scheduler) fire(ctx context.Context, id int64) (fired bool, err error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.store.GetActiveReminder(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReminderNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reload reminder %d: %w", id, err)
	}
	if r.Kind == domain.ReminderKm && !kmReached(*r) {
		return false, nil
	}

	if err := s.notifier.Deliver(ctx, *r); err != nil {
		return false, err
	}

	if _, err := s.store.DeactivateReminder(ctx, id); err != nil {
		return true, fmt.Errorf("deactivate reminder %d: %w", id, err)
	}
	slog.Info("reminder fired", "reminder_id", id, "kind", r.Kind, "chat_id", r.ChatID)
	if s.cfg.OnFire != nil {
		s.cfg.OnFire(*r)
	}
	return true, nil
}

func kmReached(r domain.ReminderDue) bool {
	return r.KmThreshold != nil && r.KmCurrent >= *r.KmThreshold
}
