package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

type ReminderService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
	sched   ReminderScheduler
}

func NewReminderService(db *pgxpool.Pool, queries *repository.Queries) *ReminderService {
	return &ReminderService{db: db, queries: queries}
}

func (s *ReminderService) SetScheduler(sched ReminderScheduler) {
	s.sched = sched
}

// Create stores a reminder for a vehicle owned by userID. Time reminders
// are handed to the scheduler once the row is committed.
func (s *ReminderService) Create(ctx context.Context, userID int64, r *domain.Reminder) error {
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return &domain.ValidationError{Field: "description", Expected: "a short description"}
	}
	if err := r.Validate(); err != nil {
		return err
	}

	var due domain.ReminderDue
	err := repository.InTx(ctx, s.db, func(q *repository.Queries) error {
		vrow, err := q.GetVehicle(ctx, r.VehicleID, userID)
		if err != nil {
			return persistErr("get vehicle", err, domain.ErrVehicleNotFound)
		}
		user, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return persistErr("get user", err, domain.ErrUserNotFound)
		}
		row, err := q.CreateReminder(ctx, repository.CreateReminderParams{
			VehicleID:   r.VehicleID,
			Kind:        string(r.Kind),
			DueAt:       r.DueAt,
			KmThreshold: r.KmThreshold,
			Description: r.Description,
		})
		if err != nil {
			return persistErr("create reminder", err, nil)
		}
		*r = rowToReminder(row)
		due = rowToReminderDue(repository.ReminderDue{Reminder: row, ChatID: user.ChatID, Vehicle: vrow})
		return nil
	})
	if err != nil {
		return err
	}

	if r.Kind == domain.ReminderTime && s.sched != nil {
		s.sched.ScheduleTime(due)
	}
	return nil
}

// ListActive returns the user's active reminders, time reminders first.
func (s *ReminderService) ListActive(ctx context.Context, userID int64) ([]domain.ReminderDue, error) {
	rows, err := s.queries.ListActiveRemindersByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("list reminders", err, nil)
	}
	return rowsToReminderDue(rows), nil
}

// Cancel deactivates a reminder owned by userID and drops its timer.
func (s *ReminderService) Cancel(ctx context.Context, userID, reminderID int64) error {
	deactivate := func() error {
		if _, err := s.queries.DeactivateUserReminder(ctx, reminderID, userID); err != nil {
			return persistErr("cancel reminder", err, domain.ErrReminderNotFound)
		}
		return nil
	}
	if s.sched == nil {
		return deactivate()
	}
	return s.sched.Cancel(reminderID, deactivate)
}

// The methods below back the reminder scheduler.

func (s *ReminderService) ListActiveTimeReminders(ctx context.Context) ([]domain.ReminderDue, error) {
	rows, err := s.queries.ListActiveRemindersByKind(ctx, string(domain.ReminderTime))
	if err != nil {
		return nil, persistErr("list time reminders", err, nil)
	}
	return rowsToReminderDue(rows), nil
}

func (s *ReminderService) ListActiveKmReminders(ctx context.Context) ([]domain.ReminderDue, error) {
	rows, err := s.queries.ListActiveRemindersByKind(ctx, string(domain.ReminderKm))
	if err != nil {
		return nil, persistErr("list km reminders", err, nil)
	}
	return rowsToReminderDue(rows), nil
}

func (s *ReminderService) ListActiveKmRemindersForVehicle(ctx context.Context, vehicleID int64) ([]domain.ReminderDue, error) {
	rows, err := s.queries.ListActiveKmRemindersByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, persistErr("list vehicle km reminders", err, nil)
	}
	return rowsToReminderDue(rows), nil
}

// GetActiveReminder returns domain.ErrReminderNotFound once the reminder
// has been deactivated or its vehicle deleted.
func (s *ReminderService) GetActiveReminder(ctx context.Context, id int64) (*domain.ReminderDue, error) {
	row, err := s.queries.GetActiveReminder(ctx, id)
	if err != nil {
		return nil, persistErr("get reminder", err, domain.ErrReminderNotFound)
	}
	due := rowToReminderDue(row)
	return &due, nil
}

// DeactivateReminder reports whether this call performed the transition.
func (s *ReminderService) DeactivateReminder(ctx context.Context, id int64) (bool, error) {
	ok, err := s.queries.DeactivateReminder(ctx, id)
	if err != nil {
		return false, persistErr("deactivate reminder", err, nil)
	}
	return ok, nil
}
