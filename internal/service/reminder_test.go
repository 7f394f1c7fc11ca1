package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB answers every single-row query with kind or err.
type fakeDB struct {
	kind  string
	err   error
	calls int
}

func (db *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	db.calls++
	return fakeRow{kind: db.kind, err: db.err}
}

type fakeRow struct {
	kind string
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.kind
	return nil
}

type fakeScheduler struct {
	locked      bool
	cancelled   []int64
	unscheduled []int64
}

func (s *fakeScheduler) ScheduleTime(domain.ReminderDue) {}

func (s *fakeScheduler) Unschedule(id int64) { s.unscheduled = append(s.unscheduled, id) }

func (s *fakeScheduler) CheckVehicle(context.Context, int64) (int, error) { return 0, nil }

func (s *fakeScheduler) Cancel(id int64, deactivate func() error) error {
	s.locked = true
	defer func() { s.locked = false }()
	if err := deactivate(); err != nil {
		return err
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func TestReminderCancelRunsUnderSchedulerLock(t *testing.T) {
	sched := &fakeScheduler{}
	var lockedDuringQuery bool
	db := queryHook{fakeDB: &fakeDB{kind: "time"}, before: func() { lockedDuringQuery = sched.locked }}
	svc := NewReminderService(nil, repository.New(db))
	svc.SetScheduler(sched)

	require.NoError(t, svc.Cancel(context.Background(), 9, 20))
	assert.True(t, lockedDuringQuery)
	assert.Equal(t, []int64{20}, sched.cancelled)
	assert.Empty(t, sched.unscheduled)
}

func TestReminderCancelNotFound(t *testing.T) {
	sched := &fakeScheduler{}
	svc := NewReminderService(nil, repository.New(&fakeDB{err: pgx.ErrNoRows}))
	svc.SetScheduler(sched)

	err := svc.Cancel(context.Background(), 9, 20)
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)
	assert.Empty(t, sched.cancelled)
}

func TestReminderCancelWithoutScheduler(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	svc := NewReminderService(nil, repository.New(db))

	err := svc.Cancel(context.Background(), 9, 20)
	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "cancel reminder", perr.Op)
	assert.Equal(t, 1, db.calls)
}

// queryHook runs before on every single-row query.
type queryHook struct {
	*fakeDB
	before func()
}

func (h queryHook) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	h.before()
	return h.fakeDB.QueryRow(ctx, sql, args...)
}
