package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/set-night/carlog/internal/clock"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 8, 20, 8, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	delivered []domain.ReminderDue

	// When set, Deliver signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (n *fakeNotifier) Deliver(_ context.Context, r domain.ReminderDue) error {
	if n.entered != nil {
		n.entered <- struct{}{}
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return &domain.DeliveryError{ChatID: r.ChatID, Err: n.err}
	}
	n.delivered = append(n.delivered, r)
	return nil
}

func (n *fakeNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *fakeNotifier) ids() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int64, len(n.delivered))
	for i, r := range n.delivered {
		out[i] = r.ID
	}
	return out
}

type harness struct {
	store    *testutil.Store
	notifier *fakeNotifier
	clock    *clock.FakeClock
	sched    *Scheduler
	vehicle  *domain.Vehicle
	fired    []int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    testutil.NewStore(),
		notifier: &fakeNotifier{},
		clock:    clock.Fake(start),
	}
	user := h.store.AddUser(555)
	h.vehicle = h.store.AddVehicle(user.ID, "Panda", 9000)
	h.sched = New(h.store, h.notifier, h.clock, Config{
		Location:   time.UTC,
		SweepHour:  9,
		RetryDelay: 10 * time.Minute,
		OnFire:     func(r domain.ReminderDue) { h.fired = append(h.fired, r.ID) },
	})
	return h
}

func (h *harness) timeReminder(due time.Time) domain.Reminder {
	return h.store.AddReminder(domain.Reminder{
		VehicleID:   h.vehicle.ID,
		Kind:        domain.ReminderTime,
		DueAt:       &due,
		Description: "Inspection",
		Active:      true,
	})
}

func (h *harness) kmReminder(threshold int64) domain.Reminder {
	return h.store.AddReminder(domain.Reminder{
		VehicleID:   h.vehicle.ID,
		Kind:        domain.ReminderKm,
		KmThreshold: &threshold,
		Description: "Oil change",
		Active:      true,
	})
}

func (h *harness) active(t *testing.T, id int64) bool {
	t.Helper()
	r, ok := h.store.Reminder(id)
	require.True(t, ok)
	return r.Active
}

func TestRestoreFiresPastDueImmediately(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(-2 * time.Hour))

	n, err := h.sched.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
	assert.False(t, h.active(t, r.ID))
	assert.Equal(t, []int64{r.ID}, h.fired)
	assert.Equal(t, 0, h.sched.Pending())
}

func TestTimeReminderFiresExactlyOnce(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Hour))
	ctx := context.Background()

	_, err := h.sched.Restore(ctx)
	require.NoError(t, err)
	h.clock.Advance(59 * time.Minute)
	assert.Empty(t, h.notifier.ids())

	h.clock.Advance(time.Minute)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())

	// A later restore or a stray schedule call cannot resurrect it.
	n, err := h.sched.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	due, err := h.store.GetActiveReminder(ctx, r.ID)
	assert.Nil(t, due)
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})
	h.clock.Advance(24 * time.Hour)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
}

func TestRestoreDoesNotDuplicateTimers(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(30 * time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.sched.Restore(ctx)
		require.NoError(t, err)
	}
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})
	assert.Equal(t, 1, h.sched.Pending())
	assert.Equal(t, 1, h.clock.PendingCount())

	h.clock.Advance(time.Hour)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
}

func TestDeliveryFailureKeepsReminderActive(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Minute))
	_, err := h.sched.Restore(context.Background())
	require.NoError(t, err)

	h.notifier.setErr(errors.New("network down"))
	h.clock.Advance(time.Minute)
	assert.Empty(t, h.notifier.ids())
	assert.True(t, h.active(t, r.ID))
	assert.Equal(t, 1, h.sched.Pending(), "re-armed for retry")

	h.notifier.setErr(nil)
	h.clock.Advance(9 * time.Minute)
	assert.Empty(t, h.notifier.ids())
	h.clock.Advance(time.Minute)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
	assert.False(t, h.active(t, r.ID))
}

func TestInactiveReminderNeverFires(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Hour))
	ctx := context.Background()
	_, err := h.sched.Restore(ctx)
	require.NoError(t, err)

	ok, err := h.store.DeactivateReminder(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, ok)

	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, h.notifier.ids())
}

func TestCancelDeactivatesAndUnschedules(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Hour))
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})

	err := h.sched.Cancel(r.ID, func() error {
		return h.store.CancelReminder(context.Background(), h.vehicle.UserID, r.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, h.sched.Pending())
	assert.False(t, h.active(t, r.ID))

	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, h.notifier.ids())
}

func TestCancelKeepsTimerWhenDeactivateFails(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Hour))
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})

	boom := errors.New("connection refused")
	err := h.sched.Cancel(r.ID, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, h.sched.Pending())
}

func TestCancelWaitsForInFlightDelivery(t *testing.T) {
	h := newHarness(t)
	h.notifier.entered = make(chan struct{})
	h.notifier.release = make(chan struct{})
	r := h.timeReminder(start.Add(time.Minute))
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})

	go h.clock.Advance(time.Minute)
	<-h.notifier.entered

	cancelled := make(chan error, 1)
	go func() {
		cancelled <- h.sched.Cancel(r.ID, func() error {
			return h.store.CancelReminder(context.Background(), h.vehicle.UserID, r.ID)
		})
	}()

	select {
	case <-cancelled:
		t.Fatal("cancel returned during delivery")
	case <-time.After(50 * time.Millisecond):
	}
	close(h.notifier.release)

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, domain.ErrReminderNotFound, "already delivered")
	case <-time.After(time.Second):
		t.Fatal("cancel never returned")
	}
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
	assert.False(t, h.active(t, r.ID))
}

func TestUnschedule(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(time.Hour))
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})
	require.Equal(t, 1, h.sched.Pending())

	h.sched.Unschedule(r.ID)
	assert.Equal(t, 0, h.sched.Pending())
	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, h.notifier.ids())
	assert.True(t, h.active(t, r.ID))
}

func TestScheduleTimeIgnoresKmReminders(t *testing.T) {
	h := newHarness(t)
	r := h.kmReminder(100)
	h.sched.ScheduleTime(domain.ReminderDue{Reminder: r})
	assert.Equal(t, 0, h.sched.Pending())
}

func TestSweepFiresOnlyWhenThresholdReached(t *testing.T) {
	h := newHarness(t)
	r := h.kmReminder(10000)
	ctx := context.Background()

	h.store.SetKm(h.vehicle.ID, 9999)
	n, err := h.sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, h.active(t, r.ID))

	h.store.SetKm(h.vehicle.ID, 10000)
	n, err = h.sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, h.active(t, r.ID))

	n, err = h.sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
}

func TestSweepDeliveryFailureRetriesNextSweep(t *testing.T) {
	h := newHarness(t)
	r := h.kmReminder(5000)
	ctx := context.Background()

	h.notifier.setErr(errors.New("blocked by user"))
	n, err := h.sched.Sweep(ctx)
	assert.Equal(t, 0, n)
	var derr *domain.DeliveryError
	assert.True(t, errors.As(err, &derr))
	assert.True(t, h.active(t, r.ID))

	h.notifier.setErr(nil)
	n, err = h.sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckVehicleScopesToOneVehicle(t *testing.T) {
	h := newHarness(t)
	mine := h.kmReminder(1000)

	other := h.store.AddVehicle(h.vehicle.UserID, "Other", 50000)
	threshold := int64(1000)
	theirs := h.store.AddReminder(domain.Reminder{
		VehicleID: other.ID, Kind: domain.ReminderKm, KmThreshold: &threshold, Description: "x", Active: true,
	})

	n, err := h.sched.CheckVehicle(context.Background(), h.vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, h.active(t, mine.ID))
	assert.True(t, h.active(t, theirs.ID))
}

func TestNextSweep(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC), h.sched.NextSweep(start))
	assert.Equal(t, time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC), h.sched.NextSweep(start.Add(time.Hour)))
	assert.Equal(t, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), h.sched.NextSweep(time.Date(2025, 8, 31, 22, 0, 0, 0, time.UTC)))
}

func TestDailySweepRearms(t *testing.T) {
	h := newHarness(t)
	r := h.kmReminder(9500)

	h.sched.armSweep()
	h.clock.Advance(time.Hour)
	assert.Empty(t, h.notifier.ids())

	h.store.SetKm(h.vehicle.ID, 9600)
	h.clock.Advance(23 * time.Hour)
	assert.Empty(t, h.notifier.ids(), "next sweep is at 09:00")

	h.clock.Advance(time.Hour)
	assert.Equal(t, time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC), h.clock.Now())
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())
	assert.Equal(t, 1, h.clock.PendingCount(), "next sweep armed")

	h.sched.Stop()
	assert.Equal(t, 0, h.clock.PendingCount())
}

func TestRunRestoresAndStops(t *testing.T) {
	h := newHarness(t)
	r := h.timeReminder(start.Add(-time.Minute))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.sched.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.notifier.ids()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []int64{r.ID}, h.notifier.ids())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, h.sched.Pending())
}
