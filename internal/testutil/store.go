// Package testutil provides an in-memory stand-in for the Postgres
// store, shared by the conversation, scheduler and export tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/carlog/internal/domain"
)

type sessionKey struct {
	userID int64
	flow   string
}

// Store keeps every entity in maps and mirrors the ownership checks and
// cascades of the SQL schema.
type Store struct {
	mu sync.Mutex

	nextID      int64
	users       map[int64]*domain.User
	vehicles    map[int64]*domain.Vehicle
	maintenance map[int64]*domain.MaintenanceRecord
	reminders   map[int64]*domain.Reminder
	sessions    map[sessionKey]*domain.ConversationSession

	failures map[string]error
	calls    map[string]int

	// OnReminderCreated runs after CreateReminder commits, outside the lock.
	OnReminderCreated func(domain.ReminderDue)
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*domain.User),
		vehicles:    make(map[int64]*domain.Vehicle),
		maintenance: make(map[int64]*domain.MaintenanceRecord),
		reminders:   make(map[int64]*domain.Reminder),
		sessions:    make(map[sessionKey]*domain.ConversationSession),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// Fail makes op return a PersistenceError wrapping err. A nil err clears it.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter must be called with s.mu held.
func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		return &domain.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) AddUser(chatID int64) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: s.id(), ChatID: chatID, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *Store) AddVehicle(userID int64, alias string, km int64) *domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &domain.Vehicle{ID: s.id(), UserID: userID, Alias: &alias, KmCurrent: km, CreatedAt: time.Now()}
	s.vehicles[v.ID] = v
	c := *v
	return &c
}

// AddReminder stores r as-is, bypassing validation.
func (s *Store) AddReminder(r domain.Reminder) domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.reminders[r.ID] = &r
	return r
}

func (s *Store) SetKm(vehicleID, km int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[vehicleID].KmCurrent = km
}

// RemoveVehicle deletes a vehicle behind the caller's back, cascading
// to maintenance and reminders.
func (s *Store) RemoveVehicle(vehicleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeVehicle(vehicleID)
}

func (s *Store) removeVehicle(vehicleID int64) {
	delete(s.vehicles, vehicleID)
	for id, m := range s.maintenance {
		if m.VehicleID == vehicleID {
			delete(s.maintenance, id)
		}
	}
	for id, r := range s.reminders {
		if r.VehicleID == vehicleID {
			delete(s.reminders, id)
		}
	}
}

func (s *Store) Vehicles(userID int64) []domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehiclesOf(userID)
}

func (s *Store) Maintenance() []domain.MaintenanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MaintenanceRecord, 0, len(s.maintenance))
	for _, m := range s.maintenance {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Reminders() []domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Reminder(id int64) (domain.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return domain.Reminder{}, false
	}
	return *r, true
}

func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ReplaceIncarnation simulates another writer restarting the flow.
func (s *Store) ReplaceIncarnation(userID int64, flow string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionKey{userID, flow}]; ok {
		sess.Incarnation = uuid.New()
	}
}

func (s *Store) vehiclesOf(userID int64) []domain.Vehicle {
	var out []domain.Vehicle
	for _, v := range s.vehicles {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ownedVehicle(userID, vehicleID int64) (*domain.Vehicle, error) {
	v, ok := s.vehicles[vehicleID]
	if !ok || v.UserID != userID {
		return nil, domain.ErrVehicleNotFound
	}
	return v, nil
}

// Conversation backend.

func (s *Store) ListVehicles(_ context.Context, userID int64) ([]domain.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListVehicles"); err != nil {
		return nil, err
	}
	return s.vehiclesOf(userID), nil
}

func (s *Store) GetVehicle(_ context.Context, userID, vehicleID int64) (*domain.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetVehicle"); err != nil {
		return nil, err
	}
	v, err := s.ownedVehicle(userID, vehicleID)
	if err != nil {
		return nil, err
	}
	c := *v
	return &c, nil
}

func (s *Store) CreateVehicle(_ context.Context, v *domain.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateVehicle"); err != nil {
		return err
	}
	if _, ok := s.users[v.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	v.ID = s.id()
	v.CreatedAt = time.Now()
	c := *v
	s.vehicles[v.ID] = &c
	return nil
}

func (s *Store) UpdateOdometer(_ context.Context, userID, vehicleID, km int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateOdometer"); err != nil {
		return err
	}
	v, err := s.ownedVehicle(userID, vehicleID)
	if err != nil {
		return err
	}
	v.KmCurrent = km
	return nil
}

func (s *Store) AddMaintenance(_ context.Context, userID int64, m *domain.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AddMaintenance"); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.ownedVehicle(userID, m.VehicleID); err != nil {
		return err
	}
	m.ID = s.id()
	m.CreatedAt = time.Now()
	c := *m
	s.maintenance[m.ID] = &c
	return nil
}

func (s *Store) CreateReminder(_ context.Context, userID int64, r *domain.Reminder) error {
	s.mu.Lock()
	if err := s.enter("CreateReminder"); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := r.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, err := s.ownedVehicle(userID, r.VehicleID); err != nil {
		s.mu.Unlock()
		return err
	}
	r.ID = s.id()
	r.Active = true
	r.CreatedAt = time.Now()
	c := *r
	s.reminders[r.ID] = &c
	due := s.dueOf(&c)
	hook := s.OnReminderCreated
	s.mu.Unlock()

	if hook != nil {
		hook(due)
	}
	return nil
}

// Session store.

func (s *Store) LoadSessions(_ context.Context) ([]domain.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("LoadSessions"); err != nil {
		return nil, err
	}
	out := make([]domain.ConversationSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Flow < out[j].Flow
	})
	return out, nil
}

func (s *Store) PutSession(_ context.Context, sess *domain.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("PutSession"); err != nil {
		return err
	}
	s.sessions[sessionKey{sess.UserID, sess.Flow}] = sess.Clone()
	return nil
}

func (s *Store) UpdateSession(_ context.Context, sess *domain.ConversationSession) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateSession"); err != nil {
		return false, err
	}
	key := sessionKey{sess.UserID, sess.Flow}
	cur, ok := s.sessions[key]
	if !ok || cur.Incarnation != sess.Incarnation {
		return false, nil
	}
	s.sessions[key] = sess.Clone()
	return true, nil
}

func (s *Store) DeleteSession(_ context.Context, userID int64, flow string, incarnation uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteSession"); err != nil {
		return err
	}
	key := sessionKey{userID, flow}
	if cur, ok := s.sessions[key]; ok && cur.Incarnation == incarnation {
		delete(s.sessions, key)
	}
	return nil
}

func (s *Store) DeleteUserSessions(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteUserSessions"); err != nil {
		return 0, err
	}
	n := 0
	for key := range s.sessions {
		if key.userID == userID {
			delete(s.sessions, key)
			n++
		}
	}
	return n, nil
}

// Scheduler store.

func (s *Store) dueOf(r *domain.Reminder) domain.ReminderDue {
	due := domain.ReminderDue{Reminder: *r}
	if v, ok := s.vehicles[r.VehicleID]; ok {
		due.VehicleName = v.DisplayName()
		due.KmCurrent = v.KmCurrent
		if u, ok := s.users[v.UserID]; ok {
			due.ChatID = u.ChatID
		}
	}
	return due
}

func (s *Store) activeWhere(match func(*domain.Reminder) bool) []domain.ReminderDue {
	var out []domain.ReminderDue
	for _, r := range s.reminders {
		if r.Active && match(r) {
			out = append(out, s.dueOf(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListActiveTimeReminders(_ context.Context) ([]domain.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActiveTimeReminders"); err != nil {
		return nil, err
	}
	return s.activeWhere(func(r *domain.Reminder) bool { return r.Kind == domain.ReminderTime }), nil
}

func (s *Store) ListActiveKmReminders(_ context.Context) ([]domain.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActiveKmReminders"); err != nil {
		return nil, err
	}
	return s.activeWhere(func(r *domain.Reminder) bool { return r.Kind == domain.ReminderKm }), nil
}

func (s *Store) ListActiveKmRemindersForVehicle(_ context.Context, vehicleID int64) ([]domain.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActiveKmRemindersForVehicle"); err != nil {
		return nil, err
	}
	return s.activeWhere(func(r *domain.Reminder) bool {
		return r.Kind == domain.ReminderKm && r.VehicleID == vehicleID
	}), nil
}

func (s *Store) GetActiveReminder(_ context.Context, id int64) (*domain.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetActiveReminder"); err != nil {
		return nil, err
	}
	r, ok := s.reminders[id]
	if !ok || !r.Active {
		return nil, domain.ErrReminderNotFound
	}
	due := s.dueOf(r)
	return &due, nil
}

func (s *Store) DeactivateReminder(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeactivateReminder"); err != nil {
		return false, err
	}
	r, ok := s.reminders[id]
	if !ok || !r.Active {
		return false, nil
	}
	r.Active = false
	return true, nil
}

// Command surface.

func (s *Store) DeleteVehicle(_ context.Context, userID, vehicleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteVehicle"); err != nil {
		return err
	}
	if _, err := s.ownedVehicle(userID, vehicleID); err != nil {
		return err
	}
	s.removeVehicle(vehicleID)
	return nil
}

// History mirrors service.MaintenanceService.History: newest first.
func (s *Store) History(_ context.Context, userID, vehicleID int64) ([]domain.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("History"); err != nil {
		return nil, err
	}
	if _, err := s.ownedVehicle(userID, vehicleID); err != nil {
		return nil, err
	}
	var out []domain.MaintenanceRecord
	for _, m := range s.maintenance {
		if m.VehicleID == vehicleID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.String() > out[j].Date.String()
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListActiveReminders(_ context.Context, userID int64) ([]domain.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListActiveReminders"); err != nil {
		return nil, err
	}
	return s.activeWhere(func(r *domain.Reminder) bool {
		v, ok := s.vehicles[r.VehicleID]
		return ok && v.UserID == userID
	}), nil
}

// CancelReminder deactivates an active reminder owned by userID.
func (s *Store) CancelReminder(_ context.Context, userID, reminderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CancelReminder"); err != nil {
		return err
	}
	r, ok := s.reminders[reminderID]
	if !ok || !r.Active {
		return domain.ErrReminderNotFound
	}
	if v, ok := s.vehicles[r.VehicleID]; !ok || v.UserID != userID {
		return domain.ErrReminderNotFound
	}
	r.Active = false
	return nil
}

// Snapshot mirrors service.ExportService.Snapshot.
func (s *Store) Snapshot(_ context.Context, userID int64) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Snapshot"); err != nil {
		return nil, err
	}
	snap := &domain.Snapshot{Vehicles: s.vehiclesOf(userID)}
	names := make(map[int64]string, len(snap.Vehicles))
	for i := range snap.Vehicles {
		names[snap.Vehicles[i].ID] = snap.Vehicles[i].DisplayName()
	}
	for _, m := range s.maintenance {
		if name, ok := names[m.VehicleID]; ok {
			snap.Maintenance = append(snap.Maintenance, domain.MaintenanceRow{MaintenanceRecord: *m, VehicleName: name})
		}
	}
	for _, r := range s.reminders {
		if name, ok := names[r.VehicleID]; ok {
			snap.Reminders = append(snap.Reminders, domain.ReminderRow{Reminder: *r, VehicleName: name})
		}
	}
	sort.Slice(snap.Maintenance, func(i, j int) bool { return snap.Maintenance[i].ID < snap.Maintenance[j].ID })
	sort.Slice(snap.Reminders, func(i, j int) bool { return snap.Reminders[i].ID < snap.Reminders[j].ID })
	return snap, nil
}
