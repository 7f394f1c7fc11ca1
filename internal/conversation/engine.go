// Package conversation runs the multi-step chat flows that collect a
// vehicle, an odometer reading, a maintenance record or a reminder.
//
// Each (user, flow) pair owns at most one session. A session moves
// through the flow's slots one input at a time and writes nothing but
// itself until the last slot is filled, at which point the flow commits
// exactly one record through the Backend. Sessions are stored durably
// and indexed in memory; Restore rebuilds the index after a restart.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/carlog/internal/clock"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/keylock"
)

// Backend is where committed flows write. Every method is a single
// persistence call.
type Backend interface {
	ListVehicles(ctx context.Context, userID int64) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, userID, vehicleID int64) (*domain.Vehicle, error)
	CreateVehicle(ctx context.Context, v *domain.Vehicle) error
	UpdateOdometer(ctx context.Context, userID, vehicleID, km int64) error
	AddMaintenance(ctx context.Context, userID int64, m *domain.MaintenanceRecord) error
	CreateReminder(ctx context.Context, userID int64, r *domain.Reminder) error
}

// SessionStore persists sessions between restarts.
type SessionStore interface {
	LoadSessions(ctx context.Context) ([]domain.ConversationSession, error)
	PutSession(ctx context.Context, sess *domain.ConversationSession) error
	// UpdateSession reports false when the stored incarnation differs.
	UpdateSession(ctx context.Context, sess *domain.ConversationSession) (bool, error)
	DeleteSession(ctx context.Context, userID int64, flow string, incarnation uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID int64) (int, error)
}

const (
	noVehiclesText    = "You have no vehicles yet. Add one with /add_vehicle."
	retryText         = "⚠️ Could not save right now. Please send that again in a moment."
	expiredText       = "This conversation has expired. Start again from the menu."
	nothingToCancel   = "Nothing to cancel."
	cancelledText     = "Cancelled."
	vehicleGoneText   = "That vehicle no longer exists."
	somethingGoneText = "That item no longer exists."
)

type Engine struct {
	backend Backend
	store   SessionStore
	clock   clock.Clock
	loc     *time.Location
	locks   *keylock.Map[int64]

	mu       sync.Mutex
	sessions map[int64]map[Flow]*domain.ConversationSession
}

func NewEngine(backend Backend, store SessionStore, clk clock.Clock, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		backend:  backend,
		store:    store,
		clock:    clk,
		loc:      loc,
		locks:    keylock.New[int64](),
		sessions: make(map[int64]map[Flow]*domain.ConversationSession),
	}
}

type startConfig struct {
	vehicleID int64
}

type StartOption func(*startConfig)

// WithVehicle fills the vehicle slot up front, as when the flow is
// started from a vehicle card.
func WithVehicle(id int64) StartOption {
	return func(c *startConfig) { c.vehicleID = id }
}

// Start begins flow for userID, replacing any session of the same flow.
func (e *Engine) Start(ctx context.Context, userID int64, flow Flow, opts ...StartOption) (Reply, error) {
	def, ok := flows[flow]
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownFlow, flow)
	}
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	sess := &domain.ConversationSession{
		UserID:      userID,
		Flow:        string(flow),
		State:       def.slots[0].name,
		Data:        map[string]string{},
		Incarnation: uuid.New(),
		UpdatedAt:   e.clock.Now(),
	}
	ev := e.env(ctx, userID, sess.Data)

	if def.needsVehicle {
		if cfg.vehicleID != 0 {
			v, err := e.backend.GetVehicle(ctx, userID, cfg.vehicleID)
			if err != nil {
				if domain.IsNotFound(err) {
					return Reply{Text: vehicleGoneText, Done: true}, nil
				}
				return Reply{}, err
			}
			sess.Data[slotVehicle] = strconv.FormatInt(v.ID, 10)
			state, err := def.next(ctx, def.machine(sess.State), sess.Data)
			if err != nil {
				return Reply{}, fmt.Errorf("preset vehicle in %s: %w", flow, err)
			}
			sess.State = state
		} else {
			vehicles, err := e.backend.ListVehicles(ctx, userID)
			if err != nil {
				return Reply{}, err
			}
			if len(vehicles) == 0 {
				return Reply{Text: noVehiclesText, Done: true}, nil
			}
		}
	}

	reply, err := e.prompt(ev, def, sess.State)
	if err != nil {
		return Reply{}, err
	}
	if err := e.store.PutSession(ctx, sess); err != nil {
		return Reply{}, err
	}
	e.put(sess)
	return reply, nil
}

// Handle feeds one input to the session it belongs to. handled is false
// when no session claims the input, so the caller can treat it as a
// menu command.
func (e *Engine) Handle(ctx context.Context, userID int64, in Input) (reply Reply, handled bool, err error) {
	if in.Action != nil && in.Action.Kind == domain.ActionCancel {
		n, err := e.Cancel(ctx, userID)
		if n == 0 && err == nil {
			return Reply{Text: nothingToCancel, Done: true}, true, nil
		}
		return Reply{Text: cancelledText, Done: true}, true, err
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, def := e.route(userID, in)
	if sess == nil {
		return Reply{}, false, nil
	}
	reply, err = e.step(ctx, sess, def, in)
	return reply, true, err
}

// Cancel ends every session of userID without committing. It returns
// how many sessions were open.
func (e *Engine) Cancel(ctx context.Context, userID int64) (int, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	e.mu.Lock()
	open := e.sessions[userID]
	delete(e.sessions, userID)
	e.mu.Unlock()

	for flow, sess := range open {
		if err := flows[flow].machine(sess.State).Event(ctx, eventCancel); err != nil {
			slog.Warn("cancel from unexpected state", "error", err, "flow", flow, "state", sess.State, "user_id", userID)
		}
	}

	if _, err := e.store.DeleteUserSessions(ctx, userID); err != nil {
		return len(open), fmt.Errorf("cancel sessions: %w", err)
	}
	return len(open), nil
}

// Restore loads stored sessions into memory. Sessions that refer to a
// flow or slot that no longer exists are deleted.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	stored, err := e.store.LoadSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sessions: %w", err)
	}

	n := 0
	for i := range stored {
		sess := stored[i]
		def, ok := flows[Flow(sess.Flow)]
		if !ok || def.slotIndex(sess.State) < 0 {
			slog.Warn("dropping unknown conversation session", "user_id", sess.UserID, "flow", sess.Flow, "state", sess.State)
			if err := e.store.DeleteSession(ctx, sess.UserID, sess.Flow, sess.Incarnation); err != nil {
				slog.Error("delete unknown session", "error", err, "user_id", sess.UserID)
			}
			continue
		}
		if sess.Data == nil {
			sess.Data = map[string]string{}
		}
		e.put(&sess)
		n++
	}
	return n, nil
}

// Session returns a copy of the user's session for flow.
func (e *Engine) Session(userID int64, flow Flow) (*domain.ConversationSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[userID][flow]
	if !ok {
		return nil, ErrNoSession
	}
	return sess.Clone(), nil
}

// route picks the session an input belongs to. Selections go to the
// session whose current slot expects that action kind. Free text goes
// to the only open session, if there is exactly one.
func (e *Engine) route(userID int64, in Input) (*domain.ConversationSession, *flowDef) {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := e.sessions[userID]
	if len(open) == 0 {
		return nil, nil
	}
	if in.Action != nil {
		for _, flow := range Flows() {
			sess, ok := open[flow]
			if !ok {
				continue
			}
			def := flows[flow]
			if idx := def.slotIndex(sess.State); idx >= 0 && def.slots[idx].selection == in.Action.Kind {
				return sess.Clone(), def
			}
		}
		return nil, nil
	}
	if len(open) != 1 {
		return nil, nil
	}
	for flow, sess := range open {
		return sess.Clone(), flows[flow]
	}
	return nil, nil
}

func (e *Engine) step(ctx context.Context, sess *domain.ConversationSession, def *flowDef, in Input) (Reply, error) {
	ev := e.env(ctx, sess.UserID, sess.Data)
	idx := def.slotIndex(sess.State)
	if idx < 0 {
		e.drop(ctx, sess)
		return Reply{Text: expiredText, Done: true}, nil
	}
	s := &def.slots[idx]

	value, err := parseInput(ev, s, in)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			return e.reprompt(ev, s, verr)
		case domain.IsNotFound(err):
			e.drop(ctx, sess)
			return notFoundReply(err), nil
		default:
			return Reply{}, err
		}
	}
	sess.Data[s.name] = value

	state, err := def.next(ctx, def.machine(sess.State), sess.Data)
	if err != nil {
		return Reply{}, fmt.Errorf("advance %s from %s: %w", def.name, sess.State, err)
	}
	if state == stateDone {
		return e.commit(ctx, ev, def, sess)
	}

	sess.State = state
	sess.UpdatedAt = e.clock.Now()
	reply, err := e.prompt(ev, def, state)
	if err != nil {
		if domain.IsNotFound(err) {
			e.drop(ctx, sess)
			return notFoundReply(err), nil
		}
		return Reply{}, err
	}

	ok, err := e.store.UpdateSession(ctx, sess)
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		e.forget(sess)
		return Reply{}, ErrStaleSession
	}
	e.put(sess)
	return reply, nil
}

// commit performs the flow's single write. The session survives only a
// transient storage failure, positioned on the same slot so the user
// can resend the last answer.
func (e *Engine) commit(ctx context.Context, ev *env, def *flowDef, sess *domain.ConversationSession) (Reply, error) {
	text, err := def.commit(ev)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case domain.IsNotFound(err):
			e.drop(ctx, sess)
			return notFoundReply(err), nil
		case errors.As(err, &verr):
			e.drop(ctx, sess)
			return Reply{Text: "⚠️ Could not save: expected " + html.EscapeString(verr.Expected) + ".", Done: true}, nil
		default:
			slog.Error("commit conversation", "error", err, "flow", def.name, "user_id", sess.UserID)
			return Reply{Text: retryText, Choices: []Choice{cancelChoice()}}, nil
		}
	}
	e.drop(ctx, sess)
	return Reply{Text: text, Done: true}, nil
}

func parseInput(ev *env, s *slot, in Input) (string, error) {
	if in.Action != nil {
		if s.selection == "" || in.Action.Kind != s.selection || s.parseAction == nil {
			return "", &domain.ValidationError{Field: s.name, Expected: "an answer to the current question"}
		}
		return s.parseAction(ev, *in.Action)
	}

	if !s.acceptsText() {
		return "", &domain.ValidationError{Field: s.name, Expected: "a choice from the buttons"}
	}
	text := strings.TrimSpace(in.Text)
	if text == SkipToken {
		switch {
		case s.onSkip != nil:
			return s.onSkip(ev), nil
		case s.optional:
			return "", nil
		default:
			return "", &domain.ValidationError{Field: s.name, Expected: "a value, this step cannot be skipped"}
		}
	}
	return s.parseText(ev, text)
}

func (e *Engine) prompt(ev *env, def *flowDef, state string) (Reply, error) {
	idx := def.slotIndex(state)
	if idx < 0 {
		return Reply{}, fmt.Errorf("%s has no slot %q", def.name, state)
	}
	return def.slots[idx].prompt(ev)
}

func (e *Engine) reprompt(ev *env, s *slot, verr *domain.ValidationError) (Reply, error) {
	reply, err := s.prompt(ev)
	if err != nil {
		return Reply{}, err
	}
	reply.Text = "⚠️ Expected " + html.EscapeString(verr.Expected) + ".\n\n" + reply.Text
	return reply, nil
}

func (e *Engine) env(ctx context.Context, userID int64, data map[string]string) *env {
	return &env{
		ctx:     ctx,
		backend: e.backend,
		userID:  userID,
		now:     e.clock.Now().In(e.loc),
		data:    data,
	}
}

func (e *Engine) put(sess *domain.ConversationSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	open, ok := e.sessions[sess.UserID]
	if !ok {
		open = make(map[Flow]*domain.ConversationSession)
		e.sessions[sess.UserID] = open
	}
	open[Flow(sess.Flow)] = sess
}

// forget removes sess from memory if it is still the indexed incarnation.
func (e *Engine) forget(sess *domain.ConversationSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	open := e.sessions[sess.UserID]
	if cur, ok := open[Flow(sess.Flow)]; ok && cur.Incarnation == sess.Incarnation {
		delete(open, Flow(sess.Flow))
		if len(open) == 0 {
			delete(e.sessions, sess.UserID)
		}
	}
}

func (e *Engine) drop(ctx context.Context, sess *domain.ConversationSession) {
	e.forget(sess)
	if err := e.store.DeleteSession(ctx, sess.UserID, sess.Flow, sess.Incarnation); err != nil {
		slog.Error("delete conversation session", "error", err, "user_id", sess.UserID, "flow", sess.Flow)
	}
}

func notFoundReply(err error) Reply {
	if errors.Is(err, domain.ErrVehicleNotFound) {
		return Reply{Text: vehicleGoneText, Done: true}
	}
	return Reply{Text: somethingGoneText, Done: true}
}
