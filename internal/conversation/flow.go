package conversation

import (
	"context"
	"strconv"
	"time"

	"github.com/looplab/fsm"
	"github.com/set-night/carlog/internal/domain"
)

// Flow names a fixed multi-step conversation.
type Flow string

const (
	FlowAddVehicle      Flow = "add_vehicle"
	FlowUpdateOdometer  Flow = "update_odometer"
	FlowAddMaintenance  Flow = "add_maintenance"
	FlowSetTimeReminder Flow = "set_time_reminder"
	FlowSetKmReminder   Flow = "set_km_reminder"
)

const (
	eventAdvance = "advance"
	eventCommit  = "commit"
	eventCancel  = "cancel"

	stateDone      = "done"
	stateCancelled = "cancelled"
)

// SkipToken leaves an optional field empty.
const SkipToken = "-"

// env is what a slot sees while prompting or parsing.
type env struct {
	ctx     context.Context
	backend Backend
	userID  int64
	now     time.Time
	data    map[string]string
}

func (e *env) vehicleID() int64 {
	id, _ := strconv.ParseInt(e.data[slotVehicle], 10, 64)
	return id
}

// slot is one field to collect.
type slot struct {
	name string

	// optional slots accept SkipToken and store "".
	optional bool

	// onSkip gives the value stored for SkipToken on a required slot
	// that has a default.
	onSkip func(e *env) string

	// selection is the action kind this slot accepts from buttons.
	selection domain.ActionKind

	// textOK lets a selection slot also accept typed text.
	textOK bool

	// skipWhen drops the slot from the path for the collected data.
	skipWhen func(data map[string]string) bool

	prompt      func(e *env) (Reply, error)
	parseText   func(e *env, text string) (string, error)
	parseAction func(e *env, a domain.Action) (string, error)
}

func (s *slot) acceptsText() bool {
	return s.selection == "" || s.textOK
}

// flowDef is the static description of a flow: the ordered slots and
// the single write performed once they are filled.
type flowDef struct {
	name         Flow
	slots        []slot
	needsVehicle bool
	commit       func(e *env) (string, error)

	events fsm.Events
}

func (d *flowDef) slotIndex(state string) int {
	for i := range d.slots {
		if d.slots[i].name == state {
			return i
		}
	}
	return -1
}

func (d *flowDef) buildEvents() {
	names := make([]string, len(d.slots))
	for i := range d.slots {
		names[i] = d.slots[i].name
	}
	events := fsm.Events{
		{Name: eventCancel, Src: names, Dst: stateCancelled},
	}
	for i := 0; i < len(names)-1; i++ {
		events = append(events, fsm.EventDesc{Name: eventAdvance, Src: []string{names[i]}, Dst: names[i+1]})
	}
	events = append(events, fsm.EventDesc{Name: eventCommit, Src: []string{names[len(names)-1]}, Dst: stateDone})
	d.events = events
}

// machine returns a transition validator positioned at state.
func (d *flowDef) machine(state string) *fsm.FSM {
	return fsm.NewFSM(state, d.events, fsm.Callbacks{})
}

// next moves m past the current slot, skipping slots that do not apply
// to data. It returns the new state, which is stateDone when the flow
// should commit.
func (d *flowDef) next(ctx context.Context, m *fsm.FSM, data map[string]string) (string, error) {
	for {
		event := eventAdvance
		if d.slotIndex(m.Current()) == len(d.slots)-1 {
			event = eventCommit
		}
		if err := m.Event(ctx, event); err != nil {
			return "", err
		}
		state := m.Current()
		if state == stateDone {
			return state, nil
		}
		s := &d.slots[d.slotIndex(state)]
		if s.skipWhen == nil || !s.skipWhen(data) {
			return state, nil
		}
	}
}

var flows = map[Flow]*flowDef{}

func register(d *flowDef) {
	d.buildEvents()
	flows[d.name] = d
}

// Flows lists the names of every registered flow.
func Flows() []Flow {
	return []Flow{FlowAddVehicle, FlowUpdateOdometer, FlowAddMaintenance, FlowSetTimeReminder, FlowSetKmReminder}
}
