package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is the prefix of an inline-button callback token.
type ActionKind string

const (
	ActionVehicle             ActionKind = "veh"
	ActionVehicleKm           ActionKind = "vehkm"
	ActionVehicleHistory      ActionKind = "vehhist"
	ActionVehicleDelete       ActionKind = "vehdel"
	ActionOdometerVehicle     ActionKind = "kmv"
	ActionMaintenanceVehicle  ActionKind = "mv"
	ActionMaintenanceType     ActionKind = "mt"
	ActionHistoryVehicle      ActionKind = "hv"
	ActionTimeReminderVehicle ActionKind = "rtv"
	ActionKmReminderVehicle   ActionKind = "rkv"
	ActionReminderCancel      ActionKind = "remdel"
	ActionCancel              ActionKind = "cancel"
	ActionNoop                ActionKind = "noop"
)

// kinds without an entity id.
var bareKinds = map[ActionKind]bool{
	ActionCancel: true,
	ActionNoop:   true,
}

var knownKinds = map[ActionKind]bool{
	ActionVehicle:             true,
	ActionVehicleKm:           true,
	ActionVehicleHistory:      true,
	ActionVehicleDelete:       true,
	ActionOdometerVehicle:     true,
	ActionMaintenanceVehicle:  true,
	ActionMaintenanceType:     true,
	ActionHistoryVehicle:      true,
	ActionTimeReminderVehicle: true,
	ActionKmReminderVehicle:   true,
	ActionReminderCancel:      true,
	ActionCancel:              true,
	ActionNoop:                true,
}

// Action is a decoded callback token. It is decoded once at the
// transport boundary; nothing downstream parses token strings.
type Action struct {
	Kind ActionKind
	ID   int64
}

// ParseAction decodes "prefix:id" (or a bare prefix for cancel/noop).
func ParseAction(data string) (Action, error) {
	prefix, idStr, hasID := strings.Cut(data, ":")
	kind := ActionKind(prefix)
	if !knownKinds[kind] {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	if bareKinds[kind] {
		if hasID {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return Action{Kind: kind}, nil
	}
	if !hasID {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 0 {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	return Action{Kind: kind, ID: id}, nil
}

// Token encodes the action back into callback data.
func (a Action) Token() string {
	if bareKinds[a.Kind] {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s:%d", a.Kind, a.ID)
}
