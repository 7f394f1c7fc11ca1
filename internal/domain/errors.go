package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrVehicleNotFound  = errors.New("vehicle not found")
	ErrReminderNotFound = errors.New("reminder not found")
	ErrUnknownAction    = errors.New("unknown callback action")
)

// IsNotFound reports whether err refers to an entity that no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrReminderNotFound)
}

// ValidationError is malformed user input. The conversation stays on the
// current step and re-prompts with Expected.
type ValidationError struct {
	Field    string
	Expected string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: expected %s", e.Field, e.Expected)
}

// PersistenceError is a storage failure. It is transient from the user's
// point of view: the current step can be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError is a failure to hand a notification to the transport.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to chat %d: %v", e.ChatID, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }
