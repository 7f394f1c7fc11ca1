// Package notify turns fired reminders into chat messages.
package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/set-night/carlog/internal/domain"
)

// Sender delivers HTML text to a chat.
type Sender interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
}

type Dispatcher struct {
	sender Sender
	loc    *time.Location
}

// NewDispatcher renders due dates in loc.
func NewDispatcher(sender Sender, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{sender: sender, loc: loc}
}

// Notify sends text to chatID. Transport failures come back as
// *domain.DeliveryError.
func (d *Dispatcher) Notify(ctx context.Context, chatID int64, text string) error {
	if err := d.sender.SendHTML(ctx, chatID, text); err != nil {
		return &domain.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// Deliver formats r for its kind and sends it to the owner's chat.
func (d *Dispatcher) Deliver(ctx context.Context, r domain.ReminderDue) error {
	var text string
	switch r.Kind {
	case domain.ReminderTime:
		if r.DueAt != nil {
			local := r.DueAt.In(d.loc)
			r.DueAt = &local
		}
		text = TimeReminderText(r)
	case domain.ReminderKm:
		text = KmReminderText(r)
	default:
		return fmt.Errorf("unknown reminder kind %q", r.Kind)
	}
	return d.Notify(ctx, r.ChatID, text)
}

// TimeReminderText is the message for a due time reminder.
func TimeReminderText(r domain.ReminderDue) string {
	when := ""
	if r.DueAt != nil {
		when = " (" + r.DueAt.Format("2006-01-02 15:04") + ")"
	}
	return fmt.Sprintf("⏰ <b>Reminder</b>: %s\nVehicle: %s%s",
		html.EscapeString(r.Description),
		html.EscapeString(r.VehicleName),
		when,
	)
}

// KmReminderText is the message for a reached km threshold.
func KmReminderText(r domain.ReminderDue) string {
	var threshold int64
	if r.KmThreshold != nil {
		threshold = *r.KmThreshold
	}
	return fmt.Sprintf("⏰ <b>Km reminder</b>: %s\nVehicle: %s\nThreshold %d km reached (odometer %d km).",
		html.EscapeString(r.Description),
		html.EscapeString(r.VehicleName),
		threshold,
		r.KmCurrent,
	)
}
