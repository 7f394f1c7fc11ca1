package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/carlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	chatID int64
	text   string
}

type recordingSender struct {
	err  error
	sent []sent
}

func (s *recordingSender) SendHTML(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{chatID, text})
	return nil
}

func TestDeliverTimeReminder(t *testing.T) {
	due := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	sender := &recordingSender{}
	d := NewDispatcher(sender, time.UTC)

	r := domain.ReminderDue{
		Reminder:    domain.Reminder{ID: 1, Kind: domain.ReminderTime, DueAt: &due, Description: "Road tax <2025>"},
		ChatID:      42,
		VehicleName: "Red Panda",
	}
	require.NoError(t, d.Deliver(context.Background(), r))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "Road tax &lt;2025&gt;")
	assert.Contains(t, sender.sent[0].text, "Red Panda")
	assert.Contains(t, sender.sent[0].text, "2025-09-01 09:00")
}

func TestKmReminderTextIsDeterministic(t *testing.T) {
	threshold := int64(10000)
	r := domain.ReminderDue{
		Reminder:    domain.Reminder{ID: 2, Kind: domain.ReminderKm, KmThreshold: &threshold, Description: "Oil change"},
		VehicleName: "Panda",
		KmCurrent:   10250,
	}
	assert.Equal(t, KmReminderText(r), KmReminderText(r))
	assert.Contains(t, KmReminderText(r), "10000 km")
	assert.Contains(t, KmReminderText(r), "10250 km")
}

func TestNotifyWrapsTransportFailure(t *testing.T) {
	cause := errors.New("chat not found")
	d := NewDispatcher(&recordingSender{err: cause}, nil)

	err := d.Notify(context.Background(), 7, "hi")
	var derr *domain.DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, int64(7), derr.ChatID)
	assert.ErrorIs(t, err, cause)
}

func TestDeliverRejectsUnknownKind(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, nil)
	err := d.Deliver(context.Background(), domain.ReminderDue{Reminder: domain.Reminder{Kind: "weekly"}})
	assert.Error(t, err)
}
