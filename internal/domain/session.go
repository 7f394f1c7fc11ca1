package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversationSession is the durable state of one multi-step flow.
// (UserID, Flow) is unique. Incarnation changes every time the flow is
// restarted, so a step computed against an older incarnation can be
// rejected.
type ConversationSession struct {
	UserID      int64
	Flow        string
	State       string
	Data        map[string]string
	Incarnation uuid.UUID
	UpdatedAt   time.Time
}

// Clone returns a deep copy so callers can mutate Data freely.
func (s *ConversationSession) Clone() *ConversationSession {
	c := *s
	c.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return &c
}
