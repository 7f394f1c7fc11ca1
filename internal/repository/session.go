package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `user_id, flow, state, data, incarnation, updated_at`

func sessionDest(s *ConversationSession) []any {
	return []any{&s.UserID, &s.Flow, &s.State, &s.Data, &s.Incarnation, &s.UpdatedAt}
}

const listSessions = `
SELECT ` + sessionColumns + ` FROM conversation_sessions ORDER BY user_id, updated_at
`

func (q *Queries) ListSessions(ctx context.Context) ([]ConversationSession, error) {
	rows, err := q.db.Query(ctx, listSessions)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ConversationSession, error) {
		var s ConversationSession
		err := row.Scan(sessionDest(&s)...)
		return s, err
	})
}

type SaveSessionParams struct {
	UserID      int64
	Flow        string
	State       string
	Data        map[string]string
	Incarnation uuid.UUID
}

// Starting a flow replaces whatever incarnation was stored before.
const upsertSession = `
INSERT INTO conversation_sessions (user_id, flow, state, data, incarnation, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (user_id, flow) DO UPDATE
SET state = EXCLUDED.state, data = EXCLUDED.data, incarnation = EXCLUDED.incarnation, updated_at = NOW()
`

func (q *Queries) UpsertSession(ctx context.Context, arg SaveSessionParams) error {
	_, err := q.db.Exec(ctx, upsertSession, arg.UserID, arg.Flow, arg.State, arg.Data, arg.Incarnation)
	return err
}

const updateSessionIfCurrent = `
UPDATE conversation_sessions
SET state = $3, data = $4, updated_at = NOW()
WHERE user_id = $1 AND flow = $2 AND incarnation = $5
`

// UpdateSessionIfCurrent reports false when the stored incarnation no
// longer matches.
func (q *Queries) UpdateSessionIfCurrent(ctx context.Context, arg SaveSessionParams) (bool, error) {
	tag, err := q.db.Exec(ctx, updateSessionIfCurrent, arg.UserID, arg.Flow, arg.State, arg.Data, arg.Incarnation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const deleteSession = `
DELETE FROM conversation_sessions WHERE user_id = $1 AND flow = $2 AND incarnation = $3
`

func (q *Queries) DeleteSession(ctx context.Context, userID int64, flow string, incarnation uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteSession, userID, flow, incarnation)
	return err
}

const deleteUserSessions = `
DELETE FROM conversation_sessions WHERE user_id = $1
`

func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteUserSessions, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
