package repository

import "context"

const getUserByChatID = `
SELECT id, chat_id, created_at FROM users WHERE chat_id = $1
`

func (q *Queries) GetUserByChatID(ctx context.Context, chatID int64) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByChatID, chatID).Scan(&u.ID, &u.ChatID, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, chat_id, created_at FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).Scan(&u.ID, &u.ChatID, &u.CreatedAt)
	return u, err
}

// Two concurrent first messages from one chat must both end up with the
// same row.
const upsertUser = `
INSERT INTO users (chat_id) VALUES ($1)
ON CONFLICT (chat_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
RETURNING id, chat_id, created_at, (xmax = 0) AS inserted
`

func (q *Queries) UpsertUser(ctx context.Context, chatID int64) (User, bool, error) {
	var (
		u        User
		inserted bool
	)
	err := q.db.QueryRow(ctx, upsertUser, chatID).Scan(&u.ID, &u.ChatID, &u.CreatedAt, &inserted)
	return u, inserted, err
}
