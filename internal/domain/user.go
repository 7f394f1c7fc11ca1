package domain

import "time"

// User is one chat identity. Created lazily on first interaction.
type User struct {
	ID        int64
	ChatID    int64
	CreatedAt time.Time
}
