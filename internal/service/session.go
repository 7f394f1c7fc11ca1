package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

// SessionService persists conversation sessions for the engine.
type SessionService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewSessionService(db *pgxpool.Pool, queries *repository.Queries) *SessionService {
	return &SessionService{db: db, queries: queries}
}

func (s *SessionService) LoadSessions(ctx context.Context) ([]domain.ConversationSession, error) {
	rows, err := s.queries.ListSessions(ctx)
	if err != nil {
		return nil, persistErr("list sessions", err, nil)
	}
	out := make([]domain.ConversationSession, len(rows))
	for i, row := range rows {
		out[i] = rowToSession(row)
	}
	return out, nil
}

// PutSession stores sess unconditionally, replacing any older incarnation.
func (s *SessionService) PutSession(ctx context.Context, sess *domain.ConversationSession) error {
	if err := s.queries.UpsertSession(ctx, sessionParams(sess)); err != nil {
		return persistErr("save session", err, nil)
	}
	return nil
}

// UpdateSession writes sess only if the stored incarnation still matches.
func (s *SessionService) UpdateSession(ctx context.Context, sess *domain.ConversationSession) (bool, error) {
	ok, err := s.queries.UpdateSessionIfCurrent(ctx, sessionParams(sess))
	if err != nil {
		return false, persistErr("update session", err, nil)
	}
	return ok, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, userID int64, flow string, incarnation uuid.UUID) error {
	if err := s.queries.DeleteSession(ctx, userID, flow, incarnation); err != nil {
		return persistErr("delete session", err, nil)
	}
	return nil
}

func (s *SessionService) DeleteUserSessions(ctx context.Context, userID int64) (int, error) {
	n, err := s.queries.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, persistErr("delete user sessions", err, nil)
	}
	return int(n), nil
}

func sessionParams(sess *domain.ConversationSession) repository.SaveSessionParams {
	return repository.SaveSessionParams{
		UserID:      sess.UserID,
		Flow:        sess.Flow,
		State:       sess.State,
		Data:        sess.Data,
		Incarnation: sess.Incarnation,
	}
}
