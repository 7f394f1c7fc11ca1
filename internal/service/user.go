package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/repository"
)

type UserService struct {
	db      *pgxpool.Pool
	queries *repository.Queries
}

func NewUserService(db *pgxpool.Pool, queries *repository.Queries) *UserService {
	return &UserService{db: db, queries: queries}
}

// FindOrCreate returns the user bound to chatID, creating it on first
// contact. The bool reports whether the row was just created.
func (s *UserService) FindOrCreate(ctx context.Context, chatID int64) (*domain.User, bool, error) {
	row, err := s.queries.GetUserByChatID(ctx, chatID)
	if err == nil {
		return rowToUser(row), false, nil
	}
	if !isNoRows(err) {
		return nil, false, persistErr("get user", err, nil)
	}

	row, created, err := s.queries.UpsertUser(ctx, chatID)
	if err != nil {
		return nil, false, persistErr("create user", err, nil)
	}
	return rowToUser(row), created, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return nil, persistErr("get user by id", err, domain.ErrUserNotFound)
	}
	return rowToUser(row), nil
}

func rowToUser(row repository.User) *domain.User {
	return &domain.User{
		ID:        row.ID,
		ChatID:    row.ChatID,
		CreatedAt: pgTimestamptzToTime(row.CreatedAt),
	}
}
