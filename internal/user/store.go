// Package user persists user identities created by the auth callback.
//
// Identity itself comes from the external auth provider; this store only
// mirrors the provider's user id and email so files and messages have an
// owner to reference.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// ErrNotFound indicates the user has never completed the auth callback.
var ErrNotFound = errors.New("user not found")

// User is a registered account.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Querier defines the database operations Store needs.
type Querier interface {
	UpsertUser(ctx context.Context, arg sqlc.UpsertUserParams) (sqlc.User, error)
	GetUser(ctx context.Context, id string) (sqlc.User, error)
}

// Store manages user records in PostgreSQL.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default().
func NewStore(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, logger: logger}
}

// Upsert records the user on first auth callback and refreshes the email on
// subsequent ones.
func (s *Store) Upsert(ctx context.Context, id, email string) (*User, error) {
	row, err := s.queries.UpsertUser(ctx, sqlc.UpsertUserParams{ID: id, Email: email})
	if err != nil {
		return nil, fmt.Errorf("upserting user %q: %w", id, err)
	}

	s.logger.Debug("upserted user", "id", id)
	return &User{ID: row.ID, Email: row.Email, CreatedAt: row.CreatedAt.Time}, nil
}

// Get retrieves a user by provider id.
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	row, err := s.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &User{ID: row.ID, Email: row.Email, CreatedAt: row.CreatedAt.Time}, nil
}
