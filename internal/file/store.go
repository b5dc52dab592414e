package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// Querier defines the database operations Store needs. Defined by the
// consumer so tests can substitute a mock for the sqlc implementation.
type Querier interface {
	CreateFile(ctx context.Context, arg sqlc.CreateFileParams) (sqlc.File, error)
	GetFile(ctx context.Context, id pgtype.UUID) (sqlc.File, error)
	GetFileForUser(ctx context.Context, arg sqlc.GetFileForUserParams) (sqlc.File, error)
	GetFileByKey(ctx context.Context, arg sqlc.GetFileByKeyParams) (sqlc.File, error)
	ListFilesByUser(ctx context.Context, userID string) ([]sqlc.File, error)
	UpdateFileStatus(ctx context.Context, arg sqlc.UpdateFileStatusParams) (int64, error)
	DeleteFile(ctx context.Context, arg sqlc.DeleteFileParams) (int64, error)
}

// Store manages file records in PostgreSQL.
// It is safe for concurrent use by multiple goroutines.
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

// Create inserts a new file record in the given status.
// A key collision returns ErrDuplicateKey.
func (s *Store) Create(ctx context.Context, key, name, url, userID string, status Status) (*File, error) {
	row, err := s.queries.CreateFile(ctx, sqlc.CreateFileParams{
		Key:          key,
		Name:         name,
		Url:          url,
		UploadStatus: string(status),
		UserID:       userID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		return nil, fmt.Errorf("creating file: %w", err)
	}

	f := fromRow(row)
	s.logger.Debug("created file", "id", f.ID, "key", key, "status", status)
	return f, nil
}

// ByID retrieves a file regardless of owner. Missing rows map to ErrNotFound.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*File, error) {
	row, err := s.queries.GetFile(ctx, pgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting file %s: %w", id, err)
	}
	return fromRow(row), nil
}

// ByIDForUser retrieves a file only if it is owned by userID.
// A missing or foreign file maps to ErrNotFound; ownership violations are
// indistinguishable from absence by design.
func (s *Store) ByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*File, error) {
	row, err := s.queries.GetFileForUser(ctx, sqlc.GetFileForUserParams{
		ID:     pgUUID(id),
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting file %s for user: %w", id, err)
	}
	return fromRow(row), nil
}

// ByKey retrieves the user's file with the given storage key.
func (s *Store) ByKey(ctx context.Context, key, userID string) (*File, error) {
	row, err := s.queries.GetFileByKey(ctx, sqlc.GetFileByKeyParams{
		Key:    key,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting file by key %q: %w", key, err)
	}
	return fromRow(row), nil
}

// ListByUser returns all files owned by userID, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*File, error) {
	rows, err := s.queries.ListFilesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]*File, 0, len(rows))
	for _, row := range rows {
		files = append(files, fromRow(row))
	}
	return files, nil
}

// SetStatus transitions the file's upload status. The update is guarded in
// SQL: once a file reaches SUCCESS or FAILED the row no longer matches and
// ErrTerminalStatus is returned, so a terminal state is written exactly once
// and never oscillates.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	affected, err := s.queries.UpdateFileStatus(ctx, sqlc.UpdateFileStatusParams{
		ID:           pgUUID(id),
		UploadStatus: string(status),
	})
	if err != nil {
		return fmt.Errorf("updating file %s status: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", ErrTerminalStatus, id)
	}

	s.logger.Debug("updated file status", "id", id, "status", status)
	return nil
}

// Delete removes the user's file. Messages and chunks cascade in the schema.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	affected, err := s.queries.DeleteFile(ctx, sqlc.DeleteFileParams{
		ID:     pgUUID(id),
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("deleting file %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted file", "id", id)
	return nil
}

func fromRow(row sqlc.File) *File {
	return &File{
		ID:        uuid.UUID(row.ID.Bytes),
		Key:       row.Key,
		Name:      row.Name,
		URL:       row.Url,
		Status:    Status(row.UploadStatus),
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt.Time,
	}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
