package message

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// DefaultPageLimit bounds List when the caller passes limit <= 0.
const DefaultPageLimit = 10

// Querier defines the database operations Store needs. Defined by the
// consumer so tests can substitute a mock for the sqlc implementation.
type Querier interface {
	AddMessage(ctx context.Context, arg sqlc.AddMessageParams) (sqlc.Message, error)
	RecentMessages(ctx context.Context, arg sqlc.RecentMessagesParams) ([]sqlc.Message, error)
	ListMessagesBefore(ctx context.Context, arg sqlc.ListMessagesBeforeParams) ([]sqlc.Message, error)
}

// Store manages conversation messages in PostgreSQL.
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

// Append adds one message to the conversation.
func (s *Store) Append(ctx context.Context, fileID uuid.UUID, userID, text string, isUserMessage bool) (*Message, error) {
	row, err := s.queries.AddMessage(ctx, sqlc.AddMessageParams{
		Text:          text,
		IsUserMessage: isUserMessage,
		FileID:        pgtype.UUID{Bytes: fileID, Valid: true},
		UserID:        userID,
	})
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	m := fromRow(row)
	s.logger.Debug("appended message", "id", m.ID, "file_id", fileID, "is_user", isUserMessage)
	return &m, nil
}

// Recent returns the most recent n messages for the file ordered
// oldest→newest, ready for prompt assembly.
func (s *Store) Recent(ctx context.Context, fileID uuid.UUID, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.queries.RecentMessages(ctx, sqlc.RecentMessagesParams{
		FileID:      pgtype.UUID{Bytes: fileID, Valid: true},
		RecentLimit: int32(n),
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, fromRow(row))
	}
	return messages, nil
}

// List returns one page of the conversation, newest first. A zero cursor
// starts from the latest message; NextCursor feeds the following call.
func (s *Store) List(ctx context.Context, fileID uuid.UUID, cursor Cursor, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var before pgtype.Timestamptz
	var cursorID pgtype.UUID
	if !cursor.IsZero() {
		before = pgtype.Timestamptz{Time: cursor.CreatedAt, Valid: true}
		cursorID = pgtype.UUID{Bytes: cursor.ID, Valid: true}
	}

	rows, err := s.queries.ListMessagesBefore(ctx, sqlc.ListMessagesBeforeParams{
		FileID:        pgtype.UUID{Bytes: fileID, Valid: true},
		CreatedBefore: before,
		CursorID:      cursorID,
		PageLimit:     int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	page := &Page{Messages: make([]Message, 0, len(rows))}
	for _, row := range rows {
		page.Messages = append(page.Messages, fromRow(row))
	}
	// A full page means there may be older messages behind the last one.
	if len(rows) == limit {
		last := page.Messages[len(page.Messages)-1]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

func fromRow(row sqlc.Message) Message {
	return Message{
		ID:            uuid.UUID(row.ID.Bytes),
		Text:          row.Text,
		IsUserMessage: row.IsUserMessage,
		FileID:        uuid.UUID(row.FileID.Bytes),
		UserID:        row.UserID,
		CreatedAt:     row.CreatedAt.Time,
	}
}
