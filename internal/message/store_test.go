package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	addErr    error
	recentErr error
	listErr   error

	recentRows []sqlc.Message
	listRows   []sqlc.Message

	lastAddParams    sqlc.AddMessageParams
	lastRecentParams sqlc.RecentMessagesParams
	lastListParams   sqlc.ListMessagesBeforeParams
}

func (m *mockQuerier) AddMessage(_ context.Context, arg sqlc.AddMessageParams) (sqlc.Message, error) {
	m.lastAddParams = arg
	if m.addErr != nil {
		return sqlc.Message{}, m.addErr
	}
	return sqlc.Message{
		ID:            pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Text:          arg.Text,
		IsUserMessage: arg.IsUserMessage,
		FileID:        arg.FileID,
		UserID:        arg.UserID,
		CreatedAt:     pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}, nil
}

func (m *mockQuerier) RecentMessages(_ context.Context, arg sqlc.RecentMessagesParams) ([]sqlc.Message, error) {
	m.lastRecentParams = arg
	return m.recentRows, m.recentErr
}

func (m *mockQuerier) ListMessagesBefore(_ context.Context, arg sqlc.ListMessagesBeforeParams) ([]sqlc.Message, error) {
	m.lastListParams = arg
	return m.listRows, m.listErr
}

func msgRow(text string, isUser bool, at time.Time) sqlc.Message {
	return sqlc.Message{
		ID:            pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Text:          text,
		IsUserMessage: isUser,
		FileID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID:        "user-1",
		CreatedAt:     pgtype.Timestamptz{Time: at, Valid: true},
	}
}

func TestMessage_Role(t *testing.T) {
	if got := (Message{IsUserMessage: true}).Role(); got != RoleUser {
		t.Errorf("Role() = %q, want user", got)
	}
	if got := (Message{IsUserMessage: false}).Role(); got != RoleAssistant {
		t.Errorf("Role() = %q, want assistant", got)
	}
}

func TestStore_Append(t *testing.T) {
	querier := &mockQuerier{}
	store := NewStore(querier, log.NewNop())

	fileID := uuid.New()
	m, err := store.Append(context.Background(), fileID, "user-1", "What is the total?", true)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !m.IsUserMessage || m.Text != "What is the total?" {
		t.Errorf("message = %+v", m)
	}
	if querier.lastAddParams.FileID != (pgtype.UUID{Bytes: fileID, Valid: true}) {
		t.Errorf("file id param = %v", querier.lastAddParams.FileID)
	}
}

func TestStore_Append_Error(t *testing.T) {
	addErr := errors.New("connection refused")
	store := NewStore(&mockQuerier{addErr: addErr}, log.NewNop())

	_, err := store.Append(context.Background(), uuid.New(), "user-1", "hi", true)
	if !errors.Is(err, addErr) {
		t.Fatalf("error = %v, want wrapped add error", err)
	}
}

func TestStore_Recent(t *testing.T) {
	base := time.Now()
	querier := &mockQuerier{recentRows: []sqlc.Message{
		msgRow("q1", true, base.Add(-2*time.Minute)),
		msgRow("a1", false, base.Add(-time.Minute)),
		msgRow("q2", true, base),
	}}
	store := NewStore(querier, log.NewNop())

	msgs, err := store.Recent(context.Background(), uuid.New(), 6)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if querier.lastRecentParams.RecentLimit != 6 {
		t.Errorf("limit = %d, want 6", querier.lastRecentParams.RecentLimit)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Oldest first, roles mapped from is_user_message.
	if msgs[0].Text != "q1" || msgs[0].Role() != RoleUser {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Role() != RoleAssistant {
		t.Errorf("second message role = %q", msgs[1].Role())
	}
}

func TestStore_Recent_ZeroLimit(t *testing.T) {
	querier := &mockQuerier{}
	store := NewStore(querier, log.NewNop())

	msgs, err := store.Recent(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if msgs != nil {
		t.Errorf("got %v, want nil without touching the database", msgs)
	}
}

func TestStore_List_Pagination(t *testing.T) {
	base := time.Now()
	querier := &mockQuerier{listRows: []sqlc.Message{
		msgRow("newest", false, base),
		msgRow("older", true, base.Add(-time.Minute)),
	}}
	store := NewStore(querier, log.NewNop())

	page, err := store.List(context.Background(), uuid.New(), Cursor{}, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if querier.lastListParams.CreatedBefore.Valid || querier.lastListParams.CursorID.Valid {
		t.Error("zero cursor should not set the cursor filter")
	}
	// Full page: cursor points at the last returned message.
	if page.NextCursor.IsZero() {
		t.Error("full page should carry a next cursor")
	}
	last := page.Messages[1]
	if !page.NextCursor.CreatedAt.Equal(last.CreatedAt) || page.NextCursor.ID != last.ID {
		t.Errorf("cursor = %+v, want (%v, %v)", page.NextCursor, last.CreatedAt, last.ID)
	}

	// Partial page: no further cursor.
	page, err = store.List(context.Background(), uuid.New(), Cursor{CreatedAt: base, ID: uuid.New()}, 5)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !querier.lastListParams.CreatedBefore.Valid {
		t.Error("non-zero cursor should set created_before filter")
	}
	if !page.NextCursor.IsZero() {
		t.Errorf("partial page cursor = %+v, want zero", page.NextCursor)
	}
}

func TestStore_List_CursorBreaksTimestampTies(t *testing.T) {
	// Two messages sharing a created_at: the cursor must identify which of
	// them the previous page ended on, or the other one gets skipped.
	at := time.Now()
	querier := &mockQuerier{listRows: []sqlc.Message{
		msgRow("twin-b", false, at),
		msgRow("twin-a", true, at),
	}}
	store := NewStore(querier, log.NewNop())

	page, err := store.List(context.Background(), uuid.New(), Cursor{}, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.NextCursor.ID != page.Messages[1].ID {
		t.Errorf("cursor id = %v, want last message id %v", page.NextCursor.ID, page.Messages[1].ID)
	}

	if _, err := store.List(context.Background(), uuid.New(), page.NextCursor, 2); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !querier.lastListParams.CursorID.Valid {
		t.Fatal("cursor id not forwarded to the query")
	}
	if got := uuid.UUID(querier.lastListParams.CursorID.Bytes); got != page.NextCursor.ID {
		t.Errorf("cursor id param = %v, want %v", got, page.NextCursor.ID)
	}
	if !querier.lastListParams.CreatedBefore.Time.Equal(page.NextCursor.CreatedAt) {
		t.Errorf("created_before param = %v, want %v", querier.lastListParams.CreatedBefore.Time, page.NextCursor.CreatedAt)
	}
}
