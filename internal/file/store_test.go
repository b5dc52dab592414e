package file

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	createErr error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error

	file            sqlc.File
	files           []sqlc.File
	updateAffected  int64
	deleteAffected  int64
	updateCalls     int
	lastStatusParam sqlc.UpdateFileStatusParams
}

func (m *mockQuerier) CreateFile(_ context.Context, arg sqlc.CreateFileParams) (sqlc.File, error) {
	if m.createErr != nil {
		return sqlc.File{}, m.createErr
	}
	return sqlc.File{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Key:          arg.Key,
		Name:         arg.Name,
		Url:          arg.Url,
		UploadStatus: arg.UploadStatus,
		UserID:       arg.UserID,
	}, nil
}

func (m *mockQuerier) GetFile(_ context.Context, _ pgtype.UUID) (sqlc.File, error) {
	return m.file, m.getErr
}

func (m *mockQuerier) GetFileForUser(_ context.Context, _ sqlc.GetFileForUserParams) (sqlc.File, error) {
	return m.file, m.getErr
}

func (m *mockQuerier) GetFileByKey(_ context.Context, _ sqlc.GetFileByKeyParams) (sqlc.File, error) {
	return m.file, m.getErr
}

func (m *mockQuerier) ListFilesByUser(_ context.Context, _ string) ([]sqlc.File, error) {
	return m.files, m.listErr
}

func (m *mockQuerier) UpdateFileStatus(_ context.Context, arg sqlc.UpdateFileStatusParams) (int64, error) {
	m.updateCalls++
	m.lastStatusParam = arg
	return m.updateAffected, m.updateErr
}

func (m *mockQuerier) DeleteFile(_ context.Context, _ sqlc.DeleteFileParams) (int64, error) {
	return m.deleteAffected, m.deleteErr
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusSuccess, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStore_Create(t *testing.T) {
	store := NewStore(&mockQuerier{}, log.NewNop())

	f, err := store.Create(context.Background(), "key-1", "report.pdf", "https://files.example/key-1", "user-1", StatusProcessing)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.Status != StatusProcessing {
		t.Errorf("status = %s, want PROCESSING", f.Status)
	}
	if f.Name != "report.pdf" {
		t.Errorf("name = %q", f.Name)
	}
}

func TestStore_Create_DuplicateKey(t *testing.T) {
	querier := &mockQuerier{createErr: &pgconn.PgError{Code: uniqueViolation}}
	store := NewStore(querier, log.NewNop())

	_, err := store.Create(context.Background(), "key-1", "a.pdf", "u", "user-1", StatusProcessing)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("error = %v, want ErrDuplicateKey", err)
	}
}

func TestStore_ByIDForUser_NotFound(t *testing.T) {
	store := NewStore(&mockQuerier{getErr: pgx.ErrNoRows}, log.NewNop())

	_, err := store.ByIDForUser(context.Background(), uuid.New(), "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStore_SetStatus(t *testing.T) {
	querier := &mockQuerier{updateAffected: 1}
	store := NewStore(querier, log.NewNop())

	id := uuid.New()
	if err := store.SetStatus(context.Background(), id, StatusSuccess); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if querier.lastStatusParam.UploadStatus != "SUCCESS" {
		t.Errorf("wrote status %q", querier.lastStatusParam.UploadStatus)
	}
}

func TestStore_SetStatus_Terminal(t *testing.T) {
	// Zero affected rows means the guard in SQL rejected the write because
	// the file already reached a terminal state.
	store := NewStore(&mockQuerier{updateAffected: 0}, log.NewNop())

	err := store.SetStatus(context.Background(), uuid.New(), StatusFailed)
	if !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("error = %v, want ErrTerminalStatus", err)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	store := NewStore(&mockQuerier{deleteAffected: 0}, log.NewNop())

	err := store.Delete(context.Background(), uuid.New(), "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListByUser(t *testing.T) {
	querier := &mockQuerier{files: []sqlc.File{
		{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Name: "b.pdf", UploadStatus: "SUCCESS"},
		{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Name: "a.pdf", UploadStatus: "PROCESSING"},
	}}
	store := NewStore(querier, log.NewNop())

	files, err := store.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Name != "b.pdf" || files[0].Status != StatusSuccess {
		t.Errorf("first file = %+v", files[0])
	}
}
