//go:build integration

package app_test

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/message"
	"github.com/paperspeak/paperspeak/internal/sqlc"
	"github.com/paperspeak/paperspeak/internal/testutil"
	"github.com/paperspeak/paperspeak/internal/user"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

// TestStores_RoundTrip runs the full persistence path against a real
// Postgres with pgvector: user upsert, file registration, chunk indexing,
// similarity search, message history, and cascading delete.
func TestStores_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := log.NewNop()
	queries := sqlc.New(tdb.Pool)

	g := genkit.Init(ctx)
	embedder := testutil.NewMockEmbedder(vectorindex.Dimension).RegisterEmbedder(g)

	users := user.NewStore(queries, logger)
	files := file.NewStore(queries, logger)
	messages := message.NewStore(queries, logger)
	index := vectorindex.New(queries, embedder, logger)

	// User and file registration.
	u, err := users.Upsert(ctx, "user-1", "reader@example.com")
	if err != nil {
		t.Fatalf("Upsert user: %v", err)
	}
	if u.ID != "user-1" {
		t.Fatalf("user ID = %q, want user-1", u.ID)
	}

	f, err := files.Create(ctx, "uploads/report.pdf", "report.pdf", "https://files.example.com/report.pdf", u.ID, file.StatusQueued)
	if err != nil {
		t.Fatalf("Create file: %v", err)
	}

	// Duplicate key is rejected.
	if _, err := files.Create(ctx, "uploads/report.pdf", "again.pdf", "https://files.example.com/again.pdf", u.ID, file.StatusQueued); err == nil {
		t.Fatal("Create with duplicate key succeeded, want error")
	}

	// Ownership scoping.
	if _, err := files.ByIDForUser(ctx, f.ID, "someone-else"); err == nil {
		t.Fatal("ByIDForUser returned another user's file")
	}

	// Chunk indexing and search.
	chunks := []vectorindex.Chunk{
		{Key: f.ID.String() + "/page-1", Page: 1, Content: "The first quarter revenue grew by twelve percent."},
		{Key: f.ID.String() + "/page-2", Page: 2, Content: "Operating costs were flat year over year."},
	}
	if err := index.Upsert(ctx, f.ID, chunks); err != nil {
		t.Fatalf("Upsert chunks: %v", err)
	}

	// Re-upserting the same keys must not grow the namespace.
	if err := index.Upsert(ctx, f.ID, chunks); err != nil {
		t.Fatalf("Upsert chunks again: %v", err)
	}
	count, err := index.Count(ctx, f.ID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("chunk count after re-upsert = %d, want 2", count)
	}

	// The query text embeds to the same vector as the matching chunk, so
	// it must rank first.
	results, err := index.Search(ctx, f.ID, "The first quarter revenue grew by twelve percent.", vectorindex.WithTopK(2))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(results))
	}
	if results[0].Page != 1 {
		t.Errorf("top result page = %d, want 1", results[0].Page)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered by similarity")
	}

	// Message history: append then read back in both directions.
	if _, err := messages.Append(ctx, f.ID, u.ID, "what was revenue growth?", true); err != nil {
		t.Fatalf("Append user message: %v", err)
	}
	if _, err := messages.Append(ctx, f.ID, u.ID, "Revenue grew by twelve percent.", false); err != nil {
		t.Fatalf("Append assistant message: %v", err)
	}

	recent, err := messages.Recent(ctx, f.ID, 6)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent returned %d messages, want 2", len(recent))
	}
	if !recent[0].IsUserMessage || recent[1].IsUserMessage {
		t.Error("Recent not ordered oldest to newest")
	}

	page, err := messages.List(ctx, f.ID, message.Cursor{}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("List returned %d messages, want 2", len(page.Messages))
	}

	// Page through one at a time: the cursor resumes exactly after the
	// previous page even when created_at values collide.
	first, err := messages.List(ctx, f.ID, message.Cursor{}, 1)
	if err != nil {
		t.Fatalf("List first page: %v", err)
	}
	if len(first.Messages) != 1 || first.NextCursor.IsZero() {
		t.Fatalf("first page = %+v", first)
	}
	second, err := messages.List(ctx, f.ID, first.NextCursor, 1)
	if err != nil {
		t.Fatalf("List second page: %v", err)
	}
	if len(second.Messages) != 1 {
		t.Fatalf("second page returned %d messages, want 1", len(second.Messages))
	}
	if second.Messages[0].ID == first.Messages[0].ID {
		t.Error("second page repeated the first page's message")
	}

	// Deleting the file cascades to chunks and messages.
	if err := files.Delete(ctx, f.ID, u.ID); err != nil {
		t.Fatalf("Delete file: %v", err)
	}
	count, err = index.Count(ctx, f.ID)
	if err != nil {
		t.Fatalf("Count after delete: %v", err)
	}
	if count != 0 {
		t.Errorf("chunk count after file delete = %d, want 0", count)
	}
	if _, err := files.ByID(ctx, f.ID); err == nil {
		t.Error("ByID returned deleted file")
	}
}
