// Package vectorindex stores and searches per-document text embeddings.
//
// Each uploaded file owns a namespace (the file's id); every chunk of that
// file lives under the namespace and nowhere else. Search is always scoped
// to one namespace, so one document can never leak context into another's
// conversation.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/paperspeak/paperspeak/internal/sqlc"
)

// searchTimeout bounds a single embed+query round trip.
const searchTimeout = 10 * time.Second

// Querier defines the database operations Store needs. The interface is
// defined by the consumer (like io.Reader or http.RoundTripper) so tests
// can substitute a mock for the sqlc-generated implementation.
type Querier interface {
	UpsertChunk(ctx context.Context, arg sqlc.UpsertChunkParams) error
	SearchChunks(ctx context.Context, arg sqlc.SearchChunksParams) ([]sqlc.SearchChunksRow, error)
	DeleteChunksByNamespace(ctx context.Context, namespace pgtype.UUID) error
	CountChunksByNamespace(ctx context.Context, namespace pgtype.UUID) (int64, error)
}

// Store manages file chunk embeddings in PostgreSQL + pgvector.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default().
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Upsert embeds each chunk and writes it under the namespace, keyed by
// (namespace, chunk key). Re-upserting the same key replaces the row, so
// ingesting the same document twice leaves the namespace unchanged in size.
func (s *Store) Upsert(ctx context.Context, namespace uuid.UUID, chunks []Chunk) error {
	ns := pgUUID(namespace)

	for _, chunk := range chunks {
		embedding, err := s.embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %q: %w", chunk.Key, err)
		}

		vec := pgvector.NewVector(embedding)
		err = s.queries.UpsertChunk(ctx, sqlc.UpsertChunkParams{
			Namespace: ns,
			ChunkKey:  chunk.Key,
			Page:      int32(chunk.Page),
			Content:   chunk.Content,
			Embedding: &vec,
		})
		if err != nil {
			return fmt.Errorf("upserting chunk %q: %w", chunk.Key, err)
		}
	}

	s.logger.Debug("upserted chunks", "namespace", namespace, "count", len(chunks))
	return nil
}

// Search embeds the query and returns the top-K most similar chunks in the
// namespace, ordered by non-increasing similarity. An empty namespace (not
// yet ingested, or ingestion still running) yields an empty result, not an
// error.
func (s *Store) Search(ctx context.Context, namespace uuid.UUID, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.queries.SearchChunks(queryCtx, sqlc.SearchChunksParams{
		Namespace:      pgUUID(namespace),
		QueryEmbedding: &vec,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("similarity search timeout: %w", err)
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Key:        row.ChunkKey,
			Page:       int(row.Page),
			Content:    row.Content,
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// DeleteNamespace removes every chunk belonging to the namespace.
// Used when the owning file is deleted.
func (s *Store) DeleteNamespace(ctx context.Context, namespace uuid.UUID) error {
	if err := s.queries.DeleteChunksByNamespace(ctx, pgUUID(namespace)); err != nil {
		return fmt.Errorf("deleting namespace %s: %w", namespace, err)
	}
	s.logger.Debug("deleted namespace", "namespace", namespace)
	return nil
}

// Count returns the number of chunks stored under the namespace.
func (s *Store) Count(ctx context.Context, namespace uuid.UUID) (int, error) {
	count, err := s.queries.CountChunksByNamespace(ctx, pgUUID(namespace))
	if err != nil {
		return 0, fmt.Errorf("counting namespace %s: %w", namespace, err)
	}
	return int(count), nil
}

// embed runs one text through the embedder and validates the result shape.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned empty embedding")
	}

	embedding := resp.Embeddings[0].Embedding
	if len(embedding) != Dimension {
		return nil, fmt.Errorf("embedding dimension %d does not match schema dimension %d", len(embedding), Dimension)
	}
	return embedding, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
