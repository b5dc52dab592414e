// Package ingest drives the document ingestion pipeline: fetch the uploaded
// blob, extract page-level text, embed each page, and persist the vectors
// under the file's namespace.
//
// Failures are terminal per document. The file's upload status reaches
// exactly one terminal state per run; re-running against a file already in
// SUCCESS is a no-op, so ingestion is safe to retry at-least-once without
// corrupting an indexed document.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/paperspeak/paperspeak/internal/document"
	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

const (
	// defaultFetchTimeout bounds the source download.
	defaultFetchTimeout = 60 * time.Second

	// defaultParallelism bounds concurrent embed+upsert calls per document.
	defaultParallelism = 4

	// maxDocumentBytes caps the downloaded blob (pro plan upload limit).
	maxDocumentBytes = 16 << 20
)

// FileStore is the slice of the file store the ingestor needs.
type FileStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*file.File, error)
	SetStatus(ctx context.Context, id uuid.UUID, status file.Status) error
}

// Index is the slice of the vector index the ingestor needs.
type Index interface {
	Upsert(ctx context.Context, namespace uuid.UUID, chunks []vectorindex.Chunk) error
}

// ExtractFunc parses a document blob into ordered pages.
type ExtractFunc func(data []byte) ([]document.Page, error)

// Config carries the ingestor's dependencies.
type Config struct {
	Files  FileStore
	Index  Index
	Logger *slog.Logger

	// Extract overrides the PDF loader (tests). Nil = document.ExtractPages.
	Extract ExtractFunc

	// Client overrides the HTTP client used to fetch source blobs.
	Client *http.Client

	// Limiter throttles embedding calls across a document's pages.
	// Nil = 5 embeds/sec with a burst of 10.
	Limiter *rate.Limiter

	// Parallelism bounds concurrent page embeds. Zero = default of 4.
	Parallelism int
}

// Ingestor orchestrates document ingestion.
// It is safe for concurrent use; concurrent runs for distinct files are
// independent, and concurrent runs for the same file are serialized by the
// terminal-once status guard in the file store.
type Ingestor struct {
	files       FileStore
	index       Index
	extract     ExtractFunc
	client      *http.Client
	limiter     *rate.Limiter
	parallelism int
	logger      *slog.Logger
}

// New creates an Ingestor, applying defaults for optional configuration.
func New(cfg Config) *Ingestor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	extract := cfg.Extract
	if extract == nil {
		extract = document.ExtractPages
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	return &Ingestor{
		files:       cfg.Files,
		index:       cfg.Index,
		extract:     extract,
		client:      client,
		limiter:     limiter,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Ingest runs the full pipeline for one file. A file already in SUCCESS is
// left untouched; no vector writes happen and no status changes.
func (ing *Ingestor) Ingest(ctx context.Context, fileID uuid.UUID) error {
	f, err := ing.files.ByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("loading file %s: %w", fileID, err)
	}

	if f.Status == file.StatusSuccess {
		ing.logger.Debug("file already ingested, skipping", "file_id", fileID)
		return nil
	}

	if f.Status == file.StatusQueued {
		if err := ing.files.SetStatus(ctx, fileID, file.StatusProcessing); err != nil {
			return fmt.Errorf("marking file %s processing: %w", fileID, err)
		}
	}

	data, err := ing.fetch(ctx, f.URL)
	if err != nil {
		return ing.fail(ctx, fileID, ErrFetch, err)
	}

	pages, err := ing.extract(data)
	if err != nil {
		return ing.fail(ctx, fileID, ErrExtract, err)
	}

	// Zero pages is not a failure: a scanned PDF with no extractable text
	// still ingests, its namespace just stays empty.
	if err := ing.indexPages(ctx, fileID, pages); err != nil {
		return ing.fail(ctx, fileID, ErrIndex, err)
	}

	if err := ing.files.SetStatus(ctx, fileID, file.StatusSuccess); err != nil {
		return fmt.Errorf("marking file %s success: %w", fileID, err)
	}

	ing.logger.Info("ingested file", "file_id", fileID, "pages", len(pages))
	return nil
}

// fetch downloads the source blob.
func (ing *Ingestor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := ing.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %q: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %q", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d byte limit", maxDocumentBytes)
	}
	return data, nil
}

// indexPages embeds and upserts each page under namespace = file id.
// Chunk keys are derived from the file id and page number, so re-ingestion
// replaces rows instead of growing the namespace.
func (ing *Ingestor) indexPages(ctx context.Context, fileID uuid.UUID, pages []document.Page) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.parallelism)

	for _, page := range pages {
		g.Go(func() error {
			if err := ing.limiter.Wait(gctx); err != nil {
				return err
			}
			chunk := vectorindex.Chunk{
				Key:     ChunkKey(fileID, page.Number),
				Page:    page.Number,
				Content: page.Text,
			}
			return ing.index.Upsert(gctx, fileID, []vectorindex.Chunk{chunk})
		})
	}

	return g.Wait()
}

// fail marks the file FAILED and wraps the cause under the sentinel.
// The status write is best effort: if the file somehow already reached a
// terminal state the original error still surfaces.
func (ing *Ingestor) fail(ctx context.Context, fileID uuid.UUID, sentinel, cause error) error {
	if err := ing.files.SetStatus(ctx, fileID, file.StatusFailed); err != nil {
		ing.logger.Warn("marking file failed", "file_id", fileID, "error", err)
	}
	ing.logger.Error("ingestion failed", "file_id", fileID, "error", cause)
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// ChunkKey builds the stable per-page vector key "<file-id>/page-<n>".
func ChunkKey(fileID uuid.UUID, page int) string {
	return fmt.Sprintf("%s/page-%d", fileID, page)
}
