// Package app provides application initialization and dependency injection.
//
// App is the core container wiring configuration, Genkit, the database pool
// and the domain services (stores, ingestor, chat). Construction happens in
// Setup; call Close() to release everything in reverse order.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperspeak/paperspeak/internal/chat"
	"github.com/paperspeak/paperspeak/internal/config"
	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/ingest"
	"github.com/paperspeak/paperspeak/internal/message"
	"github.com/paperspeak/paperspeak/internal/user"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Domain services
	Users    *user.Store
	Files    *file.Store
	Messages *message.Store
	Index    *vectorindex.Store
	Ingestor *ingest.Ingestor
	Chat     *chat.Service

	// Lifecycle management
	ctx         context.Context
	cancel      context.CancelFunc
	background  sync.WaitGroup
	otelCleanup func()
	dbCleanup   func()
}

// IngestAsync runs ingestion for a file on a background goroutine tracked
// by the app. Close waits for in-flight ingestions before releasing the
// database pool.
func (a *App) IngestAsync(fileID uuid.UUID) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		if err := a.Ingestor.Ingest(a.ctx, fileID); err != nil {
			a.Logger.Error("background ingestion failed", "file_id", fileID, "error", err)
		}
	}()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	// 1. Cancel context so background work stops
	if a.cancel != nil {
		a.cancel()
	}

	// 2. Wait for in-flight ingestions before closing the pool
	a.background.Wait()

	// 3. Close database pool
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Info("database pool closed")
	}

	// 4. Flush pending trace spans
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
