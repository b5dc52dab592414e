package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paperspeak/paperspeak/api"
	"github.com/paperspeak/paperspeak/internal/app"
	"github.com/paperspeak/paperspeak/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the paperspeak HTTP API server.

The server runs migrations on startup, then exposes document upload,
ingestion status, message history and streaming chat endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port), overrides config")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	logger.Info("starting paperspeak", "version", AppVersion, "provider", cfg.Provider)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(api.Config{
		Health: api.NewHealthHandler(a.DBPool, logger.With("component", "health")),
		Users:  api.NewUserHandler(a.Users, logger.With("component", "users")),
		Files:  api.NewFileHandler(a.Files, a.Messages, a.Index, a.IngestAsync, logger.With("component", "files")),
		Chat:   api.NewChatHandler(a.Chat, logger.With("component", "chat")),
		Logger: logger,
	})

	return srv.Run(ctx, addr)
}
