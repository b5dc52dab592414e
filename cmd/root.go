// Package cmd implements the paperspeak command line interface.
//
// Following the pattern used by kubectl, hugo, and other standard Go CLI
// tools, all application logic is contained in the cmd package, leaving
// main.go as a minimal entry point.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperspeak/paperspeak/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "paperspeak",
	Short: "paperspeak - chat with your PDF documents",
	Long: `paperspeak is a document question-answering service.

It ingests uploaded PDF documents into a vector index and answers
questions about them over a streaming HTTP API, grounding every answer
in the document's own text.

Run "paperspeak serve" to start the HTTP API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger initializes the structured logger for a command.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func newLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: true})
}
