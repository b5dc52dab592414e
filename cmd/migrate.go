package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperspeak/paperspeak/db"
	"github.com/paperspeak/paperspeak/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	Long: `Apply pending database migrations.

The serve command runs migrations automatically on startup; this
command exists for deployment pipelines that migrate separately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	logger.Info("running migrations", "host", cfg.PostgresHost, "database", cfg.PostgresDBName)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations complete")
	return nil
}
