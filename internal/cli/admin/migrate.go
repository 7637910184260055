package admin

import (
	"fmt"

	"github.com/cloo-solutions/transcriptrag/internal/config"
	"github.com/cloo-solutions/transcriptrag/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd applies the pgvector schema without starting the server.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending migrations to TRANSCRIPTRAG_DATABASE_URL. Only the pgvector backend needs a database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("TRANSCRIPTRAG_DATABASE_URL is not set")
			}

			status, err := database.Migrate(cfg.DatabaseURL)
			if err != nil {
				return err
			}

			if status.Applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated to version %d\n", status.Version)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already at version %d\n", status.Version)
			}
			return nil
		},
	}
}
