package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			dsn, err := cfg.DB.DSN()
			if err != nil {
				return err
			}

			if err := postgres.Migrate(cmd.Context(), dsn); err != nil {
				return err
			}

			version, err := postgres.MigrationVersion(cmd.Context(), dsn)
			if err != nil {
				return err
			}

			log.Info("database migrated", zap.Int64("version", version))
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
