package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/blood-drive-checkin/internal/persistence"
)

func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := app.postgres()
			if err != nil {
				return err
			}
			return persistence.RunMigrations(app.ctx, pg.PoolHandle(), dir, app.logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", persistence.DefaultMigrationsDir, "Directory holding *.sql migrations")
	return cmd
}
