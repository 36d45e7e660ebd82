package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/config"
	"github.com/spec-kit/blood-drive-checkin/internal/observability"
	"github.com/spec-kit/blood-drive-checkin/internal/persistence"
)

// App holds what every subcommand needs. Postgres is opened on demand.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
	pg     *persistence.Postgres
}

var app *App

func main() {
	rootCmd := &cobra.Command{
		Use:          "checkinctl",
		Short:        "Operator tooling for blood drive check-in",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if app.pg != nil {
				app.pg.Close()
			}
			_ = app.logger.Sync()
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(boardCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func initApp(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	app = &App{cfg: cfg, logger: logger, ctx: ctx}
	return nil
}

func (a *App) postgres() (*persistence.Postgres, error) {
	if a.pg != nil {
		return a.pg, nil
	}
	pg, err := persistence.NewPostgres(a.ctx, a.cfg.Postgres, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pg = pg
	return pg, nil
}
