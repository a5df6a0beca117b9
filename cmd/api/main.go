package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/stayhub/internal/app"
	"github.com/BradenHooton/stayhub/internal/config"
	"github.com/BradenHooton/stayhub/internal/database"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stayhub",
		Short:         "StayHub identity and credential service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newBootstrapAdminCmd())
	return root
}

// runtime holds what every subcommand needs: config, logger and an open database.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, db: db}, nil
}

func newBootstrapAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the administrator from ADMIN_EMAIL and ADMIN_PASSWORD if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.db.Close()

			if !rt.cfg.Admin.Configured() {
				return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
			}

			c, err := app.New(ctx, rt.cfg, rt.db, rt.logger)
			if err != nil {
				return err
			}
			return c.BootstrapAdmin(ctx)
		},
	}
}
