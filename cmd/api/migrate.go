package main

import (
	"context"
	"time"

	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	for _, sub := range []struct {
		use, short string
		command    database.MigrationCommand
	}{
		{"up", "Apply all pending migrations", database.MigrateUp},
		{"down", "Roll back the most recent migration", database.MigrateDown},
		{"status", "Print the state of every migration", database.MigrateStatus},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer cancel()

				rt, err := openRuntime(ctx)
				if err != nil {
					return err
				}
				defer rt.db.Close()

				return database.Migrate(ctx, rt.db.Pool, sub.command)
			},
		})
	}
	return cmd
}
