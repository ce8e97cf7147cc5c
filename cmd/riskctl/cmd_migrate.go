package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuro-risk-client/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL history schema",
	}

	run := func(name string, fn func(*database.MigrationRunner) error) *cobra.Command {
		return &cobra.Command{
			Use:  name,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := database.NewMigrationRunner(database.URL(a.cfg.Database), a.cfg.Database.MigrationsPath, a.logger)
				if err != nil {
					return err
				}
				defer runner.Close()

				if err := fn(runner); err != nil {
					return err
				}

				version, dirty, err := runner.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", version)
				if dirty {
					fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			},
		}
	}

	up := run("up", (*database.MigrationRunner).Up)
	up.Short = "Apply all pending migrations"
	down := run("down", (*database.MigrationRunner).Down)
	down.Short = "Roll back the latest migration"
	version := run("version", func(*database.MigrationRunner) error { return nil })
	version.Short = "Print the current schema version"

	cmd.AddCommand(up, down, version)
	return cmd
}
