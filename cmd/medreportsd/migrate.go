package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medreports/internal/repository"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := repository.MigrateUp(a.repoConfig(), a.logger); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return printVersion(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, all of them when steps is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := -1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := repository.MigrateDown(a.repoConfig(), steps, a.logger); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			return printVersion(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			return printVersion(cmd, a)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, a *app) error {
	v, dirty, err := repository.MigrationVersion(a.repoConfig(), a.logger)
	if err != nil {
		return err
	}
	if v == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "schema version: none")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d (dirty=%t)\n", v, dirty)
	return nil
}
