package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"forest.app/forest/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.MigrateUp(cfg.DB.DSN); err != nil {
			return err
		}
		return printVersion(cfg.DB.DSN)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default: 1)",
	Long: `Roll back the given number of migrations.

Example:
  forestctl migrate down      # roll back 1 migration
  forestctl migrate down 3    # roll back 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.MigrateDown(cfg.DB.DSN, steps); err != nil {
			return err
		}
		return printVersion(cfg.DB.DSN)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printVersion(cfg.DB.DSN)
	},
}

func printVersion(dsn string) error {
	version, dirty, err := db.MigrationVersion(dsn)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Println("no migrations applied")
		return nil
	}
	fmt.Printf("schema version: %d\n", version)
	if dirty {
		fmt.Println("warning: database is in a dirty state")
	}
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
