package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect and move user snapshots",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <user_id>",
	Short: "Print the latest snapshot of a user as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		snap, err := a.services.Snapshots().Latest(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := snap.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}),
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <user_id>",
	Short: "Write the compressed snapshot history of a user to disk",
	Long: `Write the compressed snapshot history of a user to <dir>/<user>.json.

Example:
  forestctl snapshot export alice
  forestctl snapshot export alice --dir /backup`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = a.cfg.Orchestrator.SnapshotExportDir
		}
		path, err := a.services.Maintenance().ExportFlow(ctx, args[0], dir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}),
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <user_id> <file>",
	Short: "Replace the compressed snapshot history of a user from a file",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if err := a.services.Maintenance().ImportFlow(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("imported %s into %s\n", args[1], args[0])
		return nil
	}),
}

func init() {
	snapshotExportCmd.Flags().StringP("dir", "d", "", "Output directory (default: SNAPSHOT_EXPORT_DIR)")
	snapshotCmd.AddCommand(snapshotShowCmd, snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(snapshotCmd)
}
