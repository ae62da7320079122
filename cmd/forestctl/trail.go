package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"forest.app/forest/internal/brain"
)

var trailCmd = &cobra.Command{
	Use:   "trail",
	Short: "Inspect user trails",
}

var trailListCmd = &cobra.Command{
	Use:   "list <user_id>",
	Short: "List the trails recorded for a user",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		snap, err := a.services.Snapshots().Latest(ctx, args[0])
		if err != nil {
			return err
		}
		st, err := brain.LoadStates(snap, a.catalog)
		if err != nil {
			slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
		}

		trails := st.Trails.List()
		if len(trails) == 0 {
			fmt.Println("no trails")
			return nil
		}
		for _, t := range trails {
			fmt.Printf("%s  %-12s %3d events  %s\n", t.ID, t.Type, len(t.Events), t.Description)
		}
		return nil
	}),
}

func init() {
	trailCmd.AddCommand(trailListCmd)
	rootCmd.AddCommand(trailCmd)
}
