package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Plant and evolve seeds for a user",
}

var seedPlantCmd = &cobra.Command{
	Use:   "plant <user_id> <intention>",
	Short: "Plant a new seed and grow its HTA tree",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		planted, err := a.services.Maintenance().PlantSeed(ctx, args[0], args[1], domain)
		if err != nil {
			return err
		}
		fmt.Printf("planted %s (%s) in %s\n", planted.Name, planted.ID, planted.Domain)
		return nil
	}),
}

var seedEvolveCmd = &cobra.Command{
	Use:   "evolve <user_id> <seed_id> <evolution>",
	Short: "Record an evolution of a seed",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		intention, _ := cmd.Flags().GetString("intention")
		if err := a.services.Maintenance().EvolveSeed(ctx, args[0], args[1], args[2], intention); err != nil {
			return err
		}
		fmt.Printf("evolved %s\n", args[1])
		return nil
	}),
}

func init() {
	seedPlantCmd.Flags().String("domain", "", "Seed domain")
	seedEvolveCmd.Flags().String("intention", "", "Updated seed intention")
	seedCmd.AddCommand(seedPlantCmd, seedEvolveCmd)
	rootCmd.AddCommand(seedCmd)
}
