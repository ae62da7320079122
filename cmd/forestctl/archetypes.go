package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forest.app/forest/internal/archetype"
)

var archetypesCmd = &cobra.Command{
	Use:   "archetypes",
	Short: "Work with archetype definitions",
}

var archetypesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate an archetypes file",
	Long: `Parse and validate an archetypes file. Without an argument the file
named by ARCHETYPES_FILE is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Orchestrator.ArchetypesFile
		}
		if path == "" {
			return fmt.Errorf("no archetypes file given and ARCHETYPES_FILE is unset")
		}

		defs, err := archetype.LoadFile(path)
		if err != nil {
			return err
		}
		for _, def := range defs {
			fmt.Printf("%-24s weight=%.2f  %s\n", def.Name, def.DefaultWeight, def.CoreTrait)
		}
		fmt.Printf("%s: %d archetypes ok\n", path, len(defs))
		return nil
	},
}

func init() {
	archetypesCmd.AddCommand(archetypesCheckCmd)
	rootCmd.AddCommand(archetypesCmd)
}
