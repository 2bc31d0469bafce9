package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed instances",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		instances, err := engine.List()
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			fmt.Println("No instances installed.")
			return nil
		}
		for _, m := range instances {
			fmt.Printf("%-20s %-12s %-12s %s %s\n", m.ID, m.Version, m.MinecraftVersion, m.ModLoader, m.ModLoaderVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
