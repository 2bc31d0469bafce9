package main

import (
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <instance-id>",
	Short: "Delete an instance's metadata and directory tree",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.Remove(args[0]); err != nil {
			return err
		}
		logger.Info("removed %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
