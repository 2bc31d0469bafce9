package main

import (
	"context"
	"fmt"

	"github.com/luminakraft/modpack-engine/internal/reconcile"
	"github.com/spf13/cobra"
)

// launchCmd stops at "ready to launch": it re-verifies the instance
// against its integrity blob and prints what a launcher shell would feed
// to its own JVM bootstrap. Actually spawning the game process belongs to
// the launcher's runtime fetcher and account/session handling, both out
// of scope here (see SPEC_FULL.md §1).
var launchCmd = &cobra.Command{
	Use:   "launch <instance-id>",
	Short: "Verify an instance and print its launch-ready metadata",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		metadata, err := engine.Metadata(args[0])
		if err != nil {
			return err
		}
		if metadata == nil {
			return fmt.Errorf("instance %s is not installed", args[0])
		}

		result, err := engine.Verify(context.Background(), args[0], "", reconcile.PolicyFlags{
			AllowCustomMods:          allowCustomMods,
			AllowCustomResourcepacks: allowCustomRP,
		})
		if err != nil {
			return err
		}
		if !result.Valid {
			for _, issue := range result.Issues {
				logger.Warn("%s: %s", issue.Kind, issue.Path)
			}
			return fmt.Errorf("instance %s failed pre-launch verification", args[0])
		}

		fmt.Printf("minecraft=%s modloader=%s modloaderVersion=%s ram=%s\n",
			metadata.MinecraftVersion, metadata.ModLoader, metadata.ModLoaderVersion, metadata.RAMAllocation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
}
