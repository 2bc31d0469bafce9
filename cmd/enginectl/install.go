package main

import (
	"context"
	"fmt"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/orchestrator"
	"github.com/luminakraft/modpack-engine/internal/progress"
	"github.com/luminakraft/modpack-engine/internal/reconcile"
	"github.com/luminakraft/modpack-engine/internal/types"
	"github.com/spf13/cobra"
)

var (
	installArchiveURL string
	installMCVersion  string
	installVersion    string
	installCategory   string
)

var installCmd = &cobra.Command{
	Use:   "install <instance-id>",
	Short: "Install or update a modpack instance from its descriptor",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if installArchiveURL == "" {
			return engineerr.WrapUsage(fmt.Errorf("--archive-url is required"))
		}
		category := types.Category(installCategory)
		switch category {
		case types.CategoryOfficial, types.CategoryPartner, types.CategoryCommunity, types.CategoryImported:
		default:
			return engineerr.WrapUsage(fmt.Errorf("invalid --category %q: must be official, partner, community, or imported", installCategory))
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}

		sink := progress.SinkFunc(func(ev progress.Event) {
			logger.Info("install %s: %s (%.0f%%)", args[0], ev.Step, ev.Fraction*100)
		})

		result, err := engine.Install(context.Background(), orchestrator.InstallOptions{
			Descriptor: types.ModpackDescriptor{
				ID:               args[0],
				Version:          installVersion,
				MinecraftVersion: installMCVersion,
				ArchiveURL:       installArchiveURL,
				Category:         category,
			},
			Policy: reconcile.PolicyFlags{
				AllowCustomMods:          allowCustomMods,
				AllowCustomResourcepacks: allowCustomRP,
			},
			Concurrency: concurrency,
			Sink:        sink,
		})
		if err != nil {
			return err
		}

		logger.Info("installed %s: %s %s (loader %s %s)", args[0], result.Metadata.Version,
			result.Metadata.MinecraftVersion, result.Metadata.ModLoader, result.Metadata.ModLoaderVersion)
		if len(result.FailedFiles) > 0 {
			logger.Warn("%d file(s) failed to install:", len(result.FailedFiles))
			for _, f := range result.FailedFiles {
				logger.Warn("  %s: %s", f.FileName, f.Reason)
			}
		}
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installArchiveURL, "archive-url", "", "URL of the CurseForge export or .mrpack archive")
	installCmd.Flags().StringVar(&installMCVersion, "minecraft-version", "", "Minecraft version recorded for CurseForge archives (the engine does not take it from manifest.json; left empty when omitted)")
	installCmd.Flags().StringVar(&installVersion, "version", "", "Modpack version string to record in instance metadata")
	installCmd.Flags().StringVar(&installCategory, "category", string(types.CategoryCommunity), "Modpack category: official, partner, community, or imported")
	rootCmd.AddCommand(installCmd)
}
