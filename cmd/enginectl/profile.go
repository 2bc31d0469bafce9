package main

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/luminakraft/modpack-engine/internal/profile"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved option profiles",
}

var (
	profInstanceDir      *string
	profConcurrency      *int
	profAuthToken        *string
	profAllowCustomMods  *bool
	profAllowCustomPacks *bool
	profVerbose          *bool
)

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile from the given flags",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &profile.Profile{}

		if cmd.Flags().Changed("instance-dir") {
			p.InstanceDir = profInstanceDir
		}
		if cmd.Flags().Changed("concurrency") {
			p.Concurrency = profConcurrency
		}
		if cmd.Flags().Changed("auth-token") {
			p.AuthToken = profAuthToken
		}
		if cmd.Flags().Changed("allow-custom-mods") {
			p.AllowCustomMods = profAllowCustomMods
		}
		if cmd.Flags().Changed("allow-custom-resourcepacks") {
			p.AllowCustomPacks = profAllowCustomPacks
		}
		if cmd.Flags().Changed("verbose") {
			p.Verbose = profVerbose
		}
		if cmd.Flags().Changed("log-file") {
			p.LogFile = &logFile
		}

		if err := profile.Save(args[0], p); err != nil {
			return err
		}
		fmt.Printf("Profile %q saved to %s\n", args[0], profile.Dir())
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No profiles saved.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return err
		}
		fmt.Print(buf.String())
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Profile %q deleted.\n", args[0])
		return nil
	},
}

func init() {
	profInstanceDir = profileCreateCmd.Flags().String("instance-dir", "", "Override the engine's default data root")
	profConcurrency = profileCreateCmd.Flags().Int("concurrency", 8, "Number of concurrent mod downloads")
	profAuthToken = profileCreateCmd.Flags().String("auth-token", "", "Bearer token for the CurseForge resolution proxy")
	profAllowCustomMods = profileCreateCmd.Flags().Bool("allow-custom-mods", false, "Don't remove mod jars the manifest doesn't list")
	profAllowCustomPacks = profileCreateCmd.Flags().Bool("allow-custom-resourcepacks", false, "Don't remove resource packs the manifest doesn't list")
	profVerbose = profileCreateCmd.Flags().Bool("verbose", false, "Enable debug logging")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
