// Command enginectl drives the modpack install/update/verify engine from
// the command line: install or update an instance from a modpack
// descriptor, verify an instance against its integrity blob, list
// installed instances, or remove one.
package main

import (
	"fmt"
	"os"

	"github.com/luminakraft/modpack-engine/internal/engineerr"
	"github.com/luminakraft/modpack-engine/internal/logging"
	"github.com/luminakraft/modpack-engine/internal/profile"
	"github.com/spf13/cobra"
)

var (
	instanceDir     string
	concurrency     int
	authToken       string
	allowCustomMods bool
	allowCustomRP   bool
	profileName     string
	verbose         bool
	logFile         string

	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "enginectl",
	Short:         "Install, update, and verify modpack instances",
	Long:          "enginectl drives the modpack engine's install/update/verify pipeline: fetch a CurseForge or Modrinth archive, resolve and download mods, reconcile against the previous install, and maintain an integrity blob for managed instances.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Apply profile defaults for flags not explicitly set by the user.
		if profileName != "" {
			p, err := profile.Load(profileName)
			if err != nil {
				return err
			}
			if p.InstanceDir != nil && !cmd.Flags().Changed("instance-dir") {
				instanceDir = *p.InstanceDir
			}
			if p.Concurrency != nil && !cmd.Flags().Changed("concurrency") {
				concurrency = *p.Concurrency
			}
			if p.AuthToken != nil && !cmd.Flags().Changed("auth-token") {
				authToken = *p.AuthToken
			}
			if p.AllowCustomMods != nil && !cmd.Flags().Changed("allow-custom-mods") {
				allowCustomMods = *p.AllowCustomMods
			}
			if p.AllowCustomPacks != nil && !cmd.Flags().Changed("allow-custom-resourcepacks") {
				allowCustomRP = *p.AllowCustomPacks
			}
			if p.Verbose != nil && !cmd.Flags().Changed("verbose") {
				verbose = *p.Verbose
			}
			if p.LogFile != nil && !cmd.Flags().Changed("log-file") {
				logFile = *p.LogFile
			}
		}

		level := logging.InfoLevel
		if verbose {
			level = logging.DebugLevel
		}
		logger = logging.NewWithConfig(logging.Config{Level: level, LogPath: logFile})
		return nil
	},
}

// Execute runs the root command, printing usage only for usage-shaped
// errors (bad flags, unknown subcommands) and leaving operational errors
// to bubble up as a plain message.
func Execute() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if engineerr.IsUsage(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&instanceDir, "instance-dir", "d", "", "Override the engine's default data root (default: platform app-data dir)")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "c", 8, "Number of concurrent mod downloads")
	rootCmd.PersistentFlags().StringVar(&authToken, "auth-token", "", "Bearer token for the CurseForge resolution proxy (also reads MODPACK_ENGINE_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&allowCustomMods, "allow-custom-mods", false, "Don't remove mod jars the manifest doesn't list")
	rootCmd.PersistentFlags().BoolVar(&allowCustomRP, "allow-custom-resourcepacks", false, "Don't remove resource packs the manifest doesn't list")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Load a saved option profile by name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write log output to this file")
}

func getAuthToken() string {
	if authToken != "" {
		return authToken
	}
	return os.Getenv("MODPACK_ENGINE_TOKEN")
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return engineerr.WrapUsage(err)
		}
		return nil
	}
}

func main() {
	Execute()
}
