package main

import (
	"context"
	"fmt"

	"github.com/luminakraft/modpack-engine/internal/reconcile"
	"github.com/spf13/cobra"
)

var verifyZipSHA256 string

var verifyCmd = &cobra.Command{
	Use:   "verify <instance-id>",
	Short: "Check an installed instance's files against its integrity blob",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}

		result, err := engine.Verify(context.Background(), args[0], verifyZipSHA256, reconcile.PolicyFlags{
			AllowCustomMods:          allowCustomMods,
			AllowCustomResourcepacks: allowCustomRP,
		})
		if err != nil {
			return err
		}

		if result.Valid {
			logger.Info("%s: OK", args[0])
			return nil
		}

		logger.Warn("%s: FAILED", args[0])
		for _, issue := range result.Issues {
			fmt.Printf("  %s: %s\n", issue.Kind, issue.Path)
		}
		return fmt.Errorf("instance %s failed verification", args[0])
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyZipSHA256, "archive-sha256", "", "Expected sha256 of the install archive, if re-checking against a specific build")
	rootCmd.AddCommand(verifyCmd)
}
