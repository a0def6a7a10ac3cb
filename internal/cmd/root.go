// Package cmd holds the photovault command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photovault/photovault/pkg/config"
)

// NewRootCmd creates the root command. Every subcommand reads its settings
// from the environment; --env-file loads extra .env files first.
func NewRootCmd(version string) *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "photovault",
		Short:         "PhotoVault billing, family takeover and commission engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if len(envFiles) == 0 {
				return nil
			}
			if err := config.LoadEnv(envFiles...); err != nil {
				return fmt.Errorf("load env files: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "additional .env files to load")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newPayoutsCmd())

	return root
}
