package cli

import (
	"fmt"

	"github.com/daryltucker/speedtest-runner/internal/config"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/spf13/cobra"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the speedtest-runner configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to ./speedtest.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "speedtest.yaml"
		if len(args) == 1 {
			target = args[0]
		}

		if err := config.DefaultConfig().Save(target, forceInit); err != nil {
			return fmt.Errorf("failed to write config %s: %w", target, err)
		}

		output.Logger.Info("Wrote default configuration", "path", target)
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
