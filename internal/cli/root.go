/*
PURPOSE:
  Defines the root Cobra command for the Speedtest Runner CLI.
  Handles global flags, config loading and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config and --verbosity.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Ctrl-C must cancel in-flight transfers, so commands run under a
    signal-aware context.
  - Errors are printed once, by main.go, so cobra's own printing is silenced.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/speedtest-runner/main.go
  - Calls: Child commands (servers, run, download, upload)
  - Modifies: Global configuration state (temporarily, until passed down).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.
  - Flags only override the config when explicitly set.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and applyGlobalOverrides().

RELATED FILES:
  - cmd/speedtest-runner/main.go
  - internal/config/config.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/config"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/spf13/cobra"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile string

	serversURLOverride string
	timeoutOverride    time.Duration
	verbosityOverride  string

	rootCmd = &cobra.Command{
		Use:   "speedtest-runner",
		Short: "Measure latency, download and upload speed against speedtest.net servers",
		Long: `Measures network path quality toward the nearest speedtest.net servers.
Use 'run --help' for speed test options and 'servers' to inspect the server list.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./speedtest.yaml)")
	rootCmd.PersistentFlags().StringVar(&serversURLOverride, "servers-url", "", "URL of the speedtest servers list")
	rootCmd.PersistentFlags().DurationVar(&timeoutOverride, "timeout", 0, "HTTP timeout per request (e.g. 30s)")
	rootCmd.PersistentFlags().StringVar(&verbosityOverride, "verbosity", "", "Verbosity level <minimal, normal, debug>")
}

// loadConfig loads the config file, applies flag overrides, validates the
// result and configures the logger.
func loadConfig(cmd *cobra.Command, overrides ...func(*cobra.Command, *config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	applyGlobalOverrides(cmd, cfg)
	for _, o := range overrides {
		o(cmd, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	output.Configure(cmd.ErrOrStderr(), cfg.VerbosityLevel)
	return cfg, nil
}

func applyGlobalOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("servers-url") {
		cfg.ServersURL = serversURLOverride
	}
	if flags.Changed("timeout") {
		cfg.HTTPTimeout = timeoutOverride
	}
	if flags.Changed("verbosity") {
		cfg.Verbosity = verbosityOverride
	}
}
