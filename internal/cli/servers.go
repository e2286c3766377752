/*
PURPOSE:
  Defines the 'servers' subcommand.
  Helps debug connectivity and server discovery.

REQUIREMENTS:
  User-specified:
  - List available servers.
  - Optionally show each server's latency as soon as it is measured.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Servers() and Probe()

ERROR HANDLING:
  - Returns the discovery error; unreachable servers just show "-".

USAGE:
  speedtest-runner servers --latency
*/

package cli

import (
	"github.com/daryltucker/speedtest-runner/internal/engine"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/spf13/cobra"
)

var showLatency bool

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Show the nearest speed test servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		e := engine.New(*cfg)
		console := &output.Console{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}

		servers, err := e.Servers(ctx)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			output.Logger.Warn("Server list is empty", "url", cfg.ServersURL)
		}

		console.ServersHeader(showLatency)
		for _, s := range servers {
			if showLatency {
				// Each server gets the full timeout here; this is a listing,
				// not a race.
				if latency, ok := e.Probe(ctx, s, cfg.HTTPTimeout); ok {
					s = s.WithLatency(latency)
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			console.ServerRow(s, showLatency)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serversCmd)
	serversCmd.Flags().BoolVarP(&showLatency, "latency", "l", false, "Include server latency")
}
