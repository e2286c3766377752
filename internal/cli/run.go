/*
PURPOSE:
  Defines the 'run', 'download' and 'upload' subcommands.
  Executes a speed test against the fastest server.

REQUIREMENTS:
  User-specified:
  - Run the speed test, optionally skipping a direction.
  - Human-readable line or CSV row, optional timestamp.
  - Choose unit (bits/bytes) and unit system (SI/IEC).

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config (only flags the user actually set).
  - Progress bars would corrupt CSV and minimal output, so they are only
    drawn at normal/debug verbosity without --csv.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Runner.Run()
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Returns error if config load fails, no server answers or a transfer fails.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Runner.Run -> Output.

USAGE:
  speedtest-runner run --unit bytes --unit-system IEC

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"

	"github.com/daryltucker/speedtest-runner/internal/config"
	"github.com/daryltucker/speedtest-runner/internal/engine"
	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/spf13/cobra"
)

var (
	unitOverride            string
	unitSystemOverride      string
	timestampOverride       bool
	timestampFormatOverride string
	csvOverride             bool
	csvDelimiterOverride    string
	csvHeader               bool
	noDownloadOverride      bool
	noUploadOverride        bool
	parallelOverride        int
	tolerateOverride        bool
	jsonOutputOverride      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform an internet speed test",
	Long: `Performs a full speed test against the nearest speedtest.net server.
The process follows a strict protocol:
1. Discovery: Fetches the server list.
2. Selection: Probes servers one by one and keeps the lowest latency.
3. Download: Fetches test images in parallel and times the transfer.
4. Upload: Posts generated payloads in parallel and times the transfer.`,
	Example: `  # Run with defaults (uses speedtest.yaml if present)
  speedtest-runner run

  # Bytes per second with binary prefixes
  speedtest-runner run --unit bytes --unit-system IEC

  # One CSV row per run, for cron
  speedtest-runner run --csv --csv-delimiter ';' --verbosity minimal

  # Keep a machine-readable history
  speedtest-runner run --json-output ./results.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeedTest(cmd)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Perform an internet download speed test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeedTest(cmd, func(_ *cobra.Command, cfg *config.Config) { cfg.SkipUpload = true })
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Perform an internet upload speed test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeedTest(cmd, func(_ *cobra.Command, cfg *config.Config) { cfg.SkipDownload = true })
	},
}

func applyTestOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("unit") {
		cfg.Unit = unitOverride
	}
	if flags.Changed("unit-system") {
		cfg.UnitSystem = unitSystemOverride
	}
	if flags.Changed("timestamp") {
		cfg.Timestamp = timestampOverride
	}
	if flags.Changed("timestamp-format") {
		cfg.TimestampFormat = timestampFormatOverride
	}
	if flags.Changed("csv") {
		cfg.CSV = csvOverride
	}
	if flags.Changed("csv-delimiter") {
		cfg.CSVDelimiter = csvDelimiterOverride
	}
	if flags.Changed("no-download") {
		cfg.SkipDownload = noDownloadOverride
	}
	if flags.Changed("no-upload") {
		cfg.SkipUpload = noUploadOverride
	}
	if flags.Changed("parallel") {
		cfg.DownloadParallel = parallelOverride
		cfg.UploadParallel = parallelOverride
	}
	if flags.Changed("tolerate-errors") {
		cfg.TolerateErrors = tolerateOverride
	}
	if flags.Changed("json-output") {
		cfg.JSONOutput = jsonOutputOverride
	}
}

func runSpeedTest(cmd *cobra.Command, extra ...func(*cobra.Command, *config.Config)) error {
	cfg, err := loadConfig(cmd, append([]func(*cobra.Command, *config.Config){applyTestOverrides}, extra...)...)
	if err != nil {
		return err
	}
	if cfg.SkipDownload && cfg.SkipUpload {
		return fmt.Errorf("%w: both download and upload are skipped", config.ErrInvalid)
	}

	console := &output.Console{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	runner := engine.NewRunner(engine.New(*cfg))

	var hooks engine.Hooks
	if cfg.VerbosityLevel != model.Minimal && !cfg.CSV {
		download := console.Progress("Downloading")
		upload := console.Progress("Uploading")

		hooks.OnSelected = func(f engine.Fastest) { console.Selected(f.Server, f.Latency) }
		hooks.OnDownload = download.Update
		hooks.OnUpload = upload.Update
		hooks.OnPhaseDone = func(phase string, res model.Result) {
			verb := "uploaded"
			if phase == "download" {
				download.Done()
				verb = "downloaded"
			} else {
				upload.Done()
			}
			if cfg.VerbosityLevel == model.Debug {
				console.Transferred(verb, res)
			}
		}
	}

	report, err := runner.Run(cmd.Context(), hooks)
	if err != nil {
		return err
	}

	if cfg.JSONOutput != "" {
		jw, err := output.OpenJSONFile(cfg.JSONOutput, cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to open JSON output %s: %w", cfg.JSONOutput, err)
		}
		defer jw.Close()
		if err := jw.Write(report); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
	}

	if cfg.CSV {
		cw := output.NewCSVWriter(cmd.OutOrStdout(), cfg.Delimiter(), cfg.TimestampFormat)
		if csvHeader {
			if err := cw.WriteHeader(); err != nil {
				return err
			}
		}
		return cw.Write(report)
	}

	return console.Result(report, cfg.Timestamp, cfg.TimestampFormat)
}

func addTestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&unitOverride, "unit", "u", "", "The speed unit <BitsPerSecond, BytesPerSecond>")
	cmd.Flags().StringVar(&unitSystemOverride, "unit-system", "", "The speed unit system <SI, IEC>. SI steps by 1000 (Kbps), IEC by 1024 (Kibps)")
	cmd.Flags().BoolVarP(&timestampOverride, "timestamp", "t", false, "Include a timestamp")
	cmd.Flags().StringVar(&timestampFormatOverride, "timestamp-format", "", "Go time layout for the timestamp (default \"2006-01-02 15:04:05\")")
	cmd.Flags().BoolVar(&csvOverride, "csv", false, "Display minimal output in CSV format (always includes timestamp)")
	cmd.Flags().StringVar(&csvDelimiterOverride, "csv-delimiter", "", "Single character delimiter to use in CSV output (default \",\")")
	cmd.Flags().BoolVar(&csvHeader, "csv-header", false, "Print the CSV header before the row")
	cmd.Flags().IntVar(&parallelOverride, "parallel", 0, "Concurrent transfers for download and upload")
	cmd.Flags().BoolVar(&tolerateOverride, "tolerate-errors", false, "Count failed transfers as zero bytes instead of aborting")
	cmd.Flags().StringVar(&jsonOutputOverride, "json-output", "", "Append the result as a JSON line to this file (\"-\" for stdout)")
}

func init() {
	for _, c := range []*cobra.Command{runCmd, downloadCmd, uploadCmd} {
		rootCmd.AddCommand(c)
		addTestFlags(c)
	}

	runCmd.Flags().BoolVar(&noDownloadOverride, "no-download", false, "Do not perform download test")
	runCmd.Flags().BoolVar(&noUploadOverride, "no-upload", false, "Do not perform upload test")
}
