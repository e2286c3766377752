/*
PURPOSE:
  Defines the configuration structure and loading logic for Speedtest Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the servers list URL, timeouts, workload sizing,
    parallelism and output format.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (SPEEDTEST_...).
  - Unit, unit system and verbosity are strings in YAML but enums in code;
    Validate() resolves them once so components never re-parse.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config files fall back to DefaultConfig().
  - Validate() wraps ErrInvalid.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults mirror the speedtest.net reference client.
  - Config is passed by value into components; nothing reads it globally.

USAGE:
  cfg, err := config.Load("speedtest.yaml")
  err = cfg.Validate()

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct, DefaultConfig() and Validate().

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate() failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the full configuration for Speedtest Runner.
type Config struct {
	ServersURL  string        `yaml:"servers_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	LatencyIterations int `yaml:"latency_iterations"`

	DownloadSizes      []int `yaml:"download_sizes"`
	DownloadIterations int   `yaml:"download_iterations"`
	DownloadParallel   int   `yaml:"download_parallel"`

	UploadTiers    int `yaml:"upload_tiers"`
	UploadTierSize int `yaml:"upload_tier_size"`
	UploadCopies   int `yaml:"upload_copies"`
	UploadParallel int `yaml:"upload_parallel"`

	// TolerateErrors counts a failed transfer item as zero bytes instead of
	// aborting the whole test.
	TolerateErrors bool `yaml:"tolerate_errors"`

	Unit       string `yaml:"unit"`
	UnitSystem string `yaml:"unit_system"`
	Verbosity  string `yaml:"verbosity"`

	Timestamp       bool   `yaml:"timestamp"`
	TimestampFormat string `yaml:"timestamp_format"`

	CSV          bool   `yaml:"csv"`
	CSVDelimiter string `yaml:"csv_delimiter"`
	// JSONOutput, when set, appends every report as a JSON line to this file.
	JSONOutput string `yaml:"json_output"`

	SkipDownload bool `yaml:"skip_download"`
	SkipUpload   bool `yaml:"skip_upload"`

	// Resolved by Validate().
	SpeedUnit      model.SpeedUnit  `yaml:"-"`
	SpeedSystem    model.UnitSystem `yaml:"-"`
	VerbosityLevel model.Verbosity  `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServersURL:         "http://www.speedtest.net/speedtest-servers.php",
		HTTPTimeout:        100 * time.Second,
		LatencyIterations:  4,
		DownloadSizes:      []int{1500, 2000, 3000, 3500, 4000},
		DownloadIterations: 4,
		DownloadParallel:   8,
		UploadTiers:        6,
		UploadTierSize:     200 * 1024,
		UploadCopies:       10,
		UploadParallel:     8,
		Unit:               "BitsPerSecond",
		UnitSystem:         "SI",
		Verbosity:          "normal",
		TimestampFormat:    "2006-01-02 15:04:05",
		CSVDelimiter:       ",",
		SpeedUnit:          model.BitsPerSecond,
		SpeedSystem:        model.SI,
		VerbosityLevel:     model.Normal,
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment overrides are applied after the file in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		defaults := []string{"speedtest.yaml", "speedtest-runner.yaml"}
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SPEEDTEST_SERVERS_URL"); v != "" {
		c.ServersURL = v
	}
	if v := os.Getenv("SPEEDTEST_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SPEEDTEST_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	return nil
}

// Validate checks ranges and resolves the enum fields.
func (c *Config) Validate() error {
	var err error

	if c.ServersURL == "" {
		return fmt.Errorf("%w: servers_url is empty", ErrInvalid)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalid)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"latency_iterations", c.LatencyIterations},
		{"download_iterations", c.DownloadIterations},
		{"download_parallel", c.DownloadParallel},
		{"upload_tiers", c.UploadTiers},
		{"upload_tier_size", c.UploadTierSize},
		{"upload_copies", c.UploadCopies},
		{"upload_parallel", c.UploadParallel},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%w: %s must be at least 1 (got %d)", ErrInvalid, p.name, p.value)
		}
	}

	if len(c.DownloadSizes) == 0 {
		return fmt.Errorf("%w: download_sizes is empty", ErrInvalid)
	}
	for _, s := range c.DownloadSizes {
		if s < 1 {
			return fmt.Errorf("%w: download size %d", ErrInvalid, s)
		}
	}

	if c.SpeedUnit, err = model.ParseSpeedUnit(c.Unit); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.SpeedSystem, err = model.ParseUnitSystem(c.UnitSystem); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.VerbosityLevel, err = model.ParseVerbosity(c.Verbosity); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("%w: csv_delimiter must be a single character (got %q)", ErrInvalid, c.CSVDelimiter)
	}
	if c.TimestampFormat == "" {
		return fmt.Errorf("%w: timestamp_format is empty", ErrInvalid)
	}

	return nil
}

// Delimiter returns the CSV delimiter rune. Only meaningful after Validate().
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// Save writes the config as YAML to path. An existing file is left alone
// unless overwrite is set.
func (c *Config) Save(path string, overwrite bool) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
