/*
PURPOSE:
  High-level runner that orchestrates a speed test.
  Discovery -> fastest server -> download -> upload -> formatted report.

REQUIREMENTS:
  User-specified:
  - Pick the lowest-latency server.
  - Measure download and upload (each can be skipped).
  - Report speeds in the configured unit and unit system.

  Implementation-discovered:
  - Needs to report progress and the selected server to the CLI as they
    happen, not only at the end.
  - The clock and run ID are injectable so output can be tested.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (Engine, Selector, Throttle), internal/speed

ERROR HANDLING:
  - No servers, or no server answering, is ErrNoServers; no transfer is
    attempted in that case.
  - Transfer errors abort the run (see Config.TolerateErrors).

IMPLEMENTATION RULES:
  - Sequential phases; parallelism lives inside Throttle only.

USAGE:
  report, err := engine.NewRunner(e).Run(ctx, engine.Hooks{})

RELATED FILES:
  - internal/engine/client.go
  - internal/engine/latency.go
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/daryltucker/speedtest-runner/internal/speed"
	"github.com/google/uuid"
)

// ErrNoServers is returned when discovery found nothing or no server answered.
var ErrNoServers = errors.New("no servers available")

// Hooks receive events while a run is in progress. Nil hooks are skipped.
type Hooks struct {
	OnSelected func(Fastest)
	OnDownload func(model.Progress)
	OnUpload   func(model.Progress)
	// OnPhaseDone is called with "download" or "upload" and its result.
	OnPhaseDone func(phase string, res model.Result)
}

// Runner composes discovery, selection and the throughput tests.
type Runner struct {
	Engine   *Engine
	Source   ServerSource
	Selector *Selector

	Now      func() time.Time
	NewRunID func() string
}

// NewRunner wires a Runner around e using e for discovery and probing.
func NewRunner(e *Engine) *Runner {
	return &Runner{
		Engine:   e,
		Source:   e,
		Selector: &Selector{Prober: e, DefaultTimeout: e.Config.HTTPTimeout},
		Now:      time.Now,
		NewRunID: uuid.NewString,
	}
}

// SelectServer discovers servers and returns the fastest one.
func (r *Runner) SelectServer(ctx context.Context) (Fastest, error) {
	servers, err := r.Source.Servers(ctx)
	if err != nil {
		return Fastest{}, err
	}
	if len(servers) == 0 {
		return Fastest{}, ErrNoServers
	}

	output.Logger.Debug("Probing servers", "count", len(servers))
	best, ok := r.Selector.Fastest(ctx, servers)
	if err := ctx.Err(); err != nil {
		return Fastest{}, err
	}
	if !ok {
		return Fastest{}, fmt.Errorf("%w: none of %d servers answered", ErrNoServers, len(servers))
	}
	return best, nil
}

// Run performs a complete speed test.
func (r *Runner) Run(ctx context.Context, hooks Hooks) (model.Report, error) {
	cfg := r.Engine.Config
	report := model.Report{
		RunID:      r.NewRunID(),
		Unit:       cfg.SpeedUnit,
		UnitSystem: cfg.SpeedSystem,
	}

	best, err := r.SelectServer(ctx)
	if err != nil {
		return report, err
	}
	report.Server = best.Server
	report.Latency = best.Latency
	if hooks.OnSelected != nil {
		hooks.OnSelected(best)
	}

	if !cfg.SkipDownload {
		res, err := r.Engine.Download(ctx, best.Server, hooks.OnDownload)
		if err != nil {
			return report, fmt.Errorf("download test: %w", err)
		}
		if report.DownloadSpeed, err = speed.Format(res, cfg.SpeedUnit, cfg.SpeedSystem); err != nil {
			return report, err
		}
		report.Download = &res
		if hooks.OnPhaseDone != nil {
			hooks.OnPhaseDone("download", res)
		}
	}

	if !cfg.SkipUpload {
		res, err := r.Engine.Upload(ctx, best.Server, hooks.OnUpload)
		if err != nil {
			return report, fmt.Errorf("upload test: %w", err)
		}
		if report.UploadSpeed, err = speed.Format(res, cfg.SpeedUnit, cfg.SpeedSystem); err != nil {
			return report, err
		}
		report.Upload = &res
		if hooks.OnPhaseDone != nil {
			hooks.OnPhaseDone("upload", res)
		}
	}

	report.Timestamp = r.Now()
	output.Logger.Info("Speed test finished",
		"run_id", report.RunID,
		"server", report.Server.URL,
		"latency_ms", report.Latency,
		"download", report.DownloadSpeed,
		"upload", report.UploadSpeed,
	)
	return report, nil
}
