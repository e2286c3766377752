/*
PURPOSE:
  Defines the core data structures used throughout Speedtest Runner.
  These models represent servers, raw measurements and run reports.

REQUIREMENTS:
  User-specified:
  - Record bytes processed and elapsed time per direction.
  - Track the server tested against and its latency.

  Implementation-discovered:
  - Latency is only known after probing, so it is optional on Server.
  - Need JSON tags for the JSON-lines output.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/speed, internal/output, internal/cli
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Servers are values; never share a *Server between runs.

USAGE:
  res := model.Result{Bytes: n, Elapsed: d}

SELF-HEALING INSTRUCTIONS:
  - If new metrics are needed, add field and update CSV/JSON writers.

RELATED FILES:
  - internal/model/units.go
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"time"
)

// Server is a single speed test server as returned by discovery.
// URL is the identity key; names are not unique.
type Server struct {
	ID        int     `json:"id" xml:"id,attr"`
	Name      string  `json:"name" xml:"name,attr"`
	Country   string  `json:"country" xml:"country,attr"`
	Sponsor   string  `json:"sponsor" xml:"sponsor,attr"`
	Host      string  `json:"host" xml:"host,attr"`
	URL       string  `json:"url" xml:"url,attr"`
	Latitude  float64 `json:"lat" xml:"lat,attr"`
	Longitude float64 `json:"lon" xml:"lon,attr"`

	// Latency in milliseconds, nil until probed during this run.
	Latency *int `json:"latency_ms,omitempty" xml:"-"`
}

// WithLatency returns a copy of s with the probed latency attached.
func (s Server) WithLatency(ms int) Server {
	s.Latency = &ms
	return s
}

// MinElapsed is the floor applied to measured durations so a result with
// bytes never carries a zero elapsed time.
const MinElapsed = time.Millisecond

// Result is the aggregate of one throughput test.
type Result struct {
	Bytes   int64         `json:"bytes"`
	Elapsed time.Duration `json:"elapsed"`
}

// Progress is reported by the executor each time a work item completes.
type Progress struct {
	Bytes      int64   `json:"bytes"`       // bytes of the item that just completed
	TotalBytes int64   `json:"total_bytes"` // cumulative since the test started
	Speed      float64 `json:"speed"`       // bytes per second at the time of the update
	Percent    int     `json:"percent"`
}

// Report represents the outcome of a full speed test run.
type Report struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Server    Server    `json:"server"`
	Latency   int       `json:"latency_ms"`

	Download      *Result `json:"download,omitempty"`
	DownloadSpeed string  `json:"download_speed,omitempty"`
	Upload        *Result `json:"upload,omitempty"`
	UploadSpeed   string  `json:"upload_speed,omitempty"`

	Unit       SpeedUnit  `json:"unit"`
	UnitSystem UnitSystem `json:"unit_system"`
}
