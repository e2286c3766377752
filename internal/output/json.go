/*
PURPOSE:
  Writes speed test reports to a JSON Lines file (NDJSON).
  Optimized for machine parsing and long-running collection via cron.

REQUIREMENTS:
  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array (append-friendly).
  - Unlike CSV on stdout, the file is appended to, never truncated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.Report

ERROR HANDLING:
  - Returns error on file open or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.
  - "-" means stdout; Close() never closes a writer it did not open.

USAGE:
  w, err := output.OpenJSONFile("results.jsonl", os.Stdout)
  w.Write(report)
  w.Close()
*/

package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/daryltucker/speedtest-runner/internal/model"
)

// JSONWriter writes one report per line.
type JSONWriter struct {
	encoder *json.Encoder
	closer  io.Closer
	mu      sync.Mutex
}

// NewJSONWriter encodes onto w. Close is a no-op.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{encoder: json.NewEncoder(w)}
}

// OpenJSONFile opens path for appending, creating it if needed.
// If path is "-", stdout is used instead.
func OpenJSONFile(path string, stdout io.Writer) (*JSONWriter, error) {
	if path == "-" {
		return NewJSONWriter(stdout), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	jw := NewJSONWriter(f)
	jw.closer = f
	return jw, nil
}

func (jw *JSONWriter) Write(r model.Report) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

func (jw *JSONWriter) Close() error {
	if jw.closer == nil {
		return nil
	}
	return jw.closer.Close()
}
