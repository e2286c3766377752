package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/daryltucker/speedtest-runner/internal/workload"
)

// latencyMarker must open every latency.txt body.
var latencyMarker = []byte("test=test")

// minProbeTimeout keeps a 0ms best latency from turning into "no timeout"
// on the http.Client.
const minProbeTimeout = time.Millisecond

// Prober measures the round-trip latency of one server.
type Prober interface {
	// Probe returns the average latency in milliseconds, or ok=false when
	// the server did not answer correctly within timeout.
	Probe(ctx context.Context, server model.Server, timeout time.Duration) (latency int, ok bool)
}

// Probe issues Config.LatencyIterations sequential GETs of latency.txt and
// returns floor(total ms / iterations). Any failure marks the server
// unavailable; nothing is returned as an error.
func (e *Engine) Probe(ctx context.Context, server model.Server, timeout time.Duration) (int, bool) {
	latencyURL, err := workload.BaseURL(server.URL, "latency.txt")
	if err != nil {
		output.Logger.Debug("Skipping server", "server", server.URL, "error", err)
		return 0, false
	}

	iterations := max(e.Config.LatencyIterations, 1)
	client := e.NewClient(timeout)
	defer client.CloseIdleConnections()

	var total time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		err := fetchMarker(ctx, client, latencyURL)
		total += time.Since(start)
		if err != nil {
			output.Logger.Debug("Server unavailable", "server", server.URL, "timeout", timeout, "error", err)
			return 0, false
		}
	}

	latency := int(total.Milliseconds()) / iterations
	output.Logger.Debug("Probe finished", "server", server.URL, "latency_ms", latency)
	return latency, true
}

func fetchMarker(ctx context.Context, client *http.Client, url string) error {
	req, err := newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(body, latencyMarker) {
		return fmt.Errorf("unexpected latency.txt content %q", truncate(body, 32))
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// Fastest is the outcome of a successful server selection.
type Fastest struct {
	Server  model.Server
	Latency int
}

// Selector picks the lowest-latency server, probing one server at a time.
type Selector struct {
	Prober Prober
	// DefaultTimeout is both the first probe timeout and the latency a
	// server has to beat to be considered at all.
	DefaultTimeout time.Duration
}

// Fastest returns the server with the smallest latency. The timeout for each
// probe shrinks to 1.5x the best latency seen so far; ties go to the earlier
// server. ok is false when servers is empty or nobody answered.
func (s *Selector) Fastest(ctx context.Context, servers []model.Server) (Fastest, bool) {
	best := int(s.DefaultTimeout.Milliseconds())
	var (
		fastest Fastest
		found   bool
	)

	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}

		timeout := best
		if found {
			timeout = best * 3 / 2
		}

		latency, ok := s.Prober.Probe(ctx, server, max(time.Duration(timeout)*time.Millisecond, minProbeTimeout))
		if ok && latency < best {
			best = latency
			fastest = Fastest{Server: server.WithLatency(latency), Latency: latency}
			found = true
		}
	}

	return fastest, found
}
