/*
PURPOSE:
  Core engine for talking to speed test servers over HTTP.
  Handles per-item client construction and the download/upload units of work.

REQUIREMENTS:
  User-specified:
  - Download: GET <base>/random{N}x{N}.jpg?r={i}, count the body bytes.
  - Upload: POST an opaque payload to the server URL, count the sent bytes.

  Implementation-discovered:
  - Every work item gets its own *http.Client (and transport) so no
    connection state is shared between concurrent transfers.
  - Some servers refuse requests without a browser User-Agent.
  - Cache-Control: no-cache on every request, together with the ?r= parameter.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner), internal/cli
  - Uses: internal/config, internal/model, internal/workload, internal/output

ERROR HANDLING:
  - Transfer errors are wrapped with the URL and returned (they are fatal
    to the test unless TolerateErrors is set).
  - Download treats a non-2xx status as an error; upload ignores the response.

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce timeouts (Config.HTTPTimeout per request).
  - Always drain and close bodies.

USAGE:
  e := engine.New(*cfg)
  res, err := e.Download(ctx, server, onProgress)

SELF-HEALING INSTRUCTIONS:
  - If servers start rejecting requests, check the User-Agent first.

RELATED FILES:
  - internal/engine/throttle.go
  - internal/workload/workload.go

MAINTENANCE:
  - Update for new server endpoint conventions.
*/

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/config"
	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/daryltucker/speedtest-runner/internal/output"
	"github.com/daryltucker/speedtest-runner/internal/workload"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
	accept    = "text/html, application/xhtml+xml, */*"
)

// Engine handles speed test server interactions.
type Engine struct {
	Config config.Config

	// NewClient builds the client used by a single probe or work item.
	NewClient func(timeout time.Duration) *http.Client
}

// New creates a new Engine.
func New(cfg config.Config) *Engine {
	return &Engine{
		Config:    cfg,
		NewClient: newHTTPClient,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Cache-Control", "no-cache")
	return req, nil
}

// downloadItem fetches one URL and returns the number of body bytes received.
func (e *Engine) downloadItem(ctx context.Context, url string) (int64, error) {
	client := e.NewClient(e.Config.HTTPTimeout)
	defer client.CloseIdleConnections()

	req, err := newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("download %s: bad status: %s", url, resp.Status)
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	return n, nil
}

// uploadItem posts payload to url and returns the number of bytes sent.
func (e *Engine) uploadItem(ctx context.Context, url string, payload []byte) (int64, error) {
	client := e.NewClient(e.Config.HTTPTimeout)
	defer client.CloseIdleConnections()

	req, err := newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", url, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return int64(len(payload)), nil
}

// tolerant wraps a transfer so a failing item is logged and counted as zero
// bytes when Config.TolerateErrors is set. Cancellation still aborts.
func tolerant[T any](enabled bool, transfer func(context.Context, T) (int64, error)) func(context.Context, T) (int64, error) {
	if !enabled {
		return transfer
	}
	return func(ctx context.Context, item T) (int64, error) {
		n, err := transfer(ctx, item)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return n, err
		}
		output.Logger.Warn("Transfer failed, continuing", "error", err)
		return 0, nil
	}
}

// Download measures download throughput from server.
func (e *Engine) Download(ctx context.Context, server model.Server, onProgress func(model.Progress)) (model.Result, error) {
	urls, err := workload.DownloadURLs(server.URL, e.Config.DownloadSizes, e.Config.DownloadIterations)
	if err != nil {
		return model.Result{}, err
	}
	items := slices.Collect(urls)

	output.Logger.Debug("Starting download test", "server", server.URL, "items", len(items), "parallel", e.Config.DownloadParallel)
	res, err := Throttle(ctx, items, e.Config.DownloadParallel, tolerant(e.Config.TolerateErrors, e.downloadItem), onProgress)
	if err != nil {
		return res, err
	}
	output.Logger.Debug("Download test finished", "bytes", res.Bytes, "elapsed", res.Elapsed)
	return res, nil
}

// Upload measures upload throughput to server.
func (e *Engine) Upload(ctx context.Context, server model.Server, onProgress func(model.Progress)) (model.Result, error) {
	if _, err := workload.BaseURL(server.URL, "."); err != nil {
		return model.Result{}, err
	}
	items := slices.Collect(workload.UploadPayloads(e.Config.UploadTiers, e.Config.UploadTierSize, e.Config.UploadCopies))

	post := func(ctx context.Context, payload []byte) (int64, error) {
		return e.uploadItem(ctx, server.URL, payload)
	}

	output.Logger.Debug("Starting upload test", "server", server.URL, "items", len(items), "parallel", e.Config.UploadParallel)
	res, err := Throttle(ctx, items, e.Config.UploadParallel, tolerant(e.Config.TolerateErrors, post), onProgress)
	if err != nil {
		return res, err
	}
	output.Logger.Debug("Upload test finished", "bytes", res.Bytes, "elapsed", res.Elapsed)
	return res, nil
}
