package engine

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/daryltucker/speedtest-runner/internal/output"
)

// ServerSource yields the candidate servers for a run.
type ServerSource interface {
	Servers(ctx context.Context) ([]model.Server, error)
}

// StaticServers is a fixed ServerSource.
type StaticServers []model.Server

func (s StaticServers) Servers(context.Context) ([]model.Server, error) {
	return append([]model.Server{}, s...), nil
}

type serversList struct {
	XMLName xml.Name       `xml:"settings"`
	Servers []model.Server `xml:"servers>server"`
}

// ParseServers decodes a speedtest-servers.php payload. Empty or malformed
// input yields an empty, non-nil slice.
func ParseServers(data []byte) []model.Server {
	var list serversList
	if err := xml.Unmarshal(data, &list); err != nil {
		output.Logger.Warn("Ignoring malformed servers list", "error", err)
		return []model.Server{}
	}
	if list.Servers == nil {
		return []model.Server{}
	}
	return list.Servers
}

// Servers fetches and parses Config.ServersURL.
func (e *Engine) Servers(ctx context.Context) ([]model.Server, error) {
	client := e.NewClient(e.Config.HTTPTimeout)
	defer client.CloseIdleConnections()

	req, err := newRequest(ctx, http.MethodGet, e.Config.ServersURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch servers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch servers: bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch servers: %w", err)
	}

	servers := ParseServers(data)
	output.Logger.Debug("Found servers", "url", e.Config.ServersURL, "count", len(servers))
	return servers, nil
}
