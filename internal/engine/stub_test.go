package engine

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/config"
	"github.com/daryltucker/speedtest-runner/internal/model"
)

// stubServer imitates a speedtest.net server under /speedtest/.
// random{N}x{N}.jpg answers with N bytes so totals are predictable.
type stubServer struct {
	*httptest.Server

	marker       string
	latencyDelay time.Duration
	failDownload func(r *http.Request) bool

	latencyHits  atomic.Int64
	downloadHits atomic.Int64
	uploadBytes  atomic.Int64

	mu      sync.Mutex
	headers []http.Header
}

func newStubServer(t *testing.T, configure func(*stubServer)) *stubServer {
	t.Helper()

	s := &stubServer{marker: "test=test\n"}
	if configure != nil {
		configure(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/speedtest/latency.txt", func(w http.ResponseWriter, r *http.Request) {
		s.latencyHits.Add(1)
		if s.latencyDelay > 0 {
			time.Sleep(s.latencyDelay)
		}
		fmt.Fprint(w, s.marker)
	})
	mux.HandleFunc("/speedtest/upload.php", func(w http.ResponseWriter, r *http.Request) {
		n, _ := io.Copy(io.Discard, r.Body)
		s.uploadBytes.Add(n)
		fmt.Fprintf(w, "size=%d", n)
	})
	mux.HandleFunc("/speedtest/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		var a, b int
		name := strings.TrimPrefix(r.URL.Path, "/speedtest/")
		if _, err := fmt.Sscanf(name, "random%dx%d.jpg", &a, &b); err != nil {
			http.NotFound(w, r)
			return
		}
		if s.failDownload != nil && s.failDownload(r) {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		s.downloadHits.Add(1)
		w.Write([]byte(strings.Repeat("x", a)))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) uploadURL() string {
	return s.URL + "/speedtest/upload.php"
}

func (s *stubServer) server(name string) model.Server {
	return model.Server{Name: name, Sponsor: name + " Sponsor", Country: "Testland", URL: s.uploadURL()}
}

// serveList returns an httptest server publishing servers as speedtest-servers.php XML.
func serveList(t *testing.T, servers ...model.Server) *httptest.Server {
	t.Helper()

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><settings><servers>`)
	for i, s := range servers {
		fmt.Fprintf(&b, `<server url="%s" lat="51.5" lon="-0.12" name="%s" country="%s" cc="GB" sponsor="%s" id="%d" host="%s" />`,
			s.URL, s.Name, s.Country, s.Sponsor, i+1, strings.TrimPrefix(s.URL, "http://"))
	}
	b.WriteString(`</servers></settings>`)
	body := b.String()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(serversURL string) config.Config {
	cfg := config.DefaultConfig()
	cfg.ServersURL = serversURL
	cfg.HTTPTimeout = 5 * time.Second
	cfg.DownloadSizes = []int{350, 500}
	cfg.DownloadIterations = 3
	cfg.DownloadParallel = 2
	cfg.UploadTiers = 2
	cfg.UploadTierSize = 1024
	cfg.UploadCopies = 3
	cfg.UploadParallel = 2
	return *cfg
}
