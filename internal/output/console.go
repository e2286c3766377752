package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/dustin/go-humanize"
)

const barWidth = 30

// Console renders human-readable output. Results go to Out, progress to Err.
type Console struct {
	Out io.Writer
	Err io.Writer
}

// Result prints "[<ts> ]Download: <speed> Upload: <speed>", omitting skipped directions.
func (c *Console) Result(r model.Report, timestamp bool, layout string) error {
	var parts []string
	if timestamp {
		parts = append(parts, r.Timestamp.Format(layout))
	}
	if r.Download != nil {
		parts = append(parts, "Download: "+r.DownloadSpeed)
	}
	if r.Upload != nil {
		parts = append(parts, "Upload: "+r.UploadSpeed)
	}
	_, err := fmt.Fprintln(c.Out, strings.Join(parts, " "))
	return err
}

// Selected prints the chosen server, e.g. "Example ISP (12 ms)".
func (c *Console) Selected(s model.Server, latency int) {
	fmt.Fprintf(c.Out, "%s (%d ms)\n", s.Sponsor, latency)
}

// Transferred prints a debug line such as "12 MB downloaded in 3.2s".
func (c *Console) Transferred(verb string, r model.Result) {
	fmt.Fprintf(c.Out, "%s %s in %s\n", humanize.Bytes(uint64(r.Bytes)), verb, r.Elapsed.Round(time.Millisecond))
}

// ServersHeader prints the column titles of the servers table.
func (c *Console) ServersHeader(latency bool) {
	if latency {
		fmt.Fprintf(c.Out, "%-32s %-24s %-20s %s\n", "SPONSOR", "NAME", "COUNTRY", "LATENCY")
		return
	}
	fmt.Fprintf(c.Out, "%-32s %-24s %s\n", "SPONSOR", "NAME", "COUNTRY")
}

// ServerRow prints one row of the servers table. A nil latency prints "-"
// when the latency column is shown.
func (c *Console) ServerRow(s model.Server, latency bool) {
	if !latency {
		fmt.Fprintf(c.Out, "%-32s %-24s %s\n", s.Sponsor, s.Name, s.Country)
		return
	}
	l := "-"
	if s.Latency != nil {
		l = fmt.Sprintf("%d ms", *s.Latency)
	}
	fmt.Fprintf(c.Out, "%-32s %-24s %-20s %s\n", s.Sponsor, s.Name, s.Country, l)
}

// ProgressBar draws a single-line progress bar on Err.
type ProgressBar struct {
	w     io.Writer
	label string
	mu    sync.Mutex
	last  int
}

// Progress starts a bar labelled label.
func (c *Console) Progress(label string) *ProgressBar {
	return &ProgressBar{w: c.Err, label: label, last: -1}
}

// Update redraws the bar; it is safe to call from the executor callback.
func (p *ProgressBar) Update(pr model.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pr.Percent == p.last {
		return
	}
	p.last = pr.Percent

	filled := barWidth * pr.Percent / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	fmt.Fprintf(p.w, "\r%-12s [%s] %3d%% %s/s", p.label, bar, pr.Percent, humanize.Bytes(uint64(pr.Speed)))
}

// Done ends the bar line.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
}
