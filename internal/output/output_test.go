package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() model.Report {
	return model.Report{
		RunID:         "0b9c2f64-3f8e-4d57-9d4e-0f9a1c2b3d4e",
		Timestamp:     time.Date(1980, 1, 1, 10, 5, 0, 0, time.UTC),
		Server:        model.Server{Name: "Test Server 1", Sponsor: "Test Sponsor 1", URL: "http://test1.example"},
		Latency:       100,
		Download:      &model.Result{Bytes: 1000, Elapsed: time.Second},
		DownloadSpeed: "8 Kbps",
		Upload:        &model.Result{Bytes: 7000, Elapsed: 3 * time.Second},
		UploadSpeed:   "18.67 Kbps",
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, ';', "2006-01-02 15:04:05")

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Header, ";"), lines[0])
	assert.Equal(t, "1980-01-01 10:05:00;0b9c2f64-3f8e-4d57-9d4e-0f9a1c2b3d4e;Test Sponsor 1;Test Server 1;100;8 Kbps;18.67 Kbps", lines[1])
}

func TestCSVWriter_SkippedUpload(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, ',', time.RFC3339)

	r := testReport()
	r.Upload = nil
	r.UploadSpeed = ""
	require.NoError(t, w.Write(r))

	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), ",8 Kbps,"))
}

func TestJSONWriter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	for i := 0; i < 2; i++ {
		w, err := OpenJSONFile(path, nil)
		require.NoError(t, err)
		require.NoError(t, w.Write(testReport()))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "8 Kbps", decoded["download_speed"])
	assert.Equal(t, "BitsPerSecond", decoded["unit"])
	assert.Equal(t, "SI", decoded["unit_system"])
}

func TestJSONWriter_Stdout(t *testing.T) {
	var out bytes.Buffer
	w, err := OpenJSONFile("-", &out)
	require.NoError(t, err)
	require.NoError(t, w.Write(testReport()))
	require.NoError(t, w.Close())

	var decoded model.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "8 Kbps", decoded.DownloadSpeed)
	assert.Equal(t, model.BitsPerSecond, decoded.Unit)
}

func TestConsole_Result(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Err: &out}

	require.NoError(t, c.Result(testReport(), false, ""))
	assert.Equal(t, "Download: 8 Kbps Upload: 18.67 Kbps\n", out.String())

	out.Reset()
	require.NoError(t, c.Result(testReport(), true, "2006-01-02 15:04:05"))
	assert.Equal(t, "1980-01-01 10:05:00 Download: 8 Kbps Upload: 18.67 Kbps\n", out.String())

	out.Reset()
	r := testReport()
	r.Download = nil
	require.NoError(t, c.Result(r, false, ""))
	assert.Equal(t, "Upload: 18.67 Kbps\n", out.String())
}

func TestConsole_ServerRow(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}

	s := model.Server{Name: "Test Server 1", Sponsor: "Test Sponsor 1", Country: "UK"}
	c.ServerRow(s, true)
	assert.True(t, strings.HasSuffix(out.String(), " -\n"))

	out.Reset()
	c.ServerRow(s.WithLatency(42), true)
	assert.True(t, strings.HasSuffix(out.String(), " 42 ms\n"))
}

func TestConsole_Transferred(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}

	c.Transferred("downloaded", model.Result{Bytes: 12000000, Elapsed: 3200 * time.Millisecond})
	assert.Equal(t, "12 MB downloaded in 3.2s\n", out.String())
}

func TestProgressBar_SkipsRepeatedPercent(t *testing.T) {
	var errOut bytes.Buffer
	c := &Console{Err: &errOut}

	bar := c.Progress("Downloading")
	bar.Update(model.Progress{Percent: 50, Speed: 1000})
	first := errOut.Len()
	bar.Update(model.Progress{Percent: 50, Speed: 2000})
	assert.Equal(t, first, errOut.Len())

	bar.Update(model.Progress{Percent: 100, Speed: 1000})
	bar.Done()
	assert.Contains(t, errOut.String(), "100%")
	assert.True(t, strings.HasSuffix(errOut.String(), "\n"))
}
