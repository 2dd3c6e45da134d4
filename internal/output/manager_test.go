package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf, false)
	m.StartDisplay()

	ok := m.Register("a.bin")
	skipped := m.Register("b.bin")
	failed := m.Register("c.bin")

	m.Start(ok)
	m.UpdateProgress(ok, 512, 1024)
	entry, found := m.Entry(ok)
	require.True(t, found)
	assert.Equal(t, StatusActive, entry.Status)
	require.Len(t, entry.StreamLines, 1)
	assert.Contains(t, entry.StreamLines[0], "50.0%")

	m.Complete(ok, "Completed a.bin", 1024, time.Second)
	m.Skip(skipped, "Skipped b.bin")
	m.ReportError(failed, errors.New("unexpected status code 404"))

	entry, _ = m.Entry(ok)
	assert.True(t, entry.Complete)
	assert.Empty(t, entry.StreamLines)

	m.StopDisplay()
	out := buf.String()
	assert.Contains(t, out, "Completed a.bin")
	assert.Contains(t, out, "Skipped 1 of 3")
	assert.Contains(t, out, "Failed 1 of 3")
	assert.Contains(t, out, "unexpected status code 404")
}

func TestUpdateProgressUnknownTotal(t *testing.T) {
	m := NewManager(&bytes.Buffer{}, false)
	id := m.Register("stream")
	m.UpdateProgress(id, 2048, -1)
	entry, _ := m.Entry(id)
	require.Len(t, entry.StreamLines, 1)
	assert.NotContains(t, entry.StreamLines[0], "%")
	assert.Contains(t, entry.StreamLines[0], "2.00 KB")
}

func TestPrintProgressBarClamps(t *testing.T) {
	assert.Contains(t, PrintProgressBar(5000, 1000, 10), "100.0%")
	assert.Contains(t, PrintProgressBar(-1, 1000, 10), "0.0%")
	assert.Equal(t, 10, strings.Count(PrintProgressBar(1000, 1000, 10), StyleSymbols["hline"]))
}

func TestCompleteReportsSpeed(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf, false)
	m.StartDisplay()
	id := m.Register("a.bin")
	m.Complete(id, "Completed a.bin", 4096, 2*time.Second)

	entry, _ := m.Entry(id)
	assert.Equal(t, "Completed a.bin (4.00 KB in 2s, 2.00 KB/s)", entry.Message)
	assert.Equal(t, int64(4096), entry.Bytes)
	assert.Equal(t, 2*time.Second, entry.Elapsed)

	m.StopDisplay()
	out := buf.String()
	assert.Contains(t, out, "2.00 KB/s")
	assert.Contains(t, out, "average)")
}

func TestSummaryCountsTransferredBytesOnly(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf, false)
	m.StartDisplay()
	id := m.Register("resumed.bin")
	m.Start(id)
	// a resume reports progress from the existing prefix onwards
	m.UpdateProgress(id, 1536, 1536)
	m.Complete(id, "Completed resumed.bin", 512, time.Second)
	m.StopDisplay()

	assert.Contains(t, buf.String(), "Completed 1 of 1 (512 B in ")
	assert.NotContains(t, buf.String(), "1.50 KB in")
}
