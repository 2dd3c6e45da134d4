package rgethttp

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tanq16/rget/internal/utils"
)

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// fileServer serves data with full Range support via http.ServeContent and
// records every Range header it sees.
type fileServer struct {
	*httptest.Server
	data []byte

	mu     sync.Mutex
	ranges []string
	gets   int

	// ignoreRanges answers every GET with 200 and the whole body while
	// still advertising Accept-Ranges.
	ignoreRanges bool
}

func newFileServer(t *testing.T, data []byte) *fileServer {
	t.Helper()
	fs := &fileServer{data: data}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.ranges = append(fs.ranges, r.Header.Get("Range"))
	if r.Method == http.MethodGet {
		fs.gets++
	}
	ignore := fs.ignoreRanges
	fs.mu.Unlock()

	if ignore {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.Itoa(len(fs.data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(fs.data)
		}
		return
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(fs.data))
}

func (fs *fileServer) seenRanges() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.ranges...)
}

func newTestJob(url, outputPath string, threads int, resume bool) *utils.RgetJob {
	return &utils.RgetJob{
		JobType:           "http",
		URL:               url,
		OutputPath:        outputPath,
		Connections:       threads,
		Resume:            resume,
		ChunkSize:         32 * 1024,
		InactivityTimeout: 2 * time.Second,
		Metadata:          make(map[string]any),
	}
}

func runJob(t *testing.T, d *HTTPDownloader, job *utils.RgetJob) utils.Outcome {
	t.Helper()
	require.NoError(t, d.ValidateJob(job))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.BuildJob(ctx, job); err != nil {
		return utils.Failed(err)
	}
	return d.Download(ctx, job)
}

func tempOutput(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
