package rgethttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/rget/internal/utils"
)

func probeServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func TestProbePartialContent(t *testing.T) {
	url := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 0-0/4096")
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte{0})
	})

	caps, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	require.NoError(t, err)
	assert.True(t, caps.AcceptsRanges)
	assert.Equal(t, int64(4096), caps.Length)
	assert.Equal(t, `"abc"`, caps.ETag)
}

func TestProbeFullResponse(t *testing.T) {
	url := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.Header().Set("Content-Disposition", `attachment; filename="data.csv"`)
		w.Write([]byte("0123456789"))
	})

	caps, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	require.NoError(t, err)
	assert.False(t, caps.AcceptsRanges)
	assert.Equal(t, int64(10), caps.Length)
	assert.Equal(t, "data.csv", caps.FileName)
}

func TestProbeEmptyResource(t *testing.T) {
	url := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes */0")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	})

	caps, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	require.NoError(t, err)
	assert.Equal(t, int64(0), caps.Length)
}

func TestProbeHeadFallback(t *testing.T) {
	var methods []string
	url := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "2048")
	})

	caps, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodGet, http.MethodHead}, methods)
	assert.True(t, caps.AcceptsRanges)
	assert.Equal(t, int64(2048), caps.Length)
}

func TestProbeNotFound(t *testing.T) {
	url := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	require.ErrorIs(t, err, ErrProbe)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestProbeConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := Probe(context.Background(), utils.NewRgetHTTPClient(utils.HTTPClientConfig{}), url)
	assert.ErrorIs(t, err, ErrProbe)
}

func TestTotalFromContentRange(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"bytes 0-0/1234", 1234},
		{"bytes */0", 0},
		{"bytes 0-0/*", -1},
		{"", -1},
		{"bytes 0-0/abc", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, totalFromContentRange(tt.header), tt.header)
	}
}
