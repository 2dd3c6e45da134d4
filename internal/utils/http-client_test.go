package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRgetHTTPClientInvalidProxy(t *testing.T) {
	var gotUA, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotToken = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewRgetHTTPClient(HTTPClientConfig{
		ProxyURL:  "http://[::1",
		UserAgent: "rget-test",
		Headers:   map[string]string{"X-Token": "abc"},
	})
	defer client.CloseIdleConnections()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err, "an unparsable proxy falls back to a direct connection")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "rget-test", gotUA)
	assert.Equal(t, "abc", gotToken)
}

func TestRgetHTTPClientDefaultUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewRgetHTTPClient(HTTPClientConfig{})
	defer client.CloseIdleConnections()
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, ToolUserAgent, gotUA)
}

func TestDialNetwork(t *testing.T) {
	assert.Equal(t, "tcp4", dialNetwork(4))
	assert.Equal(t, "tcp6", dialNetwork(6))
	assert.Equal(t, "tcp", dialNetwork(0))
}
