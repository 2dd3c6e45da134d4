package utils

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/go-http-utils/headers"
)

type HTTPClientConfig struct {
	// Timeout bounds connection setup and the wait for response headers.
	// Body reads are policed by the per-worker inactivity watchdog instead.
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	IPVersion      int  // 0 for any, 4 or 6 to pin the address family
	HighThreadMode bool // advanced socket options for high concurrency
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RgetHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewRgetHTTPClient(cfg HTTPClientConfig) *RgetHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultInactivityTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	network := dialNetwork(cfg.IPVersion)
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		IdleConnTimeout:       cfg.KATimeout,
		ResponseHeaderTimeout: cfg.Timeout,
		TLSHandshakeTimeout:   cfg.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
		MaxConnsPerHost:       0,
		ForceAttemptHTTP2:     true,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			logger := GetLogger("http-client")
			logger.Warn().Err(err).Str("proxy", cfg.ProxyURL).Msg("Invalid proxy URL, proceeding without proxy")
		}
	}
	return &RgetHTTPClient{
		// no client-level Timeout: it would cap the whole transfer, not silence
		client: &http.Client{Transport: transport},
		config: cfg,
	}
}

func (d *RgetHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if d.config.UserAgent != "" {
		req.Header.Set(headers.UserAgent, d.config.UserAgent)
	} else {
		req.Header.Set(headers.UserAgent, ToolUserAgent)
	}
	for k, v := range d.config.Headers {
		req.Header.Set(k, v)
	}
	return d.client.Do(req)
}

// CloseIdleConnections releases keep-alive sockets once a job is done with
// the client.
func (d *RgetHTTPClient) CloseIdleConnections() {
	d.client.CloseIdleConnections()
}

func dialNetwork(ipVersion int) string {
	switch ipVersion {
	case 4:
		return "tcp4"
	case 6:
		return "tcp6"
	}
	return "tcp"
}
