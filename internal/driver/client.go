package driver

import (
	"net/http"
	"time"
)

// HTTPClientConfig contains HTTP client configuration.
type HTTPClientConfig struct {
	// Timeout for HTTP requests
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle connections
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept alive
	IdleConnTimeout time.Duration
}

// DefaultHTTPClientConfig returns sensible defaults for load testing.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
}

// httpClientConfigFor sizes the idle pool so every VU can keep a connection.
func httpClientConfigFor(vus int, timeout time.Duration) HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if vus > cfg.MaxIdleConnsPerHost {
		cfg.MaxIdleConnsPerHost = vus
	}
	if vus > cfg.MaxIdleConns {
		cfg.MaxIdleConns = vus
	}
	return cfg
}

// newHTTPClient creates the HTTP client shared by all VUs of a run.
func newHTTPClient(cfg HTTPClientConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
