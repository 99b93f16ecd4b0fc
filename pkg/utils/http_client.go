package utils

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultResponseHeaderTimeout = 2 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 5 * time.Second

	defaultMaxConnsPerHost     = 128
	defaultMaxIdleConns        = 256
	defaultMaxIdleConnsPerHost = 128

	defaultDialerTimeout   = 500 * time.Millisecond
	defaultDialerKeepAlive = 30 * time.Second
)

// ClientConfig tunes the shared HTTP client. Zero values fall back to
// defaults, so the empty config is safe.
type ClientConfig struct {
	ClientTimeout         time.Duration
	ResponseHeaderTimeout time.Duration
	MaxConnsPerHost       int
}

type ClientOption func(*ClientConfig)

func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.ClientTimeout = d }
}

func WithMaxConnsPerHost(n int) ClientOption {
	return func(c *ClientConfig) { c.MaxConnsPerHost = n }
}

// NewHTTPClient builds an *http.Client with bounded timeouts on every
// stage, so a stalled upstream can never hang a request forever.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := ClientConfig{
		ClientTimeout:         defaultClientTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = defaultClientTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = defaultMaxConnsPerHost
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialerTimeout,
			KeepAlive: defaultDialerKeepAlive,
		}).DialContext,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   cfg.ClientTimeout,
	}
}
