// Package httpclient builds the outbound HTTP client used for webhook
// delivery: pooled connections, bounded dial and TLS timeouts and a fixed
// User-Agent.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is used when Config.Timeout is not set.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "ppewatch"

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second
)

// Config holds configuration for creating an HTTP client.
type Config struct {
	// Timeout bounds a whole request including reading the body
	Timeout time.Duration

	// UserAgent is added to requests that do not set one
	UserAgent string
}

// New returns an *http.Client with a tuned transport.
func New(cfg Config) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{
		Timeout:   defaultDialTimeout,
		KeepAlive: defaultDialKeepAlive,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: transport, userAgent: cfg.UserAgent},
	}
}

// userAgentTransport sets the User-Agent header on requests lacking one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// CloseIdleConnections releases pooled connections held by client.
func CloseIdleConnections(client *http.Client) {
	if t, ok := client.Transport.(*userAgentTransport); ok {
		if ht, ok := t.base.(*http.Transport); ok {
			ht.CloseIdleConnections()
		}
		return
	}
	client.CloseIdleConnections()
}
