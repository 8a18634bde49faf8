package copilot

import (
	"net/http"
	"strings"

	"github.com/kart-io/pm-copilot/pkg/utils/id"
)

// HeaderRequestID carries the generated request identifier.
const HeaderRequestID = "X-Request-ID"

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the backend root. A trailing slash is removed.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the http.Client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithHeader adds a header sent with every call. It overrides the default
// Content-Type when the names match.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRequestID attaches an X-Request-ID from gen to every call that does
// not already carry one.
func WithRequestID(gen id.Generator) Option {
	return func(c *Client) {
		c.requestIDs = gen
	}
}

// RequestOption configures a single call.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

// WithRequestHeader sets a header on one call. It overrides client-level headers.
func WithRequestHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.headers.Set(key, value)
	}
}

func newRequestConfig(opts []RequestOption) *requestConfig {
	rc := &requestConfig{headers: make(http.Header)}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}
