// Package copilot is the typed HTTP client of the PM Copilot backend.
//
// Every operation sends exactly one request. Failures of any kind are returned
// as *RequestError whose Message can be shown to users directly. The client
// keeps no mutable state and is safe for concurrent use.
package copilot

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	ctxlog "github.com/kart-io/pm-copilot/pkg/infra/logger"
	"github.com/kart-io/pm-copilot/pkg/infra/tracing"
	"github.com/kart-io/pm-copilot/pkg/utils/httpclient"
	"github.com/kart-io/pm-copilot/pkg/utils/id"
	"github.com/kart-io/pm-copilot/pkg/utils/json"
)

// DefaultBaseURL is the address of the backend.
const DefaultBaseURL = "http://localhost:8000"

const tracerName = "github.com/kart-io/pm-copilot/pkg/client/copilot"

// Backend endpoint paths.
const (
	PathHealth  = "/health"
	PathChat    = "/chat"
	PathSearch  = "/search"
	PathStats   = "/stats"
	PathHistory = "/history"
)

// Client calls the PM Copilot REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	requestIDs id.Generator
	transport  *httpclient.Client
}

// NewClient creates a Client for DefaultBaseURL. The underlying http.Client
// has no timeout. Use the context of each call to bound it.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transport = httpclient.NewClient(httpclient.WithHTTPClient(c.httpClient))
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckHealth reports backend liveness and whether the agent is initialized.
func (c *Client) CheckHealth(ctx context.Context, opts ...RequestOption) (*v1.HealthResponse, error) {
	var out v1.HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, PathHealth, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one user message and returns the agent's answer.
// The caller is responsible for rejecting empty messages.
func (c *Client) Chat(ctx context.Context, req *v1.ChatRequest, opts ...RequestOption) (*v1.ChatResponse, error) {
	if req == nil {
		req = &v1.ChatRequest{}
	}
	var out v1.ChatResponse
	if err := c.do(ctx, "chat", http.MethodPost, PathChat, req, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns knowledge-base documents similar to the query.
// When K is set the backend returns at most K documents.
func (c *Client) Search(ctx context.Context, req *v1.SearchRequest, opts ...RequestOption) (*v1.SearchResponse, error) {
	if req == nil {
		req = &v1.SearchRequest{}
	}
	var out v1.SearchResponse
	if err := c.do(ctx, "search", http.MethodPost, PathSearch, req, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStats returns a snapshot of the vector index.
func (c *Client) GetStats(ctx context.Context, opts ...RequestOption) (*v1.StatsResponse, error) {
	var out v1.StatsResponse
	if err := c.do(ctx, "stats", http.MethodGet, PathStats, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory returns the server-side conversation, oldest turn first.
func (c *Client) GetHistory(ctx context.Context, opts ...RequestOption) (*v1.HistoryResponse, error) {
	var out v1.HistoryResponse
	if err := c.do(ctx, "history", http.MethodGet, PathHistory, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory deletes the server-side conversation. Clearing an empty
// history succeeds.
func (c *Client) ClearHistory(ctx context.Context, opts ...RequestOption) (*v1.ClearHistoryResponse, error) {
	var out v1.ClearHistoryResponse
	if err := c.do(ctx, "clear_history", http.MethodDelete, PathHistory, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, opts []RequestOption) (err error) {
	ctx, span := tracing.StartClientSpan(ctx, tracerName, "copilot."+op,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer span.End()

	ctx = ctxlog.WithSpanFields(ctxlog.WithOperation(ctx, op))

	start := time.Now()
	status := 0
	defer func() {
		log := ctxlog.GetLogger(ctx)
		if err != nil {
			tracing.RecordError(ctx, err)
			log.Warnw("Backend call failed",
				"method", method,
				"path", path,
				"status", status,
				"duration", time.Since(start),
				"error", err.Error(),
			)
			return
		}
		log.Debugw("Backend call finished",
			"method", method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
		)
	}()

	req, err := c.newRequest(ctx, method, path, in, opts)
	if err != nil {
		return err
	}
	ctx = ctxlog.WithRequestID(ctx, req.Header.Get(HeaderRequestID))

	resp, sendErr := c.transport.Send(req)
	if sendErr != nil {
		return transportError(sendErr)
	}
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if !resp.OK() {
		return errorFromResponse(status, resp.Body)
	}

	if decodeErr := json.Unmarshal(resp.Body, out); decodeErr != nil {
		return &RequestError{
			Message:    "invalid response body: " + decodeErr.Error(),
			StatusCode: status,
			Err:        decodeErr,
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any, opts []RequestOption) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, &RequestError{Message: "encode request body: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, transportError(err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range newRequestConfig(opts).headers {
		req.Header[key] = append([]string(nil), values...)
	}
	if c.requestIDs != nil && req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, c.requestIDs.Generate())
	}

	return req, nil
}
