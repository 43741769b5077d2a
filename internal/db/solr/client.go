// Package solr implements db.Engine against a Solr-compatible HTTP+JSON API.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/metrics"
)

// Compile-time check: Client implements db.Engine.
var _ db.Engine = (*Client)(nil)

// DefaultTimeout bounds a single engine call unless the caller's context is tighter.
const DefaultTimeout = 60 * time.Second

// Config holds connection parameters for a Solr engine.
type Config struct {
	URL       string
	ConfigSet string
	NumShards int
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
}

// Client talks to the engine over HTTP.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	configSet  string
	numShards  int
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an engine client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		configSet:  cfg.ConfigSet,
		numShards:  cfg.NumShards,
		timeout:    cfg.Timeout,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.numShards <= 0 {
		c.numShards = 1
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		ResponseHeader responseHeader `json:"responseHeader"`
	}
	q := url.Values{"wt": {"json"}}
	if err := c.do(ctx, db.OpPing, http.MethodGet, "/solr/admin/info/system", q, nil, &out); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the engine responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search engine: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

type responseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

type errorBody struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body any,
	out any,
) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveEngineCall(op, err, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &db.Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &db.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &db.Error{Op: op, Status: resp.StatusCode, Err: statusError(op, resp.StatusCode, raw)}
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &db.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", db.ErrMalformedResponse, err)}
	}
	return nil
}

// statusError classifies a non-2xx answer, keeping the engine's message.
// Schema errors are reported inside error.details, so the raw body is matched.
func statusError(op string, status int, raw []byte) error {
	var eb errorBody
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Msg != "" {
		msg = eb.Error.Msg
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}

	lower := strings.ToLower(string(raw))
	switch {
	case op == db.OpAddField && strings.Contains(lower, "already exists"):
		return fmt.Errorf("%w: %s", db.ErrFieldExists, msg)
	case op == db.OpDeleteField && (strings.Contains(lower, "is not present") ||
		strings.Contains(lower, "undefined field")):
		return fmt.Errorf("%w: %s", db.ErrFieldNotFound, msg)
	case status == http.StatusConflict, strings.Contains(lower, "already exists"):
		return fmt.Errorf("%w: %s", db.ErrCollectionExists, msg)
	case status == http.StatusNotFound,
		strings.Contains(lower, "could not find collection"),
		strings.Contains(lower, "does not exist"):
		return fmt.Errorf("%w: %s", db.ErrCollectionNotFound, msg)
	default:
		return fmt.Errorf("%w: %s", db.ErrUnexpectedStatus, msg)
	}
}
