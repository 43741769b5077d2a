// Package inferencer is the HTTP client of the topic inference service.
package inferencer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/codec"
	"github.com/kailas-cloud/topicdex/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.Inferencer    = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// DefaultTimeout bounds one inference call unless the caller's context is tighter.
const DefaultTimeout = 120 * time.Second

const inferPath = "/inference_operations/inferDoc"

// Config holds the inference service settings.
type Config struct {
	URL         string
	Timeout     time.Duration
	ThetaBudget int // used when the service answers with dense thetas
	Logger      *zap.Logger
}

// Client calls the inference service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	timeout     time.Duration
	thetaBudget int
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an inference client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("inferencer: url is required")
	}
	c := &Client{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		timeout:     cfg.Timeout,
		thetaBudget: cfg.ThetaBudget,
		logger:      cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.thetaBudget <= 0 {
		c.thetaBudget = 1000
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type inferResponse struct {
	ResponseHeader struct {
		Status int     `json:"status"`
		Time   float64 `json:"time"`
	} `json:"responseHeader"`
	Response []struct {
		ID     json.RawMessage `json:"id"`
		Thetas json.RawMessage `json:"thetas"`
	} `json:"response"`
}

// Infer returns the topic representation of text under model, encoded as
// "t<idx>|weight" pairs.
func (c *Client) Infer(ctx context.Context, model, text string) (domain.Inference, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("text_to_infer", text)
	q.Set("model_for_infer", model)

	start := time.Now()
	inf, err := c.infer(ctx, c.baseURL+inferPath+"?"+q.Encode())
	metrics.ObserveInference(err, time.Since(start))
	if err != nil {
		c.logger.Warn("Inference failed", zap.String("model", model), zap.Error(err))
		return domain.Inference{}, err
	}
	return inf, nil
}

func (c *Client) infer(ctx context.Context, endpoint string) (domain.Inference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return domain.Inference{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Inference{}, fmt.Errorf("inference request: %w: %w", domain.ErrInferenceFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Inference{}, fmt.Errorf("read inference response: %w: %w", domain.ErrInferenceFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Inference{}, fmt.Errorf("inference status %d: %s: %w",
			resp.StatusCode, snippet(body), domain.ErrInferenceFailed)
	}

	var parsed inferResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Inference{}, fmt.Errorf("decode inference response: %w: %w", domain.ErrInferenceFailed, err)
	}
	if s := parsed.ResponseHeader.Status; s != 0 && s != http.StatusOK {
		return domain.Inference{}, fmt.Errorf("inference status %d in response header: %w", s, domain.ErrInferenceFailed)
	}
	if len(parsed.Response) == 0 {
		return domain.Inference{}, fmt.Errorf("empty inference response: %w", domain.ErrInferenceFailed)
	}

	first := parsed.Response[0]
	thetas, err := c.thetas(first.Thetas)
	if err != nil {
		return domain.Inference{}, fmt.Errorf("inference thetas: %w: %w", domain.ErrInferenceFailed, err)
	}
	return domain.Inference{ID: strings.Trim(string(first.ID), `"`), Thetas: thetas}, nil
}

// thetas accepts an already encoded string or a dense per-topic weight list.
func (c *Client) thetas(raw json.RawMessage) (string, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if _, err := codec.Parse(encoded); err != nil {
			return "", err
		}
		return encoded, nil
	}
	var dense []float64
	if err := json.Unmarshal(raw, &dense); err != nil {
		return "", fmt.Errorf("thetas are neither an encoded string nor a weight list")
	}
	weights, err := codec.Quantize(dense, c.thetaBudget)
	if err != nil {
		return "", err
	}
	return codec.Encode(weights, codec.TopicTokens)
}

// HealthCheck verifies the service answers HTTP at its base URL.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference health: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("inference health: status %d", resp.StatusCode)
	}
	return nil
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
