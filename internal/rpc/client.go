package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client is a JSON-RPC client over an ordered list of equivalent endpoints.
// A transport failure rotates to the next endpoint before the retry.
type Client struct {
	httpClient   *http.Client
	endpoints    []string
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logrus.Logger

	mu      sync.Mutex
	current int
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string   // single endpoint, used when Endpoints is empty
	Endpoints    []string // tried in order, rotating on failure
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64 // requests per second, 0 disables pacing
	Logger       *logrus.Logger
}

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	endpoints := make([]string, 0, len(cfg.Endpoints)+1)
	for _, e := range cfg.Endpoints {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	if len(endpoints) == 0 && strings.TrimSpace(cfg.BaseURL) != "" {
		endpoints = append(endpoints, strings.TrimSpace(cfg.BaseURL))
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpc client needs at least one endpoint")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoints:    endpoints,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       cfg.Logger,
	}, nil
}

// Endpoint returns the endpoint the next call will use.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.current]
}

func (c *Client) rotate(failed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoints[c.current] != failed || len(c.endpoints) == 1 {
		return
	}
	c.current = (c.current + 1) % len(c.endpoints)
	c.logger.WithFields(logrus.Fields{
		"failed": failed,
		"next":   c.endpoints[c.current],
	}).Warn("switching rpc endpoint")
}

// Call makes a JSON-RPC call with retry logic. A JSON-RPC error object is
// returned as *RPCError without retrying. A null result leaves out untouched.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	data, err := json.Marshal(request{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryBackoff
	expo.MaxInterval = 30 * time.Second

	attempt := 0
	op := func() (json.RawMessage, error) {
		attempt++
		endpoint := c.Endpoint()
		if attempt > 1 {
			c.logger.WithFields(logrus.Fields{
				"attempt":  attempt,
				"method":   method,
				"endpoint": endpoint,
			}).Debug("retrying RPC call")
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		body, err := c.doRequest(ctx, endpoint, data)
		if err != nil {
			var he *HTTPError
			if errors.As(err, &he) && !he.Retryable() {
				return nil, backoff.Permanent(err)
			}
			c.rotate(endpoint)
			return nil, err
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			c.rotate(endpoint)
			return nil, fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
		if resp.Error != nil {
			return nil, backoff.Permanent(resp.Error)
		}
		return resp.Result, nil
	}

	raw, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
