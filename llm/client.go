// Package llm provides a provider-agnostic completion client with retry and
// endpoint fallback. Provider adapters register themselves via the registry
// in provider.go; endpoints come from configuration.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/draftmill/draftmill/remote"
)

// maxResponseSize limits the completion response body to prevent memory
// exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Endpoint describes one completion endpoint in the fallback chain.
type Endpoint struct {
	// Provider names a registered provider adapter ("anthropic", "openai",
	// "ollama").
	Provider string
	// Model is the provider-specific model identifier.
	Model string
	// URL is the API base URL; empty uses the provider default.
	URL string
	// APIKey authenticates against the endpoint. May be empty for local
	// endpoints.
	APIKey string
	// MaxTokens caps response length when the request does not set one.
	MaxTokens int
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // message content
}

// Request is a completion request.
type Request struct {
	// Messages is the chat history to send.
	Messages []Message
	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64
	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int
}

// Response is the completion result.
type Response struct {
	// Content is the generated text.
	Content string
	// Model is the model that actually served the request.
	Model string
	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Client sends completion requests to a chain of endpoints, retrying
// transient failures and falling back to the next endpoint when one is
// exhausted.
type Client struct {
	endpoints   []Endpoint
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a completion client over the given endpoint chain. The
// first endpoint is primary; the rest are fallbacks tried in order.
func NewClient(endpoints []Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoints:   endpoints,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // completions are slow
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a completion request through the endpoint chain.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("no completion endpoints configured")
	}

	var lastErr error
	for _, ep := range c.endpoints {
		resp, err := c.tryEndpoint(ctx, ep, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) {
			// Auth and bad-request failures will not succeed elsewhere
			// with the same request.
			return nil, err
		}
		c.logger.Warn("completion endpoint failed, trying fallback",
			"provider", ep.Provider,
			"model", ep.Model,
			"error", err)
	}
	return nil, fmt.Errorf("all completion endpoints failed: %w", lastErr)
}

// tryEndpoint attempts one endpoint with retry on transient failures.
func (c *Client) tryEndpoint(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if IsFatal(err) {
			return nil, err
		}
		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.backoff(attempt)
			c.logger.Debug("completion request failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}

// backoff computes exponential backoff with +/-25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}
	d := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if d > c.retryConfig.MaxBackoff {
		d = c.retryConfig.MaxBackoff
	}
	jitter := float64(d) * 0.25 * (rand.Float64()*2 - 1)
	return d + time.Duration(jitter)
}

// doRequest executes a single HTTP request against one endpoint.
func (c *Client) doRequest(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ep.MaxTokens
	}

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, maxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := provider.BuildURL(ep.URL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, ep.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(&remote.Error{System: "llm", Err: err})
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// classifyHTTPError decides whether an HTTP failure is worth retrying.
func classifyHTTPError(statusCode int, body []byte) error {
	err := &remote.Error{System: "llm", Status: statusCode, Body: remote.Truncate(string(body))}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
