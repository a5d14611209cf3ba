// Package remote provides shared plumbing for the downstream Atlassian-style
// REST APIs: Basic-auth request construction, JSON decoding, and a common
// error type that captures the remote status and a truncated response body.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody limits how much of a failed response body is kept for
// diagnostics.
const maxErrorBody = 200

// maxResponseSize caps downstream response bodies.
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// Error describes a failed call to a downstream system.
type Error struct {
	// System identifies the downstream ("content", "issues", "llm").
	System string
	// Status is the remote HTTP status code, 0 for transport failures.
	Status int
	// Body holds up to the first 200 bytes of the raw response body.
	Body string
	// Err is the underlying error for transport-level failures.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.System, e.Err)
	}
	return fmt.Sprintf("%s API returned %d: %s", e.System, e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDownstream reports whether err is (or wraps) a downstream Error.
func IsDownstream(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// BasicAuth returns an Authorization header value for email:token credentials.
func BasicAuth(email, token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+token))
}

// Client executes authenticated JSON requests against one downstream system.
type Client struct {
	system     string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a remote client for the named system using Basic auth.
// A nil httpClient falls back to a 30 second timeout client.
func NewClient(system, email, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		system:     system,
		authHeader: BasicAuth(email, token),
		httpClient: httpClient,
	}
}

// System returns the downstream system name this client talks to.
func (c *Client) System() string {
	return c.system
}

// DoJSON sends a request with an optional JSON payload and decodes the JSON
// response into out. A non-2xx status or an undecodable body yields an *Error
// carrying the status and a truncated copy of the raw body.
func (c *Client) DoJSON(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", c.system, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", c.system, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{System: c.system, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{System: c.system, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{System: c.system, Status: resp.StatusCode, Body: Truncate(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A 2xx with a non-JSON body is still a downstream failure.
		return &Error{System: c.system, Status: resp.StatusCode, Body: Truncate(string(raw))}
	}
	return nil
}

// Truncate shortens a response body for inclusion in error messages.
func Truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
