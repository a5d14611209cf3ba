package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// stubProvider is a minimal dialect for exercising the client without any
// real provider adapter.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }
func (stubProvider) BuildURL(baseURL string) string { return baseURL + "/v1/complete" }
func (stubProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

func (stubProvider) BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error) {
	return json.Marshal(map[string]any{"model": model, "messages": messages})
}

func (stubProvider) ParseResponse(body []byte, model string) (*Response, error) {
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewFatalError(err)
	}
	return &Response{Content: parsed.Content, Model: model, FinishReason: "stop"}, nil
}

func init() {
	RegisterProvider(stubProvider{})
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func completionOK(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"content": content})
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(completionOK("hello"))
	defer srv.Close()

	client := NewClient([]Endpoint{{
		Provider: "stub", Model: "test-model", URL: srv.URL, APIKey: "k",
	}}, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "test-model" {
		t.Errorf("Model = %q", resp.Model)
	}
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		completionOK("recovered")(w, r)
	}))
	defer srv.Close()

	client := NewClient([]Endpoint{{
		Provider: "stub", Model: "m", URL: srv.URL, APIKey: "k",
	}}, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Content = %q", resp.Content)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestComplete_FatalErrorSkipsRetryAndFallback(t *testing.T) {
	var primaryCalls, fallbackCalls int
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls++
		completionOK("fallback")(w, r)
	}))
	defer fallback.Close()

	client := NewClient([]Endpoint{
		{Provider: "stub", Model: "m", URL: primary.URL, APIKey: "bad"},
		{Provider: "stub", Model: "m", URL: fallback.URL, APIKey: "k"},
	}, WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("want error on 401")
	}
	if !IsFatal(err) {
		t.Errorf("401 should classify fatal, got %v", err)
	}
	if primaryCalls != 1 {
		t.Errorf("primary calls = %d, want 1 (no retry on fatal)", primaryCalls)
	}
	if fallbackCalls != 0 {
		t.Errorf("fallback calls = %d, want 0 (no fallback on fatal)", fallbackCalls)
	}
}

func TestComplete_FallsBackAfterExhaustingPrimary(t *testing.T) {
	var primaryCalls int
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(completionOK("fallback wins"))
	defer fallback.Close()

	client := NewClient([]Endpoint{
		{Provider: "stub", Model: "m", URL: primary.URL, APIKey: "k"},
		{Provider: "stub", Model: "m", URL: fallback.URL, APIKey: "k"},
	}, WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "fallback wins" {
		t.Errorf("Content = %q", resp.Content)
	}
	if primaryCalls != 3 {
		t.Errorf("primary calls = %d, want all retry attempts", primaryCalls)
	}
}

func TestComplete_Validation(t *testing.T) {
	client := NewClient(nil)
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Error("no endpoints should error")
	}

	client = NewClient([]Endpoint{{Provider: "stub", Model: "m"}})
	if _, err := client.Complete(context.Background(), Request{}); err == nil {
		t.Error("no messages should error")
	}
}

func TestComplete_UnknownProviderIsFatal(t *testing.T) {
	client := NewClient([]Endpoint{{Provider: "nope", Model: "m"}}, WithRetryConfig(fastRetry()))
	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !IsFatal(err) {
		t.Errorf("unknown provider should be fatal, got %v", err)
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		err := classifyHTTPError(tt.status, []byte("body"))
		if got := IsTransient(err); got != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, got, tt.transient)
		}
	}
}
