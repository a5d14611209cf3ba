package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftmill/draftmill/llm"
)

func TestRegistration(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "ollama"} {
		assert.NotNil(t, llm.GetProvider(name), "provider %q not registered", name)
	}
}

func TestAnthropicBuildURL(t *testing.T) {
	a := &Anthropic{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.anthropic.com/v1/messages",
		},
		{
			name:    "custom base URL",
			baseURL: "https://proxy.example.com",
			want:    "https://proxy.example.com/v1/messages",
		},
		{
			name:    "trailing slash handled",
			baseURL: "https://proxy.example.com/",
			want:    "https://proxy.example.com/v1/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.BuildURL(tt.baseURL))
		})
	}
}

func TestAnthropicHeaders(t *testing.T) {
	a := &Anthropic{}
	req, err := http.NewRequest(http.MethodPost, "http://x", nil)
	require.NoError(t, err)
	a.SetHeaders(req, "secret")

	assert.Equal(t, "secret", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
}

func TestAnthropicBuildRequestBody_LiftsSystemMessage(t *testing.T) {
	a := &Anthropic{}
	body, err := a.BuildRequestBody("claude-x", []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, nil, 0)
	require.NoError(t, err)

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Equal(t, "be terse", req.System)
	require.Len(t, req.Messages, 1, "system must not remain in chat")
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, 4096, req.MaxTokens, "default max tokens")
}

func TestAnthropicParseResponse(t *testing.T) {
	a := &Anthropic{}
	resp, err := a.ParseResponse([]byte(`{
		"content": [{"type":"text","text":"part one"},{"type":"text","text":" part two"}],
		"model": "claude-x",
		"stop_reason": "end_turn"
	}`), "claude-x")
	require.NoError(t, err)

	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestOpenAIBuildURL(t *testing.T) {
	o := &OpenAI{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", o.BuildURL(""))

	// An already-complete URL must not be doubled.
	full := "https://llm.internal/v1/chat/completions"
	assert.Equal(t, full, o.BuildURL(full))
}

func TestChatRequestAndResponse(t *testing.T) {
	temp := 0.3
	body, err := buildChatRequestBody("gpt-x", []llm.Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
	}, &temp, 512)
	require.NoError(t, err)

	var req chatRequest
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Len(t, req.Messages, 2, "system stays inline for the chat format")
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 512, *req.MaxTokens)

	resp, err := parseChatResponse([]byte(`{
		"model": "gpt-x-0125",
		"choices": [{"message":{"role":"assistant","content":"reply"},"finish_reason":"stop"}]
	}`), "gpt-x")
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.Content)
	assert.Equal(t, "gpt-x-0125", resp.Model)

	_, err = parseChatResponse([]byte(`{"choices":[]}`), "m")
	assert.Error(t, err, "empty choices should error")
}

func TestOllamaBuildURL(t *testing.T) {
	o := &Ollama{}
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", o.BuildURL(""))
}
