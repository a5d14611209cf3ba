package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/draftmill/draftmill/llm"
)

// OpenAI implements the OpenAI chat completions API. The request/response
// format is shared with Ollama via the embedded adapter; only the default
// URL and auth differ.
type OpenAI struct {
	Ollama // shared chat-completions format
}

func init() {
	llm.RegisterProvider(&OpenAI{})
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string {
	return "openai"
}

// BuildURL constructs the chat completions endpoint.
func (o *OpenAI) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer-token authentication.
func (o *OpenAI) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func buildChatRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	chat := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		chat = append(chat, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	req := chatRequest{
		Model:       model,
		Messages:    chat,
		Temperature: temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	return json.Marshal(req)
}

func parseChatResponse(body []byte, fallbackModel string) (*llm.Response, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse chat completions response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completions response has no choices")
	}
	model := resp.Model
	if model == "" {
		model = fallbackModel
	}
	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        model,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}
