package providers

import (
	"net/http"
	"strings"

	"github.com/draftmill/draftmill/llm"
)

// Ollama implements the OpenAI-compatible API served by Ollama, vLLM and
// similar local runtimes.
type Ollama struct{}

func init() {
	llm.RegisterProvider(&Ollama{})
}

// Name returns the provider identifier.
func (o *Ollama) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *Ollama) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer-token authentication when a key is configured.
func (o *Ollama) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// BuildRequestBody creates an OpenAI-compatible request body.
func (o *Ollama) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return buildChatRequestBody(model, messages, temperature, maxTokens)
}

// ParseResponse extracts content from an OpenAI-compatible response.
func (o *Ollama) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return parseChatResponse(body, model)
}
