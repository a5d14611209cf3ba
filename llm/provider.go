package llm

import (
	"net/http"
	"sync"
)

// Provider adapts the client to one completion API dialect.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic").
	Name() string

	// BuildURL constructs the full API endpoint URL from a base URL.
	// An empty base URL selects the provider's public default.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers, including authentication
	// from the given API key when non-empty.
	SetHeaders(req *http.Request, apiKey string)

	// BuildRequestBody creates the JSON request body. temperature is nil to
	// use the provider default. maxTokens <= 0 uses the provider default.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the completion from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerMu       sync.RWMutex
	providerRegistry = make(map[string]Provider)
)

// RegisterProvider adds a provider to the registry. Adapters call this from
// init.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a registered provider, or nil.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
