// Package config provides configuration loading for the draftmill server:
// YAML file, environment overlay, defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Atlassian AtlassianConfig `yaml:"atlassian"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string `yaml:"addr"`
	// AllowedOrigins lists CORS origins; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxBodyBytes limits request body sizes.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// TemplateDir holds server-side DOCX templates; empty disables the store.
	TemplateDir string `yaml:"template_dir"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EndpointConfig describes one completion endpoint.
type EndpointConfig struct {
	// Provider is the adapter name ("anthropic", "openai", "ollama").
	Provider string `yaml:"provider"`
	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`
	// URL is the API base URL; empty uses the provider default.
	URL string `yaml:"url"`
	// APIKey authenticates the endpoint. Usually injected via environment.
	APIKey string `yaml:"api_key"`
	// MaxTokens caps response length.
	MaxTokens int `yaml:"max_tokens"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	// Endpoints is the fallback chain; the first entry is primary.
	Endpoints []EndpointConfig `yaml:"endpoints"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// AtlassianConfig holds default credentials and base URLs for the content
// service and the issue tracker. Request-supplied values take precedence;
// base URLs can also be derived from Domain.
type AtlassianConfig struct {
	// ContentBaseURL is the wiki REST base (e.g. https://x.atlassian.net/wiki).
	ContentBaseURL string `yaml:"content_base_url"`
	// IssueBaseURL is the tracker REST base (e.g. https://x.atlassian.net).
	IssueBaseURL string `yaml:"issue_base_url"`
	// Domain derives both base URLs when they are unset (e.g. x.atlassian.net).
	Domain string `yaml:"domain"`
	// Email is the account email for Basic auth.
	Email string `yaml:"email"`
	// Token is the API token for Basic auth. Never logged.
	Token string `yaml:"token"`
}

// SMTPConfig configures outbound mail for the email-doc endpoint.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether the mailer has enough settings to send.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

// NATSConfig configures the optional run-event publisher.
type NATSConfig struct {
	// URL is the NATS server URL; empty disables event publishing.
	URL string `yaml:"url"`
	// SubjectPrefix prefixes event subjects (default "draftmill.runs").
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			MaxBodyBytes:    10 << 20, // uploads included
			ShutdownTimeout: 15 * time.Second,
		},
		LLM: LLMConfig{
			Endpoints: []EndpointConfig{
				{Provider: "anthropic", Model: "claude-sonnet-4-20250514", MaxTokens: 8192},
			},
			Temperature: 0.2,
			Timeout:     3 * time.Minute,
		},
		NATS: NATSConfig{
			SubjectPrefix: "draftmill.runs",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for structural errors. Missing
// downstream credentials are not errors here; endpoints that need them
// degrade at request time.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(c.LLM.Endpoints) == 0 {
		return fmt.Errorf("llm.endpoints must list at least one endpoint")
	}
	for i, ep := range c.LLM.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("llm.endpoints[%d].provider is required", i)
		}
		if ep.Model == "" {
			return fmt.Errorf("llm.endpoints[%d].model is required", i)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	return nil
}

// Merge overlays another config onto this one; non-zero values in other take
// precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if len(other.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
	if other.Server.MaxBodyBytes != 0 {
		c.Server.MaxBodyBytes = other.Server.MaxBodyBytes
	}
	if other.Server.TemplateDir != "" {
		c.Server.TemplateDir = other.Server.TemplateDir
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}
	if len(other.LLM.Endpoints) > 0 {
		c.LLM.Endpoints = other.LLM.Endpoints
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}
	mergeAtlassian(&c.Atlassian, other.Atlassian)
	mergeSMTP(&c.SMTP, other.SMTP)
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}
}

func mergeAtlassian(dst *AtlassianConfig, src AtlassianConfig) {
	if src.ContentBaseURL != "" {
		dst.ContentBaseURL = src.ContentBaseURL
	}
	if src.IssueBaseURL != "" {
		dst.IssueBaseURL = src.IssueBaseURL
	}
	if src.Domain != "" {
		dst.Domain = src.Domain
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Token != "" {
		dst.Token = src.Token
	}
}

func mergeSMTP(dst *SMTPConfig, src SMTPConfig) {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.From != "" {
		dst.From = src.From
	}
}
