package config

import (
	"os"
	"strconv"
)

// ApplyEnv overlays well-known environment variables onto the configuration.
// Environment values take precedence over file values but not over explicit
// request parameters (the orchestrator resolves those last-to-first).
func (c *Config) ApplyEnv() {
	c.applyEnviron(os.Getenv)
}

// applyEnviron is the testable core of ApplyEnv.
func (c *Config) applyEnviron(getenv func(string) string) {
	if v := getenv("DRAFTMILL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("DRAFTMILL_TEMPLATE_DIR"); v != "" {
		c.Server.TemplateDir = v
	}

	if v := getenv("LLM_API_KEY"); v != "" {
		for i := range c.LLM.Endpoints {
			if c.LLM.Endpoints[i].APIKey == "" {
				c.LLM.Endpoints[i].APIKey = v
			}
		}
	}

	if v := getenv("CONFLUENCE_BASE_URL"); v != "" {
		c.Atlassian.ContentBaseURL = v
	}
	if v := getenv("JIRA_BASE_URL"); v != "" {
		c.Atlassian.IssueBaseURL = v
	}
	if v := getenv("ATLASSIAN_DOMAIN"); v != "" {
		c.Atlassian.Domain = v
	}
	if v := getenv("ATLASSIAN_EMAIL"); v != "" {
		c.Atlassian.Email = v
	}
	if v := getenv("ATLASSIAN_API_TOKEN"); v != "" {
		c.Atlassian.Token = v
	}

	if v := getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}

	if v := getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
}
