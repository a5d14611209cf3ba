package automation

import (
	"strings"

	"github.com/draftmill/draftmill/config"
)

// Credentials is the resolved downstream access configuration for one
// request.
type Credentials struct {
	ContentBaseURL string
	IssueBaseURL   string
	Email          string
	Token          string
}

// CredentialOverrides carries per-request credential values supplied in the
// request body.
type CredentialOverrides struct {
	ContentBaseURL string `json:"confluenceBaseUrl"`
	IssueBaseURL   string `json:"jiraBaseUrl"`
	Domain         string `json:"atlassianDomain"`
	Email          string `json:"atlassianEmail"`
	Token          string `json:"atlassianToken"`
}

// ResolveCredentials assembles downstream credentials with per-field
// precedence: explicit request value, then configured default (which already
// folds environment variables in), then — for base URLs only — derivation
// from a tenant domain. A ConfigurationError names exactly the missing
// fields; the token value itself is never included.
func ResolveCredentials(overrides CredentialOverrides, defaults config.AtlassianConfig) (Credentials, error) {
	domain := firstNonEmpty(overrides.Domain, defaults.Domain)

	creds := Credentials{
		ContentBaseURL: firstNonEmpty(overrides.ContentBaseURL, defaults.ContentBaseURL),
		IssueBaseURL:   firstNonEmpty(overrides.IssueBaseURL, defaults.IssueBaseURL),
		Email:          firstNonEmpty(overrides.Email, defaults.Email),
		Token:          firstNonEmpty(overrides.Token, defaults.Token),
	}

	if domain != "" {
		domain = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://"), "/")
		if creds.ContentBaseURL == "" {
			creds.ContentBaseURL = "https://" + domain + "/wiki"
		}
		if creds.IssueBaseURL == "" {
			creds.IssueBaseURL = "https://" + domain
		}
	}

	var missing []string
	if creds.ContentBaseURL == "" {
		missing = append(missing, "content base URL")
	}
	if creds.IssueBaseURL == "" {
		missing = append(missing, "issue base URL")
	}
	if creds.Email == "" {
		missing = append(missing, "email")
	}
	if creds.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return Credentials{}, &ConfigurationError{Missing: missing}
	}
	return creds, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
