package automation

import (
	"strings"
	"testing"

	"github.com/draftmill/draftmill/config"
)

func TestResolveCredentials_ExplicitWins(t *testing.T) {
	creds, err := ResolveCredentials(CredentialOverrides{
		ContentBaseURL: "https://override.example.com/wiki",
		IssueBaseURL:   "https://override.example.com",
		Email:          "req@x.com",
		Token:          "req-token",
	}, config.AtlassianConfig{
		ContentBaseURL: "https://config.example.com/wiki",
		IssueBaseURL:   "https://config.example.com",
		Email:          "cfg@x.com",
		Token:          "cfg-token",
	})
	if err != nil {
		t.Fatal(err)
	}
	if creds.ContentBaseURL != "https://override.example.com/wiki" {
		t.Errorf("ContentBaseURL = %q", creds.ContentBaseURL)
	}
	if creds.Email != "req@x.com" || creds.Token != "req-token" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestResolveCredentials_ConfigFallback(t *testing.T) {
	creds, err := ResolveCredentials(CredentialOverrides{}, config.AtlassianConfig{
		ContentBaseURL: "https://cfg.example.com/wiki",
		IssueBaseURL:   "https://cfg.example.com",
		Email:          "cfg@x.com",
		Token:          "cfg-token",
	})
	if err != nil {
		t.Fatal(err)
	}
	if creds.Email != "cfg@x.com" {
		t.Errorf("Email = %q", creds.Email)
	}
}

func TestResolveCredentials_DomainDerivation(t *testing.T) {
	creds, err := ResolveCredentials(CredentialOverrides{
		Domain: "acme.atlassian.net",
		Email:  "pm@acme.com",
		Token:  "tok",
	}, config.AtlassianConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if creds.ContentBaseURL != "https://acme.atlassian.net/wiki" {
		t.Errorf("ContentBaseURL = %q", creds.ContentBaseURL)
	}
	if creds.IssueBaseURL != "https://acme.atlassian.net" {
		t.Errorf("IssueBaseURL = %q", creds.IssueBaseURL)
	}
}

func TestResolveCredentials_DomainSchemeAndSlashTolerated(t *testing.T) {
	creds, err := ResolveCredentials(CredentialOverrides{
		Domain: "https://acme.atlassian.net/",
		Email:  "pm@acme.com",
		Token:  "tok",
	}, config.AtlassianConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if creds.IssueBaseURL != "https://acme.atlassian.net" {
		t.Errorf("IssueBaseURL = %q", creds.IssueBaseURL)
	}
}

func TestResolveCredentials_ExplicitURLBeatsDomain(t *testing.T) {
	creds, err := ResolveCredentials(CredentialOverrides{
		ContentBaseURL: "https://other.example.com/wiki",
		Domain:         "acme.atlassian.net",
		Email:          "pm@acme.com",
		Token:          "tok",
	}, config.AtlassianConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if creds.ContentBaseURL != "https://other.example.com/wiki" {
		t.Errorf("ContentBaseURL = %q", creds.ContentBaseURL)
	}
	// The issue URL still derives from the domain.
	if creds.IssueBaseURL != "https://acme.atlassian.net" {
		t.Errorf("IssueBaseURL = %q", creds.IssueBaseURL)
	}
}

func TestResolveCredentials_MissingFieldsNamed(t *testing.T) {
	_, err := ResolveCredentials(CredentialOverrides{Token: "secret-token-value"}, config.AtlassianConfig{})
	if err == nil {
		t.Fatal("want error")
	}
	if !IsConfiguration(err) {
		t.Fatalf("want ConfigurationError, got %T", err)
	}
	msg := err.Error()
	for _, field := range []string{"content base URL", "issue base URL", "email"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error %q should name %q", msg, field)
		}
	}
	if strings.Contains(msg, "secret-token-value") {
		t.Errorf("token value leaked into error: %q", msg)
	}
}
