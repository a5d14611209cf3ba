// Package tracker implements the issue-tracker client: issue creation and
// the epic-linking strategies that accommodate differing tracker
// configurations.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/draftmill/draftmill/remote"
)

// Client creates issues in one tracker site on behalf of one credential set.
//
// The field catalog needed to resolve the legacy "Epic Link" custom field is
// fetched at most once per client and cached. Two concurrent first calls may
// both fetch; the writes are equal, so the race is benign.
type Client struct {
	baseURL string
	rest    *remote.Client

	fieldMu     sync.Mutex
	fieldCached bool
	epicLinkID  string
}

// NewClient creates a tracker client.
func NewClient(baseURL, email, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    remote.NewClient("issues", email, token, httpClient),
	}
}

// IssueFields is the tracker's issue-creation schema. CustomFields carries
// installation-specific fields such as the Epic Link custom field.
type IssueFields struct {
	ProjectKey   string
	IssueType    string
	Summary      string
	Description  string
	Labels       []string
	ParentKey    string
	CustomFields map[string]any
}

// IssueRef identifies a created issue.
type IssueRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// CreateIssue creates a single issue. Non-2xx responses surface as
// *remote.Error with system "issues".
func (c *Client) CreateIssue(ctx context.Context, fields IssueFields) (IssueRef, error) {
	payload := map[string]any{
		"project":     map[string]string{"key": fields.ProjectKey},
		"issuetype":   map[string]string{"name": fields.IssueType},
		"summary":     fields.Summary,
		"description": fields.Description,
	}
	if len(fields.Labels) > 0 {
		payload["labels"] = fields.Labels
	}
	if fields.ParentKey != "" {
		payload["parent"] = map[string]string{"key": fields.ParentKey}
	}
	for id, value := range fields.CustomFields {
		payload[id] = value
	}

	var ref IssueRef
	u := c.baseURL + "/rest/api/2/issue"
	if err := c.rest.DoJSON(ctx, http.MethodPost, u, map[string]any{"fields": payload}, &ref); err != nil {
		return IssueRef{}, err
	}
	return ref, nil
}

type fieldDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EpicLinkFieldID resolves the custom field id of the field named exactly
// "Epic Link". The catalog is fetched once per client lifetime. Returns ""
// with no error when the installation has no such field.
func (c *Client) EpicLinkFieldID(ctx context.Context) (string, error) {
	c.fieldMu.Lock()
	defer c.fieldMu.Unlock()
	if c.fieldCached {
		return c.epicLinkID, nil
	}

	var fields []fieldDef
	u := c.baseURL + "/rest/api/2/field"
	if err := c.rest.DoJSON(ctx, http.MethodGet, u, nil, &fields); err != nil {
		return "", err
	}

	for _, f := range fields {
		if f.Name == "Epic Link" {
			c.epicLinkID = f.ID
			break
		}
	}
	c.fieldCached = true
	return c.epicLinkID, nil
}

// StoryInput describes a story to create and optionally link to an epic.
type StoryInput struct {
	ProjectKey  string
	EpicKey     string
	Summary     string
	Description string
	Labels      []string
}

// linkStrategy is one way of expressing story-to-epic linkage. Strategies
// are attempted in order; the first success wins.
type linkStrategy struct {
	name  string
	apply func(ctx context.Context) (IssueRef, error)
}

// CreateStoryLinkedToEpic creates a Story issue, attempting epic linkage
// with a three-tier fallback because tracker installations model the link
// differently:
//
//  1. direct parent reference (newer project configurations)
//  2. the "Epic Link" custom field (legacy configurations)
//  3. unlinked creation
//
// The first tier that succeeds short-circuits the rest; only the final
// tier's failure is surfaced.
func (c *Client) CreateStoryLinkedToEpic(ctx context.Context, input StoryInput) (IssueRef, error) {
	base := IssueFields{
		ProjectKey:  input.ProjectKey,
		IssueType:   "Story",
		Summary:     input.Summary,
		Description: input.Description,
		Labels:      input.Labels,
	}

	var strategies []linkStrategy
	if input.EpicKey != "" {
		strategies = append(strategies,
			linkStrategy{
				name: "parent",
				apply: func(ctx context.Context) (IssueRef, error) {
					fields := base
					fields.ParentKey = input.EpicKey
					return c.CreateIssue(ctx, fields)
				},
			},
			linkStrategy{
				name: "epic-link-field",
				apply: func(ctx context.Context) (IssueRef, error) {
					fieldID, err := c.EpicLinkFieldID(ctx)
					if err != nil {
						return IssueRef{}, err
					}
					if fieldID == "" {
						return IssueRef{}, fmt.Errorf("tracker has no Epic Link field")
					}
					fields := base
					fields.CustomFields = map[string]any{fieldID: input.EpicKey}
					return c.CreateIssue(ctx, fields)
				},
			},
		)
	}
	strategies = append(strategies, linkStrategy{
		name: "unlinked",
		apply: func(ctx context.Context) (IssueRef, error) {
			return c.CreateIssue(ctx, base)
		},
	})

	return attemptInOrder(ctx, strategies)
}

// attemptInOrder evaluates strategies until one succeeds. Only the last
// strategy's error propagates.
func attemptInOrder(ctx context.Context, strategies []linkStrategy) (IssueRef, error) {
	var lastErr error
	for _, s := range strategies {
		ref, err := s.apply(ctx)
		if err == nil {
			return ref, nil
		}
		lastErr = err
	}
	return IssueRef{}, lastErr
}
