// Package wiki implements the content-service client: hierarchical page
// creation in a Confluence-style wiki over its REST API.
package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/draftmill/draftmill/remote"
)

// Client creates pages in one wiki site on behalf of one credential set.
type Client struct {
	baseURL string
	rest    *remote.Client
}

// NewClient creates a wiki client. baseURL is the site root including the
// /wiki context path where applicable. A nil httpClient uses the remote
// package default.
func NewClient(baseURL, email, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    remote.NewClient("content", email, token, httpClient),
	}
}

// Space describes a wiki space.
type Space struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// GetSpace fetches a space by key as a pre-flight existence and permission
// check. It returns (nil, nil) on any failure so callers can produce a
// clearer "space not found" message instead of a raw downstream error.
func (c *Client) GetSpace(ctx context.Context, spaceKey string) (*Space, error) {
	u := fmt.Sprintf("%s/rest/api/space/%s", c.baseURL, url.PathEscape(spaceKey))
	var space Space
	if err := c.rest.DoJSON(ctx, http.MethodGet, u, nil, &space); err != nil {
		return nil, nil
	}
	return &space, nil
}

// PageInput describes one page to create.
type PageInput struct {
	SpaceKey string
	// Title must be unique within the space; callers use document.UniqueTitle.
	Title string
	// HTML is the storage-representation body.
	HTML string
	// ParentID, when set, parents the page under an existing page.
	ParentID string
}

// PageRef identifies a created page.
type PageRef struct {
	ID     string
	WebURL string
}

type createPageRequest struct {
	Type      string        `json:"type"`
	Title     string        `json:"title"`
	Space     spaceRef      `json:"space"`
	Body      pageBody      `json:"body"`
	Ancestors []ancestorRef `json:"ancestors,omitempty"`
}

type spaceRef struct {
	Key string `json:"key"`
}

type pageBody struct {
	Storage storageBody `json:"storage"`
}

type storageBody struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

type ancestorRef struct {
	ID string `json:"id"`
}

type createPageResponse struct {
	ID    string `json:"id"`
	Links struct {
		Base  string `json:"base"`
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// CreatePage creates a page with a raw-HTML storage body, optionally parented
// so pages form a tree. Non-2xx and non-JSON responses surface as
// *remote.Error with system "content".
func (c *Client) CreatePage(ctx context.Context, input PageInput) (PageRef, error) {
	req := createPageRequest{
		Type:  "page",
		Title: input.Title,
		Space: spaceRef{Key: input.SpaceKey},
		Body: pageBody{Storage: storageBody{
			Value:          input.HTML,
			Representation: "storage",
		}},
	}
	if input.ParentID != "" {
		req.Ancestors = []ancestorRef{{ID: input.ParentID}}
	}

	var resp createPageResponse
	u := c.baseURL + "/rest/api/content"
	if err := c.rest.DoJSON(ctx, http.MethodPost, u, req, &resp); err != nil {
		return PageRef{}, err
	}

	webURL := resp.Links.WebUI
	if resp.Links.Base != "" {
		webURL = resp.Links.Base + resp.Links.WebUI
	} else if webURL != "" {
		webURL = c.baseURL + webURL
	}

	return PageRef{ID: resp.ID, WebURL: webURL}, nil
}
