package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/draftmill/draftmill/remote"
)

func TestGetSpace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/space/PROJ" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id": 7, "key": "PROJ", "name": "Project Space"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "e@x.com", "tok", nil)
	space, err := client.GetSpace(context.Background(), "PROJ")
	if err != nil {
		t.Fatalf("GetSpace() error = %v", err)
	}
	if space == nil || space.Key != "PROJ" {
		t.Errorf("space = %+v", space)
	}
}

func TestGetSpace_FailureYieldsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "e@x.com", "tok", nil)
	space, err := client.GetSpace(context.Background(), "NOPE")
	if space != nil || err != nil {
		t.Errorf("GetSpace on 404 = (%+v, %v), want (nil, nil)", space, err)
	}
}

func TestCreatePage(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/content" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, `{"id":"123","_links":{"base":"https://acme.atlassian.net/wiki","webui":"/pages/123"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "e@x.com", "tok", nil)
	ref, err := client.CreatePage(context.Background(), PageInput{
		SpaceKey: "PROJ",
		Title:    "BRD 2026",
		HTML:     "<h1>BRD</h1>",
		ParentID: "99",
	})
	if err != nil {
		t.Fatalf("CreatePage() error = %v", err)
	}
	if ref.ID != "123" {
		t.Errorf("ID = %q", ref.ID)
	}
	if ref.WebURL != "https://acme.atlassian.net/wiki/pages/123" {
		t.Errorf("WebURL = %q", ref.WebURL)
	}

	if captured["type"] != "page" {
		t.Errorf("type = %v", captured["type"])
	}
	body := captured["body"].(map[string]any)["storage"].(map[string]any)
	if body["representation"] != "storage" || body["value"] != "<h1>BRD</h1>" {
		t.Errorf("storage body = %+v", body)
	}
	ancestors := captured["ancestors"].([]any)
	if len(ancestors) != 1 || ancestors[0].(map[string]any)["id"] != "99" {
		t.Errorf("ancestors = %+v", ancestors)
	}
}

func TestCreatePage_NoParentOmitsAncestors(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprint(w, `{"id":"1","_links":{"webui":"/pages/1"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "e@x.com", "tok", nil)
	ref, err := client.CreatePage(context.Background(), PageInput{SpaceKey: "P", Title: "T", HTML: "<p/>"})
	if err != nil {
		t.Fatal(err)
	}
	if _, present := captured["ancestors"]; present {
		t.Error("ancestors must be omitted for root pages")
	}
	// Without a base link the site URL prefixes the webui path.
	if ref.WebURL != srv.URL+"/pages/1" {
		t.Errorf("WebURL = %q", ref.WebURL)
	}
}

func TestCreatePage_DownstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"no permission"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "e@x.com", "tok", nil)
	_, err := client.CreatePage(context.Background(), PageInput{SpaceKey: "P", Title: "T"})
	if !remote.IsDownstream(err) {
		t.Errorf("want downstream error, got %v", err)
	}
}
