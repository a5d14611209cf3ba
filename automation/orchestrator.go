// Package automation implements the requirements-to-documents orchestration:
// input validation, prompt construction, completion decoding and repair,
// document normalization, and the multi-system publication pipeline.
package automation

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftmill/draftmill/config"
	"github.com/draftmill/draftmill/document"
	"github.com/draftmill/draftmill/llm"
	"github.com/draftmill/draftmill/source"
	"github.com/draftmill/draftmill/tracker"
	"github.com/draftmill/draftmill/wiki"
)

// Completer is the completion capability the orchestrator depends on.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// ContentService is the slice of the wiki client the orchestrator uses.
type ContentService interface {
	GetSpace(ctx context.Context, spaceKey string) (*wiki.Space, error)
	CreatePage(ctx context.Context, input wiki.PageInput) (wiki.PageRef, error)
}

// IssueService is the slice of the tracker client the orchestrator uses.
type IssueService interface {
	CreateIssue(ctx context.Context, fields tracker.IssueFields) (tracker.IssueRef, error)
	CreateStoryLinkedToEpic(ctx context.Context, input tracker.StoryInput) (tracker.IssueRef, error)
}

// RunPublisher receives a notification after a successful publish run.
type RunPublisher interface {
	PublishRun(ctx context.Context, event RunEvent) error
}

// RunEvent summarizes one completed publish run.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	ProjectName string    `json:"project_name"`
	SpaceKey    string    `json:"space_key"`
	ProjectKey  string    `json:"project_key"`
	Pages       int       `json:"pages"`
	Issues      int       `json:"issues"`
	CompletedAt time.Time `json:"completed_at"`
}

// ContentServiceFactory builds a content-service client for resolved
// credentials. Tests substitute doubles here.
type ContentServiceFactory func(creds Credentials) ContentService

// IssueServiceFactory builds an issue-tracker client for resolved
// credentials.
type IssueServiceFactory func(creds Credentials) IssueService

// Orchestrator drives the full automation flow for one server instance.
type Orchestrator struct {
	completer   Completer
	newContent  ContentServiceFactory
	newIssues   IssueServiceFactory
	fetcher     *source.Fetcher
	defaults    config.AtlassianConfig
	temperature float64
	events      RunPublisher
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithContentServiceFactory replaces the wiki client constructor.
func WithContentServiceFactory(f ContentServiceFactory) OrchestratorOption {
	return func(o *Orchestrator) { o.newContent = f }
}

// WithIssueServiceFactory replaces the tracker client constructor.
func WithIssueServiceFactory(f IssueServiceFactory) OrchestratorOption {
	return func(o *Orchestrator) { o.newIssues = f }
}

// WithRunPublisher sets the run-event publisher.
func WithRunPublisher(p RunPublisher) OrchestratorOption {
	return func(o *Orchestrator) { o.events = p }
}

// WithFetcher replaces the requirements-URL fetcher.
func WithFetcher(f *source.Fetcher) OrchestratorOption {
	return func(o *Orchestrator) { o.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator creates an orchestrator over the given completion client
// and downstream credential defaults.
func NewOrchestrator(completer Completer, defaults config.AtlassianConfig, temperature float64, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		completer:   completer,
		defaults:    defaults,
		temperature: temperature,
		fetcher:     source.NewFetcher(30 * time.Second),
		logger:      slog.Default(),
	}
	o.newContent = func(creds Credentials) ContentService {
		return wiki.NewClient(creds.ContentBaseURL, creds.Email, creds.Token, nil)
	}
	o.newIssues = func(creds Credentials) IssueService {
		return tracker.NewClient(creds.IssueBaseURL, creds.Email, creds.Token, nil)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Request is the validated-input shape of one automation run.
type Request struct {
	RequirementsText   string
	RequirementsURL    string
	FileName           string
	FileData           []byte
	ProjectName        string
	JiraProjectKey     string
	ConfluenceSpaceKey string
	PriorityScheme     string
	Labels             []string
	Publish            bool
	Credentials        CredentialOverrides
}

// RunResult is the response of one automation run.
type RunResult struct {
	RunID     string                    `json:"runId"`
	Output    document.AutomationResult `json:"output"`
	Published *PublishedRefs            `json:"published,omitempty"`
	// Error carries the parse-failure marker when the completion output was
	// not valid JSON; the documents then hold normalized fallback content.
	Error string `json:"error,omitempty"`
}

// PageRefOut is a published page identifier and link.
type PageRefOut struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ConfluenceRefs collects the created page tree.
type ConfluenceRefs struct {
	Parent PageRefOut `json:"parent"`
	BRD    PageRefOut `json:"brd"`
	FRS    PageRefOut `json:"frs"`
	SOW    PageRefOut `json:"sow"`
	RAID   PageRefOut `json:"raid"`
}

// JiraRefs collects the created issue keys in creation order.
type JiraRefs struct {
	Epics   []string `json:"epics"`
	Stories []string `json:"stories"`
}

// PublishedRefs aggregates everything created by a publish run. Ephemeral:
// returned to the caller, never stored.
type PublishedRefs struct {
	Confluence ConfluenceRefs `json:"confluence"`
	Jira       JiraRefs       `json:"jira"`
}

// Run executes one automation request end to end.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunResult, error) {
	if req.Publish {
		if req.JiraProjectKey == "" || req.ConfluenceSpaceKey == "" {
			return nil, NewValidationError("publish=true requires both jiraProjectKey and confluenceSpaceKey")
		}
	}

	requirements, err := o.gatherRequirements(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(requirements) == "" {
		return nil, NewValidationError("requirements text is required: paste text, upload a file, or supply a requirements URL")
	}

	// Resolve credentials before spending a completion call on a request
	// that cannot publish anyway.
	var creds Credentials
	if req.Publish {
		creds, err = ResolveCredentials(req.Credentials, o.defaults)
		if err != nil {
			return nil, err
		}
	}

	runID := uuid.New().String()
	logger := o.logger.With("run_id", runID)

	temp := o.temperature
	resp, err := o.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: AutomationSystemPrompt()},
			{Role: "user", Content: AutomationUserPrompt(requirements, req.ProjectName, req.JiraProjectKey, req.ConfluenceSpaceKey, req.PriorityScheme)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	output, parseErr := decodeAutomationOutput(resp.Content)
	result := normalizeOutput(output, req, requirements)

	run := &RunResult{RunID: runID, Output: result}
	if parseErr != "" {
		run.Error = parseErr
		logger.Warn("completion output was not valid JSON; using normalized fallback")
	}

	if !req.Publish {
		return run, nil
	}

	refs, err := o.publish(ctx, logger, creds, req, result)
	if err != nil {
		return nil, err
	}
	run.Published = refs

	o.emitRunEvent(ctx, logger, runID, req, refs)
	return run, nil
}

// gatherRequirements concatenates pasted text, uploaded-file text and
// fetched URL text.
func (o *Orchestrator) gatherRequirements(ctx context.Context, req Request) (string, error) {
	var extracted []string

	if len(req.FileData) > 0 {
		text, err := source.FromUpload(req.FileName, req.FileData)
		if err != nil {
			return "", NewValidationError(err.Error())
		}
		extracted = append(extracted, text)
	}

	if req.RequirementsURL != "" {
		if err := source.ValidateURL(req.RequirementsURL); err != nil {
			return "", NewValidationError(err.Error())
		}
		text, err := o.fetcher.FetchReadable(ctx, req.RequirementsURL)
		if err != nil {
			return "", fmt.Errorf("fetch requirements URL: %w", err)
		}
		extracted = append(extracted, text)
	}

	return source.Combine(req.RequirementsText, strings.Join(extracted, "\n\n")), nil
}

// publish drives the page tree and backlog creation in fixed order:
// parent page, BRD, FRS, SOW, RAID, then epics, then stories. A failure
// aborts the remaining steps without rolling back prior creations.
func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, creds Credentials, req Request, result document.AutomationResult) (*PublishedRefs, error) {
	content := o.newContent(creds)
	issues := o.newIssues(creds)

	space, err := content.GetSpace(ctx, req.ConfluenceSpaceKey)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, NewValidationError(fmt.Sprintf(
			"Confluence space %q was not found or is not accessible; personal space keys start with '~'",
			req.ConfluenceSpaceKey))
	}

	refs := &PublishedRefs{
		Jira: JiraRefs{Epics: []string{}, Stories: []string{}},
	}

	parent, err := content.CreatePage(ctx, wiki.PageInput{
		SpaceKey: req.ConfluenceSpaceKey,
		Title:    document.UniqueTitle("PM Doc Pack – " + req.ProjectName),
		HTML: fmt.Sprintf("<p>Generated documentation pack for <b>%s</b>.</p>",
			htmlEscape(req.ProjectName)),
	})
	if err != nil {
		return nil, err
	}
	refs.Confluence.Parent = PageRefOut{ID: parent.ID, URL: parent.WebURL}
	logger.Info("created parent page", "page_id", parent.ID)

	childPages := []struct {
		name string
		html string
		out  *PageRefOut
	}{
		{result.Docs.BRD.Title, result.Docs.BRD.HTML(), &refs.Confluence.BRD},
		{result.Docs.FRS.Title, result.Docs.FRS.HTML(), &refs.Confluence.FRS},
		{result.Docs.SOW.Title, result.Docs.SOW.HTML(), &refs.Confluence.SOW},
		{result.Docs.RAID.Title, result.Docs.RAID.HTML(), &refs.Confluence.RAID},
	}
	for _, child := range childPages {
		ref, err := content.CreatePage(ctx, wiki.PageInput{
			SpaceKey: req.ConfluenceSpaceKey,
			Title:    document.UniqueTitle(child.name),
			HTML:     child.html,
			ParentID: parent.ID,
		})
		if err != nil {
			return nil, err
		}
		*child.out = PageRefOut{ID: ref.ID, URL: ref.WebURL}
	}

	// Epic name to created issue key. Duplicate names are last-write-wins;
	// callers that need one issue per name must not submit duplicates.
	epicKeys := make(map[string]string, len(result.Backlog.Epics))
	for _, epic := range result.Backlog.Epics {
		ref, err := issues.CreateIssue(ctx, tracker.IssueFields{
			ProjectKey:  req.JiraProjectKey,
			IssueType:   "Epic",
			Summary:     epic.Name,
			Description: epic.Description,
			Labels:      req.Labels,
		})
		if err != nil {
			return nil, err
		}
		epicKeys[epic.Name] = ref.Key
		refs.Jira.Epics = append(refs.Jira.Epics, ref.Key)
	}

	for _, story := range result.Backlog.Stories {
		ref, err := issues.CreateStoryLinkedToEpic(ctx, tracker.StoryInput{
			ProjectKey:  req.JiraProjectKey,
			EpicKey:     epicKeys[story.EpicName],
			Summary:     story.Summary,
			Description: story.Description(refs.Confluence.Parent.URL),
			Labels:      req.Labels,
		})
		if err != nil {
			return nil, err
		}
		refs.Jira.Stories = append(refs.Jira.Stories, ref.Key)
	}

	logger.Info("publish complete",
		"pages", 1+len(childPages),
		"epics", len(refs.Jira.Epics),
		"stories", len(refs.Jira.Stories))
	return refs, nil
}

// emitRunEvent notifies the optional event publisher. Failures are logged,
// never surfaced.
func (o *Orchestrator) emitRunEvent(ctx context.Context, logger *slog.Logger, runID string, req Request, refs *PublishedRefs) {
	if o.events == nil || refs == nil {
		return
	}
	event := RunEvent{
		RunID:       runID,
		ProjectName: req.ProjectName,
		SpaceKey:    req.ConfluenceSpaceKey,
		ProjectKey:  req.JiraProjectKey,
		Pages:       5,
		Issues:      len(refs.Jira.Epics) + len(refs.Jira.Stories),
		CompletedAt: time.Now().UTC(),
	}
	if err := o.events.PublishRun(ctx, event); err != nil {
		logger.Warn("failed to publish run event", "error", err)
	}
}

func htmlEscape(s string) string {
	return html.EscapeString(s)
}
