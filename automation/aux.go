package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/draftmill/draftmill/document"
	"github.com/draftmill/draftmill/llm"
)

// Auxiliary single-purpose completion features. Each wraps one prompt and
// one decode; the HTTP layer stays a thin mapping around these.

// Draft structures a free-form prompt into a JSON object.
func (o *Orchestrator) Draft(ctx context.Context, prompt string) (map[string]any, error) {
	if prompt == "" {
		return nil, NewValidationError("prompt is required")
	}

	resp, err := o.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: DraftPrompt(prompt)},
		},
		Temperature: &o.temperature,
	})
	if err != nil {
		return nil, err
	}

	extracted := llm.ExtractJSON(resp.Content)
	if extracted == "" {
		// No object in the output: surface the raw text under a single key
		// rather than failing the request.
		return map[string]any{"text": resp.Content}, nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return map[string]any{"text": resp.Content}, nil
	}
	return parsed, nil
}

// GenerateUserStories breaks requirements into a normalized backlog without
// touching any downstream system.
func (o *Orchestrator) GenerateUserStories(ctx context.Context, requirements string) (document.Backlog, error) {
	if requirements == "" {
		return document.Backlog{}, NewValidationError("requirements text is required")
	}

	resp, err := o.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: UserStoriesSystemPrompt()},
			{Role: "user", Content: requirements},
		},
		Temperature: &o.temperature,
	})
	if err != nil {
		return document.Backlog{}, err
	}

	var backlog document.Backlog
	extracted := llm.ExtractJSON(resp.Content)
	if extracted != "" {
		// Decode errors leave a zero backlog; normalization below still
		// yields non-nil slices.
		_ = json.Unmarshal([]byte(extracted), &backlog)
	}
	return document.NormalizeBacklog(&backlog), nil
}

// RetroAnalysis is the structured summary of a sprint retrospective.
type RetroAnalysis struct {
	WentWell    []string     `json:"wentWell"`
	DidntGoWell []string     `json:"didntGoWell"`
	ActionItems []ActionItem `json:"actionItems"`
}

// ActionItem is one follow-up from a retrospective.
type ActionItem struct {
	Item  string `json:"item"`
	Owner string `json:"owner"`
}

// AnalyzeRetro summarizes sprint notes and optional metrics.
func (o *Orchestrator) AnalyzeRetro(ctx context.Context, notes, metrics string) (*RetroAnalysis, error) {
	if notes == "" {
		return nil, NewValidationError("notes are required")
	}

	resp, err := o.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: RetroSystemPrompt()},
			{Role: "user", Content: RetroUserPrompt(notes, metrics)},
		},
		Temperature: &o.temperature,
	})
	if err != nil {
		return nil, err
	}

	analysis := &RetroAnalysis{
		WentWell:    []string{},
		DidntGoWell: []string{},
		ActionItems: []ActionItem{},
	}
	if extracted := llm.ExtractJSON(resp.Content); extracted != "" {
		_ = json.Unmarshal([]byte(extracted), analysis)
	}
	return analysis, nil
}

// ReviewFinding is one observation from a code review.
type ReviewFinding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Comment  string `json:"comment"`
}

// ReviewResult is the structured outcome of a code review.
type ReviewResult struct {
	Summary  string          `json:"summary"`
	Findings []ReviewFinding `json:"findings"`
}

// ReviewCode reviews the given files and optional diff. Include and exclude
// glob patterns (doublestar syntax, e.g. "src/**/*.go") filter the file set
// before it reaches the model.
func (o *Orchestrator) ReviewCode(ctx context.Context, files map[string]string, include, exclude []string, diff string) (*ReviewResult, error) {
	filtered, err := filterFiles(files, include, exclude)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 && diff == "" {
		return nil, NewValidationError("no files matched and no diff was supplied")
	}

	resp, err := o.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: CodeReviewSystemPrompt()},
			{Role: "user", Content: CodeReviewUserPrompt(filtered, diff)},
		},
		Temperature: &o.temperature,
	})
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{Findings: []ReviewFinding{}}
	if extracted := llm.ExtractJSON(resp.Content); extracted != "" {
		_ = json.Unmarshal([]byte(extracted), result)
	}
	if result.Summary == "" {
		result.Summary = resp.Content
	}
	if result.Findings == nil {
		result.Findings = []ReviewFinding{}
	}
	return result, nil
}

// filterFiles applies include then exclude glob patterns to the file set.
func filterFiles(files map[string]string, include, exclude []string) (map[string]string, error) {
	out := make(map[string]string, len(files))
	for path, content := range files {
		keep := len(include) == 0
		for _, pattern := range include {
			ok, err := doublestar.Match(pattern, path)
			if err != nil {
				return nil, NewValidationError(fmt.Sprintf("invalid include pattern %q", pattern))
			}
			if ok {
				keep = true
				break
			}
		}
		for _, pattern := range exclude {
			ok, err := doublestar.Match(pattern, path)
			if err != nil {
				return nil, NewValidationError(fmt.Sprintf("invalid exclude pattern %q", pattern))
			}
			if ok {
				keep = false
				break
			}
		}
		if keep {
			out[path] = content
		}
	}
	return out, nil
}

// Chat answers a conversational request with the assistant persona.
func (o *Orchestrator) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", NewValidationError("at least one message is required")
	}

	chat := append([]llm.Message{{Role: "system", Content: ChatSystemPrompt()}}, messages...)
	resp, err := o.completer.Complete(ctx, llm.Request{Messages: chat})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
