package automation

import (
	"fmt"
	"sort"
	"strings"
)

// AutomationSystemPrompt returns the system prompt for the full-automation
// run. The model must emit strict JSON matching the AutomationResult schema.
func AutomationSystemPrompt() string {
	return `You are a senior project manager and business analyst. You turn raw
project requirements into a complete documentation pack and a delivery
backlog.

## Output Format

Respond with STRICT JSON only — no markdown fences, no commentary:

{
  "meta": {"projectName": "...", "jiraProjectKey": "...", "confluenceSpaceKey": "..."},
  "docs": {
    "brd": {"title": "...", "sections": [{"h": "...", "body": "..."}]},
    "frs": {"title": "...", "sections": [{"h": "...", "body": "..."}]},
    "sow": {"title": "...", "sections": [{"h": "...", "body": "..."}]},
    "raid": {
      "title": "...",
      "risks": [{"item": "...", "owner": "...", "status": "...", "mitigation": "..."}],
      "assumptions": [{"item": "...", "owner": "...", "status": "..."}],
      "issues": [{"item": "...", "owner": "...", "status": "..."}],
      "dependencies": [{"item": "...", "owner": "...", "status": "..."}]
    },
    "backlogSummary": "..."
  },
  "backlog": {
    "epics": [{"name": "...", "description": "..."}],
    "stories": [{
      "epicName": "...",
      "summary": "...",
      "story": "As a ..., I want ... so that ...",
      "acceptanceCriteria": ["..."],
      "priority": "P0",
      "storyPoints": 3
    }]
  },
  "notes": {"assumptions": ["..."], "openQuestions": ["..."]}
}

## Rules

- brd, frs and sow each need at least 4 sections with substantive bodies.
- raid needs at least 2 entries in each of risks, assumptions, issues and
  dependencies.
- storyPoints must be one of 1, 2, 3, 5, 8, 13.
- priority must be one of P0, P1, P2, P3.
- Never leave a section empty. When the requirements do not cover a topic,
  fabricate sensible placeholder content and record what you fabricated or
  could not know in notes.assumptions.
- Record genuinely unresolvable points in notes.openQuestions.`
}

// AutomationUserPrompt returns the user prompt carrying the requirements and
// project parameters.
func AutomationUserPrompt(requirements, projectName, jiraProjectKey, spaceKey, priorityScheme string) string {
	if priorityScheme == "" {
		priorityScheme = "P0,P1,P2,P3"
	}
	return fmt.Sprintf(`Produce the documentation pack and backlog for this project.

Project name: %s
Jira project key: %s
Confluence space key: %s
Priority scheme: %s

Requirements:
%s`, projectName, jiraProjectKey, spaceKey, priorityScheme, requirements)
}

// DraftPrompt wraps a free-form prompt for the ai-draft endpoint, asking for
// a JSON structuring of whatever the caller supplied.
func DraftPrompt(prompt string) string {
	return fmt.Sprintf(`Structure the following request as JSON. Respond with a
single JSON object and nothing else.

%s`, prompt)
}

// UserStoriesSystemPrompt returns the system prompt for standalone backlog
// generation.
func UserStoriesSystemPrompt() string {
	return `You are an agile coach. Break requirements into epics and user
stories. Respond with STRICT JSON:

{
  "epics": [{"name": "...", "description": "..."}],
  "stories": [{
    "epicName": "...",
    "summary": "...",
    "story": "As a ..., I want ... so that ...",
    "acceptanceCriteria": ["..."],
    "priority": "P0|P1|P2|P3",
    "storyPoints": 1
  }]
}

Story points come from {1, 2, 3, 5, 8, 13}. Every story belongs to one of the
epics by exact name.`
}

// RetroSystemPrompt returns the system prompt for the sprint-retro analyzer.
func RetroSystemPrompt() string {
	return `You are a scrum master summarizing a sprint retrospective.
Respond with STRICT JSON:

{
  "wentWell": ["..."],
  "didntGoWell": ["..."],
  "actionItems": [{"item": "...", "owner": "..."}]
}

Base every entry on the notes and metrics provided; do not invent events.`
}

// RetroUserPrompt returns the user prompt for the sprint-retro analyzer.
func RetroUserPrompt(notes, metrics string) string {
	var b strings.Builder
	b.WriteString("Sprint notes:\n")
	b.WriteString(notes)
	if strings.TrimSpace(metrics) != "" {
		b.WriteString("\n\nSprint metrics:\n")
		b.WriteString(metrics)
	}
	return b.String()
}

// CodeReviewSystemPrompt returns the system prompt for the code-review
// endpoint.
func CodeReviewSystemPrompt() string {
	return `You are a thorough but pragmatic code reviewer. Respond with
STRICT JSON:

{
  "summary": "...",
  "findings": [{
    "file": "path",
    "line": 0,
    "severity": "info|minor|major|critical",
    "comment": "..."
  }]
}

Flag correctness and security problems first; style only when it obscures
intent. An empty findings list is a valid answer.`
}

// CodeReviewUserPrompt assembles the files and optional diff into a review
// request. Files render in sorted path order for deterministic prompts.
func CodeReviewUserPrompt(files map[string]string, diff string) string {
	var b strings.Builder
	b.WriteString("Review the following code.\n")

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", p, files[p])
	}

	if strings.TrimSpace(diff) != "" {
		b.WriteString("\n--- diff ---\n")
		b.WriteString(diff)
		b.WriteString("\n")
	}
	return b.String()
}

// ChatSystemPrompt returns the assistant persona for the chat endpoint.
func ChatSystemPrompt() string {
	return `You are a helpful project-management assistant. Answer questions
about requirements, backlog planning and delivery documents concisely.`
}
