package automation

import (
	"encoding/json"

	"github.com/draftmill/draftmill/document"
	"github.com/draftmill/draftmill/llm"
	"github.com/draftmill/draftmill/remote"
)

// llmOutput mirrors the JSON schema the automation prompt demands. Pointer
// fields distinguish absent sections from empty ones so the normalizer can
// apply its fallback rules.
type llmOutput struct {
	Meta *document.Meta `json:"meta"`
	Docs struct {
		BRD            *document.StructuredDocument `json:"brd"`
		FRS            *document.StructuredDocument `json:"frs"`
		SOW            *document.StructuredDocument `json:"sow"`
		RAID           *document.RaidLog            `json:"raid"`
		BacklogSummary string                       `json:"backlogSummary"`
	} `json:"docs"`
	Backlog *document.Backlog `json:"backlog"`
	Notes   *document.Notes   `json:"notes"`
}

// decodeAutomationOutput parses the completion text, repairing markdown
// fences, comments and trailing commas first. On failure it returns a
// truncated raw-text marker instead of an error so normalization still runs
// over whatever partial structure exists.
func decodeAutomationOutput(content string) (llmOutput, string) {
	var out llmOutput

	extracted := llm.ExtractJSON(content)
	if extracted == "" {
		return out, "completion output contained no JSON: " + remote.Truncate(content)
	}
	if err := json.Unmarshal([]byte(extracted), &out); err != nil {
		return out, "completion output was not valid JSON: " + remote.Truncate(content)
	}
	return out, ""
}

// normalizeOutput applies the document invariants and backfills meta fields
// from the request when the model omitted them.
func normalizeOutput(out llmOutput, req Request, requirements string) document.AutomationResult {
	var result document.AutomationResult

	if out.Meta != nil {
		result.Meta = *out.Meta
	}
	if result.Meta.ProjectName == "" {
		result.Meta.ProjectName = req.ProjectName
	}
	if result.Meta.JiraProjectKey == "" {
		result.Meta.JiraProjectKey = req.JiraProjectKey
	}
	if result.Meta.ConfluenceSpaceKey == "" {
		result.Meta.ConfluenceSpaceKey = req.ConfluenceSpaceKey
	}

	project := result.Meta.ProjectName
	if project == "" {
		project = "Project"
	}

	result.Docs.BRD = document.EnsureContent(out.Docs.BRD, project+" – Business Requirements Document", requirements)
	result.Docs.FRS = document.EnsureContent(out.Docs.FRS, project+" – Functional Requirements Specification", requirements)
	result.Docs.SOW = document.EnsureContent(out.Docs.SOW, project+" – Statement of Work", requirements)
	result.Docs.RAID = document.NormalizeRaid(out.Docs.RAID, project+" – RAID Log")
	result.Docs.BacklogSummary = out.Docs.BacklogSummary

	result.Backlog = document.NormalizeBacklog(out.Backlog)
	result.Notes = document.NormalizeNotes(out.Notes)

	return result
}
