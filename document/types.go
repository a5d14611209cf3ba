// Package document defines the structured business documents produced by the
// automation pipeline (BRD/FRS/SOW/RAID plus the epic/story backlog) and the
// normalization rules that guarantee their invariants.
package document

// Section is one heading/body pair of a structured document.
type Section struct {
	Heading string `json:"h"`
	Body    string `json:"body"`
}

// StructuredDocument is the normalized title+sections representation shared
// by the BRD, FRS and SOW. After normalization the title is non-empty, the
// section list is non-empty, and every section has non-empty heading and body.
type StructuredDocument struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// RaidEntry is one row of a RAID log.
type RaidEntry struct {
	Item       string `json:"item"`
	Owner      string `json:"owner"`
	Status     string `json:"status"`
	Mitigation string `json:"mitigation,omitempty"`
}

// RaidLog holds risks, assumptions, issues and dependencies. All four slices
// are always present after normalization, never nil.
type RaidLog struct {
	Title        string      `json:"title"`
	Risks        []RaidEntry `json:"risks"`
	Assumptions  []RaidEntry `json:"assumptions"`
	Issues       []RaidEntry `json:"issues"`
	Dependencies []RaidEntry `json:"dependencies"`
}

// Epic is a backlog epic. Name is the identity key used to resolve
// story-to-epic linkage.
type Epic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Story is a backlog user story referencing its epic by name.
type Story struct {
	EpicName           string   `json:"epicName"`
	Summary            string   `json:"summary"`
	Story              string   `json:"story"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Priority           string   `json:"priority"`
	StoryPoints        int      `json:"storyPoints"`
}

// Backlog groups the epics and stories of one automation run.
type Backlog struct {
	Epics   []Epic  `json:"epics"`
	Stories []Story `json:"stories"`
}

// Meta carries the project identifiers echoed through the result.
type Meta struct {
	ProjectName        string `json:"projectName"`
	JiraProjectKey     string `json:"jiraProjectKey"`
	ConfluenceSpaceKey string `json:"confluenceSpaceKey"`
}

// Docs bundles the four generated documents and the backlog summary.
type Docs struct {
	BRD            StructuredDocument `json:"brd"`
	FRS            StructuredDocument `json:"frs"`
	SOW            StructuredDocument `json:"sow"`
	RAID           RaidLog            `json:"raid"`
	BacklogSummary string             `json:"backlogSummary"`
}

// Notes records assumptions the model fabricated and questions it left open.
type Notes struct {
	Assumptions   []string `json:"assumptions"`
	OpenQuestions []string `json:"openQuestions"`
}

// AutomationResult is the unit of exchange between the orchestrator and its
// caller. It lives for one request and is never persisted.
type AutomationResult struct {
	Meta    Meta    `json:"meta"`
	Docs    Docs    `json:"docs"`
	Backlog Backlog `json:"backlog"`
	Notes   Notes   `json:"notes"`
}

// ValidPriorities is the closed set of story priorities.
var ValidPriorities = map[string]bool{"P0": true, "P1": true, "P2": true, "P3": true}

// ValidStoryPoints is the closed set of story point values.
var ValidStoryPoints = map[int]bool{1: true, 2: true, 3: true, 5: true, 8: true, 13: true}
