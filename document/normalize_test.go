package document

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEnsureContent_EmptyInput(t *testing.T) {
	got := EnsureContent(nil, "Fallback Title", "The system shall frobnicate.")

	if got.Title != "Fallback Title" {
		t.Errorf("Title = %q, want fallback", got.Title)
	}
	if len(got.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2 placeholders", len(got.Sections))
	}
	if got.Sections[0].Heading != "Overview" {
		t.Errorf("first heading = %q, want Overview", got.Sections[0].Heading)
	}
	if !strings.Contains(got.Sections[0].Body, "frobnicate") {
		t.Errorf("Overview body should carry the source text, got %q", got.Sections[0].Body)
	}
	if got.Sections[1].Heading != "Notes" {
		t.Errorf("second heading = %q, want Notes", got.Sections[1].Heading)
	}
}

func TestEnsureContent_LongSourceTruncated(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := EnsureContent(nil, "T", long)

	if len(got.Sections[0].Body) != overviewLimit {
		t.Errorf("Overview length = %d, want %d", len(got.Sections[0].Body), overviewLimit)
	}
}

func TestEnsureContent_TruncationKeepsRunesIntact(t *testing.T) {
	// Position the limit one byte into a three-byte rune.
	long := strings.Repeat("a", overviewLimit-1) + strings.Repeat("日", 100)
	got := EnsureContent(nil, "T", long)

	body := got.Sections[0].Body
	if !utf8.ValidString(body) {
		t.Fatalf("Overview contains a split rune: %q", body[len(body)-4:])
	}
	if len(body) != overviewLimit-1 {
		t.Errorf("Overview length = %d, want %d (backed up to the rune boundary)", len(body), overviewLimit-1)
	}
}

func TestEnsureContent_TitleOnlyGetsOneSection(t *testing.T) {
	doc := &StructuredDocument{Title: "Real Title", Sections: []Section{{Heading: " ", Body: "  "}}}
	got := EnsureContent(doc, "Fallback", "src")

	if got.Title != "Real Title" {
		t.Errorf("Title = %q, want the document's own title", got.Title)
	}
	if len(got.Sections) != 1 {
		t.Fatalf("Sections = %d, want 1", len(got.Sections))
	}
	if got.Sections[0].Body == "" {
		t.Error("section body must be non-empty")
	}
}

func TestEnsureContent_PartialSectionsKeepPositions(t *testing.T) {
	doc := &StructuredDocument{
		Sections: []Section{
			{Heading: "Scope", Body: "In scope: everything."},
			{Heading: "", Body: ""},
		},
	}
	got := EnsureContent(doc, "T", "src")

	if len(got.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2 (no positions dropped)", len(got.Sections))
	}
	if got.Sections[1].Heading != "Section" || got.Sections[1].Body != "(No content provided)" {
		t.Errorf("empty section not placeholder-filled: %+v", got.Sections[1])
	}
}

func TestEnsureContent_NeverEmpty(t *testing.T) {
	// Every combination of empty-ish input must yield a titled document with
	// at least one non-empty section.
	inputs := []*StructuredDocument{
		nil,
		{},
		{Title: "  "},
		{Sections: []Section{}},
		{Sections: []Section{{}, {}}},
		{Title: "T", Sections: []Section{{Heading: "H"}}},
	}
	for i, in := range inputs {
		got := EnsureContent(in, "Fallback", "")
		if got.Title == "" {
			t.Errorf("case %d: empty title", i)
		}
		if len(got.Sections) == 0 {
			t.Errorf("case %d: no sections", i)
			continue
		}
		for j, s := range got.Sections {
			if s.Heading == "" || s.Body == "" {
				t.Errorf("case %d section %d: empty heading or body: %+v", i, j, s)
			}
		}
	}
}

func TestEnsureContent_Idempotent(t *testing.T) {
	inputs := []*StructuredDocument{
		nil,
		{Title: "T", Sections: []Section{{Heading: " H ", Body: " body "}, {}}},
		{Sections: []Section{{Heading: "Only", Body: "content"}}},
	}
	for i, in := range inputs {
		once := EnsureContent(in, "Fallback", "source text")
		twice := EnsureContent(&once, "Fallback", "source text")
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: not idempotent:\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
	}
}

func TestNormalizeRaid(t *testing.T) {
	got := NormalizeRaid(nil, "RAID Log")
	if got.Title != "RAID Log" {
		t.Errorf("Title = %q", got.Title)
	}
	for name, entries := range map[string][]RaidEntry{
		"risks": got.Risks, "assumptions": got.Assumptions,
		"issues": got.Issues, "dependencies": got.Dependencies,
	} {
		if entries == nil {
			t.Errorf("%s slice is nil", name)
		}
	}

	in := &RaidLog{Title: "  ", Risks: []RaidEntry{{Item: " risk ", Owner: " PM "}}}
	got = NormalizeRaid(in, "Fallback")
	if got.Title != "Fallback" {
		t.Errorf("Title = %q, want fallback", got.Title)
	}
	if got.Risks[0].Item != "risk" || got.Risks[0].Owner != "PM" {
		t.Errorf("entries not trimmed: %+v", got.Risks[0])
	}
}

func TestNormalizeBacklog_Clamps(t *testing.T) {
	tests := []struct {
		name         string
		priority     string
		points       int
		wantPriority string
		wantPoints   int
	}{
		{"valid kept", "P0", 8, "P0", 8},
		{"lowercase priority uppercased", "p1", 5, "P1", 5},
		{"unknown priority clamped", "critical", 3, "P2", 3},
		{"empty priority clamped", "", 13, "P2", 13},
		{"off-scale points clamped", "P3", 7, "P3", 3},
		{"zero points clamped", "P3", 0, "P3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backlog{Stories: []Story{{Summary: "s", Priority: tt.priority, StoryPoints: tt.points}}}
			got := NormalizeBacklog(b)
			story := got.Stories[0]
			if story.Priority != tt.wantPriority {
				t.Errorf("Priority = %q, want %q", story.Priority, tt.wantPriority)
			}
			if story.StoryPoints != tt.wantPoints {
				t.Errorf("StoryPoints = %d, want %d", story.StoryPoints, tt.wantPoints)
			}
		})
	}
}

func TestNormalizeBacklog_NonNilSlices(t *testing.T) {
	got := NormalizeBacklog(nil)
	if got.Epics == nil || got.Stories == nil {
		t.Fatal("epics and stories must be non-nil")
	}

	got = NormalizeBacklog(&Backlog{Stories: []Story{{Summary: "s"}}})
	if got.Stories[0].AcceptanceCriteria == nil {
		t.Error("acceptance criteria must be non-nil")
	}
}

func TestUniqueTitle(t *testing.T) {
	title := UniqueTitle("PM Doc Pack – Apollo")

	if !strings.HasPrefix(title, "PM Doc Pack – Apollo ") {
		t.Errorf("title %q should keep base prefix", title)
	}
	if strings.ContainsAny(title, ":.") {
		t.Errorf("title %q contains characters unsafe for URLs", title)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		u := UniqueTitle("base")
		if seen[u] {
			t.Fatalf("duplicate title after %d iterations: %q", i, u)
		}
		seen[u] = true
	}
}
