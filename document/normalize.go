package document

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// overviewLimit caps how much source text the placeholder Overview section
// carries.
const overviewLimit = 1200

// EnsureContent returns a document that satisfies the StructuredDocument
// invariants. A nil doc starts from the zero value. The title falls back to
// fallbackTitle when empty. When neither the title nor any section carries
// content, two placeholder sections are injected: an Overview holding up to
// the first 1200 characters of sourceText and a Notes section marking the
// document as auto-generated. Otherwise sections are trim-coerced in place
// order with no content dropped.
//
// The function is idempotent: applying it to its own output is a no-op.
func EnsureContent(doc *StructuredDocument, fallbackTitle, sourceText string) StructuredDocument {
	var in StructuredDocument
	if doc != nil {
		in = *doc
	}

	hadTitle := strings.TrimSpace(in.Title) != ""
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fallbackTitle
	}

	sections := make([]Section, 0, len(in.Sections))
	hasContent := false
	for _, s := range in.Sections {
		h := strings.TrimSpace(s.Heading)
		body := strings.TrimSpace(s.Body)
		if h != "" || body != "" {
			hasContent = true
		}
		sections = append(sections, Section{Heading: h, Body: body})
	}

	if !hasContent && !hadTitle {
		overview := truncateRunes(strings.TrimSpace(sourceText), overviewLimit)
		if overview == "" {
			overview = "(No requirements provided)"
		}
		sections = []Section{
			{Heading: "Overview", Body: overview},
			{Heading: "Notes", Body: "This document was auto-generated from the supplied requirements; review and expand each section before distribution."},
		}
	} else if !hasContent {
		// Title present but every section empty: still guarantee one
		// non-empty section rather than returning an empty shell.
		sections = []Section{
			{Heading: "Overview", Body: "(No section content was produced; see assumptions.)"},
		}
	} else {
		// Empty input sections are replaced with placeholder content so the
		// every-section-non-empty invariant holds without dropping positions.
		for i, s := range sections {
			if s.Heading == "" {
				sections[i].Heading = "Section"
			}
			if s.Body == "" {
				sections[i].Body = "(No content provided)"
			}
		}
	}

	return StructuredDocument{Title: title, Sections: sections}
}

// NormalizeRaid coerces a RAID log so all four entry slices are non-nil and
// every entry is trimmed. A nil log yields an empty log with the fallback
// title.
func NormalizeRaid(raid *RaidLog, fallbackTitle string) RaidLog {
	var in RaidLog
	if raid != nil {
		in = *raid
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fallbackTitle
	}
	return RaidLog{
		Title:        title,
		Risks:        normalizeEntries(in.Risks),
		Assumptions:  normalizeEntries(in.Assumptions),
		Issues:       normalizeEntries(in.Issues),
		Dependencies: normalizeEntries(in.Dependencies),
	}
}

func normalizeEntries(entries []RaidEntry) []RaidEntry {
	out := make([]RaidEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, RaidEntry{
			Item:       strings.TrimSpace(e.Item),
			Owner:      strings.TrimSpace(e.Owner),
			Status:     strings.TrimSpace(e.Status),
			Mitigation: strings.TrimSpace(e.Mitigation),
		})
	}
	return out
}

// NormalizeBacklog guarantees non-nil epic/story slices, non-nil acceptance
// criteria, and clamps priority and story points to their closed sets
// (P2 and 3 when out of range).
func NormalizeBacklog(b *Backlog) Backlog {
	var in Backlog
	if b != nil {
		in = *b
	}
	epics := make([]Epic, 0, len(in.Epics))
	for _, e := range in.Epics {
		epics = append(epics, Epic{
			Name:        strings.TrimSpace(e.Name),
			Description: strings.TrimSpace(e.Description),
		})
	}
	stories := make([]Story, 0, len(in.Stories))
	for _, s := range in.Stories {
		ac := s.AcceptanceCriteria
		if ac == nil {
			ac = []string{}
		}
		priority := strings.ToUpper(strings.TrimSpace(s.Priority))
		if !ValidPriorities[priority] {
			priority = "P2"
		}
		points := s.StoryPoints
		if !ValidStoryPoints[points] {
			points = 3
		}
		stories = append(stories, Story{
			EpicName:           strings.TrimSpace(s.EpicName),
			Summary:            strings.TrimSpace(s.Summary),
			Story:              strings.TrimSpace(s.Story),
			AcceptanceCriteria: ac,
			Priority:           priority,
			StoryPoints:        points,
		})
	}
	return Backlog{Epics: epics, Stories: stories}
}

// NormalizeNotes guarantees non-nil note slices.
func NormalizeNotes(n *Notes) Notes {
	var in Notes
	if n != nil {
		in = *n
	}
	if in.Assumptions == nil {
		in.Assumptions = []string{}
	}
	if in.OpenQuestions == nil {
		in.OpenQuestions = []string{}
	}
	return in
}

// UniqueTitle derives a page title that will not collide across repeated runs
// against the same space: base plus an ISO-8601 timestamp (colons and periods
// replaced with hyphens for URL and filesystem safety) plus a 4-hex-digit
// random suffix.
func UniqueTitle(base string) string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)

	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand exhaustion is effectively unreachable; the timestamp
		// alone still distinguishes most runs.
		return base + " " + ts
	}
	return base + " " + ts + " " + hex.EncodeToString(buf)
}
