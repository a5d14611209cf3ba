package document

import (
	"fmt"
	"html"
	"strings"
)

// HTML renders a structured document as storage-format HTML suitable for a
// wiki page body. Headings become <h2>, bodies become paragraphs with line
// breaks preserved.
func (d StructuredDocument) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(d.Title))
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "<h2>%s</h2>\n<p>%s</p>\n",
			html.EscapeString(s.Heading), paragraph(s.Body))
	}
	return b.String()
}

// HTML renders the RAID log as four tables, one per category.
func (r RaidLog) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(r.Title))
	writeRaidTable(&b, "Risks", r.Risks)
	writeRaidTable(&b, "Assumptions", r.Assumptions)
	writeRaidTable(&b, "Issues", r.Issues)
	writeRaidTable(&b, "Dependencies", r.Dependencies)
	return b.String()
}

func writeRaidTable(b *strings.Builder, heading string, entries []RaidEntry) {
	fmt.Fprintf(b, "<h2>%s</h2>\n", heading)
	if len(entries) == 0 {
		b.WriteString("<p>(none recorded)</p>\n")
		return
	}
	b.WriteString("<table><tbody><tr><th>Item</th><th>Owner</th><th>Status</th><th>Mitigation</th></tr>\n")
	for _, e := range entries {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(e.Item), html.EscapeString(e.Owner),
			html.EscapeString(e.Status), html.EscapeString(e.Mitigation))
	}
	b.WriteString("</tbody></table>\n")
}

// Description synthesizes the issue-tracker description for a story: the
// story text, an Acceptance Criteria bulleted list, and an optional back-link
// to the published document pack page.
func (s Story) Description(docPackURL string) string {
	var b strings.Builder
	b.WriteString(s.Story)
	if len(s.AcceptanceCriteria) > 0 {
		b.WriteString("\n\nAcceptance Criteria:\n")
		for _, c := range s.AcceptanceCriteria {
			b.WriteString("* " + c + "\n")
		}
	}
	if docPackURL != "" {
		b.WriteString("\nDocumentation: " + docPackURL + "\n")
	}
	return b.String()
}

func paragraph(body string) string {
	escaped := html.EscapeString(body)
	return strings.ReplaceAll(escaped, "\n", "<br/>")
}
