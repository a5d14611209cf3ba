package docgen

import (
	"bytes"
	"testing"

	"github.com/tealeg/xlsx"

	"github.com/draftmill/draftmill/document"
)

func TestWriteStoriesXLSX(t *testing.T) {
	backlog := document.Backlog{
		Stories: []document.Story{
			{
				EpicName:           "Auth",
				Summary:            "Login",
				Story:              "As a user I log in.",
				AcceptanceCriteria: []string{"MFA", "lockout"},
				Priority:           "P1",
				StoryPoints:        5,
			},
			{
				EpicName: "Dashboard", Summary: "KPIs", Story: "As a PM I see KPIs.",
				Priority: "P2", StoryPoints: 3,
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteStoriesXLSX(&buf, backlog); err != nil {
		t.Fatalf("WriteStoriesXLSX() error = %v", err)
	}

	file, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	if len(file.Sheets) != 1 || file.Sheets[0].Name != "User Stories" {
		t.Fatalf("sheets = %v", file.Sheets)
	}

	sheet := file.Sheets[0]
	if got := len(sheet.Rows); got != 3 {
		t.Fatalf("rows = %d, want header + 2 stories", got)
	}
	if got := sheet.Rows[0].Cells[0].String(); got != "Epic" {
		t.Errorf("header[0] = %q", got)
	}
	if got := sheet.Rows[1].Cells[1].String(); got != "Login" {
		t.Errorf("row 1 summary = %q", got)
	}
	if got := sheet.Rows[1].Cells[3].String(); got != "MFA\nlockout" {
		t.Errorf("criteria cell = %q", got)
	}
	if got, err := sheet.Rows[2].Cells[5].Int(); err != nil || got != 3 {
		t.Errorf("points cell = %v (%v)", got, err)
	}
}

func TestWriteStoriesXLSX_EmptyBacklog(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStoriesXLSX(&buf, document.Backlog{}); err != nil {
		t.Fatal(err)
	}
	file, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Sheets[0].Rows) != 1 {
		t.Errorf("want header row only, got %d rows", len(file.Sheets[0].Rows))
	}
}
