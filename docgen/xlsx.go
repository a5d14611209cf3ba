package docgen

import (
	"fmt"
	"io"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/draftmill/draftmill/document"
)

// storiesHeader is the column layout of the backlog export.
var storiesHeader = []string{
	"Epic", "Summary", "Story", "Acceptance Criteria", "Priority", "Story Points",
}

// WriteStoriesXLSX writes a backlog as a single-sheet workbook: a header row
// followed by one row per story in backlog order.
func WriteStoriesXLSX(w io.Writer, backlog document.Backlog) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("User Stories")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range storiesHeader {
		header.AddCell().SetString(col)
	}

	for _, story := range backlog.Stories {
		row := sheet.AddRow()
		row.AddCell().SetString(story.EpicName)
		row.AddCell().SetString(story.Summary)
		row.AddCell().SetString(story.Story)
		row.AddCell().SetString(strings.Join(story.AcceptanceCriteria, "\n"))
		row.AddCell().SetString(story.Priority)
		row.AddCell().SetInt(story.StoryPoints)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
