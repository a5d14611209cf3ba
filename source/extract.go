// Package source extracts requirements text from the inputs the automation
// endpoints accept: pasted text, uploaded documents, and web URLs.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// FileContentMarker separates pasted requirements from extracted document
// text in the combined prompt input.
const FileContentMarker = "[FILE_CONTENT]"

// FromUpload extracts plain text from an uploaded requirements document.
// Markdown and plain text pass through; HTML is converted to markdown.
// Binary content is rejected.
func FromUpload(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		result, err := ConvertHTML(data)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", filename, err)
		}
		return result.Markdown, nil
	case ".txt", ".md", ".markdown", "":
		return decodeText(filename, data)
	default:
		return decodeText(filename, data)
	}
}

// Combine joins pasted requirements text with extracted document text under
// the file-content marker. Either part may be empty.
func Combine(pasted, extracted string) string {
	pasted = strings.TrimSpace(pasted)
	extracted = strings.TrimSpace(extracted)
	switch {
	case extracted == "":
		return pasted
	case pasted == "":
		return FileContentMarker + "\n" + extracted
	default:
		return pasted + "\n\n" + FileContentMarker + "\n" + extracted
	}
}

func decodeText(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text; upload .txt, .md or .html", filename)
	}
	return string(data), nil
}
