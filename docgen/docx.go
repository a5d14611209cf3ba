// Package docgen renders generated documents into office file formats:
// DOCX via placeholder substitution over an uploaded or stored template, and
// XLSX backlog exports.
package docgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// maxTemplateEntry caps a single decompressed template entry to guard
// against zip bombs.
const maxTemplateEntry = 50 * 1024 * 1024 // 50MB

// RenderDocx substitutes {field} placeholders in a DOCX template. The
// template is treated as opaque apart from its XML parts: every part under
// word/ has its placeholders replaced, everything else is copied through
// byte for byte.
func RenderDocx(template []byte, fields map[string]string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("template is not a valid DOCX file: %w", err)
	}

	replacer := fieldReplacer(fields)

	var out bytes.Buffer
	writer := zip.NewWriter(&out)
	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open template entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxTemplateEntry))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read template entry %s: %w", entry.Name, err)
		}

		if strings.HasPrefix(entry.Name, "word/") && strings.HasSuffix(entry.Name, ".xml") {
			data = []byte(replacer.Replace(string(data)))
		}

		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:   entry.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("write template entry %s: %w", entry.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write template entry %s: %w", entry.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize DOCX: %w", err)
	}
	return out.Bytes(), nil
}

// fieldReplacer builds a replacer mapping {name} to its XML-escaped value.
func fieldReplacer(fields map[string]string) *strings.Replacer {
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{"+name+"}", xmlEscape(value))
	}
	return strings.NewReplacer(pairs...)
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
		"\n", "</w:t><w:br/><w:t>",
	)
	return r.Replace(s)
}
