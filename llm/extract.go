package llm

import (
	"regexp"
	"strings"
)

// Completions frequently wrap JSON in markdown fences or decorate it with
// JavaScript-style comments and trailing commas. These helpers recover a
// parseable JSON payload from such output.

var (
	fencedObjectRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	fencedArrayRe  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	bareObjectRe   = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	bareArrayRe    = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON recovers a JSON object from completion output. It returns an
// empty string when no object can be found.
func ExtractJSON(content string) string {
	if m := fencedObjectRe.FindStringSubmatch(content); len(m) > 1 {
		return repairJSON(m[1])
	}
	if m := bareObjectRe.FindString(content); m != "" {
		return repairJSON(m)
	}
	return ""
}

// ExtractJSONArray recovers a JSON array from completion output.
func ExtractJSONArray(content string) string {
	if m := fencedArrayRe.FindStringSubmatch(content); len(m) > 1 {
		return repairJSON(m[1])
	}
	if m := bareArrayRe.FindString(content); m != "" {
		return repairJSON(m)
	}
	return ""
}

// repairJSON strips // comments outside string values and trailing commas.
func repairJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripComment(line)
	}
	return trailingComma.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripComment removes a // comment from one line, respecting string values
// so URLs like "http://example.com" survive intact.
func stripComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\' && inString:
			escaped = true
		case line[i] == '"':
			inString = !inString
		case !inString && line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
