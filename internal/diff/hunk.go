package diff

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+),(\d+) \+(\d+),(\d+) @@`)

// Hunk is a single @@-delimited change block of a unified diff.
type Hunk struct {
	Header  string `json:"header"`
	Content string `json:"content"`

	// BeforeCode and AfterCode are the pre- and post-image views of Content.
	// Diff prefixes are kept so consumers can still tell added, removed, and
	// context lines apart.
	BeforeCode string `json:"before_code"`
	AfterCode  string `json:"after_code"`

	StartLineOriginal int `json:"start_line_original"`
	LineCountOriginal int `json:"line_count_original"`
	StartLineModified int `json:"start_line_modified"`
	LineCountModified int `json:"line_count_modified"`
}

// ParseHunk builds a Hunk from one hunk chunk: the first line is the @@
// header, everything after it is the body. A header that does not match the
// unified format leaves all four line fields at zero; downstream consumers
// tolerate the zeros.
func ParseHunk(hunkText string) Hunk {
	lines := strings.Split(hunkText, "\n")
	header := lines[0]
	content := strings.Join(lines[1:], "\n")

	startOriginal, countOriginal, startModified, countModified := parseHunkHeader(header)
	before, after := parseContentToCode(content)

	return Hunk{
		Header:            header,
		Content:           content,
		BeforeCode:        before,
		AfterCode:         after,
		StartLineOriginal: startOriginal,
		LineCountOriginal: countOriginal,
		StartLineModified: startModified,
		LineCountModified: countModified,
	}
}

// ChangeRange returns the modified-side lines this hunk actually changes,
// accounting for the unified context lines around the edit. A hunk with no
// +/- lines degenerates to a single point at the modified start line.
func (h Hunk) ChangeRange() LineRange {
	return calculateChangeRange(h.Content, h.StartLineModified)
}

func parseHunkHeader(header string) (startOriginal, countOriginal, startModified, countModified int) {
	m := hunkHeaderRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, 0, 0
	}
	startOriginal, _ = strconv.Atoi(m[1])
	countOriginal, _ = strconv.Atoi(m[2])
	startModified, _ = strconv.Atoi(m[3])
	countModified, _ = strconv.Atoi(m[4])
	return startOriginal, countOriginal, startModified, countModified
}

func parseContentToCode(content string) (before, after string) {
	var beforeLines, afterLines []string
	for _, line := range splitLines(content) {
		var prefix byte
		if line != "" {
			prefix = line[0]
		}
		switch prefix {
		case '-':
			beforeLines = append(beforeLines, line)
		case '+':
			afterLines = append(afterLines, line)
		case ' ':
			beforeLines = append(beforeLines, line)
			afterLines = append(afterLines, line)
		default:
			beforeLines = append(beforeLines, line)
			afterLines = append(afterLines, line)
		}
	}
	return strings.Join(beforeLines, "\n"), strings.Join(afterLines, "\n")
}

// changeTracker walks hunk body lines on the modified side. Zero means unset
// for first and last; the finalize step clamps both to valid line numbers.
type changeTracker struct {
	current int
	first   int
	last    int
}

func calculateChangeRange(content string, startModified int) LineRange {
	t := changeTracker{current: startModified}
	for _, line := range splitLines(content) {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			if t.first == 0 {
				t.first = t.current
			}
			t.last = t.current
			t.current++
		case '-':
			if t.first == 0 {
				t.first = t.current
			}
			if t.current > t.last {
				t.last = t.current
			}
		case ' ':
			t.current++
		}
	}

	first := t.first
	if first == 0 {
		first = max(startModified, 1)
	}
	last := t.last
	if last == 0 {
		last = max(startModified, 1)
	}
	first = max(first, 1)
	last = max(last, first)
	return MustLineRange(first, last)
}

// splitLines splits on newlines without producing a trailing empty element
// for text that ends in a newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
