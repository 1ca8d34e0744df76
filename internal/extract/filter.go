package extract

import (
	"regexp"
	"strings"

	"github.com/dshills/facet/internal/diff"
)

// Comment-line prefixes across common languages, checked against the
// whitespace-trimmed line.
var commentPrefixRe = regexp.MustCompile(`^(//|/\*|\*|#|<!--|--|%|")`)

// Preprocessor directives start with # but are real code, not comments.
var preprocessorRe = regexp.MustCompile(`^#(include|define|ifdef|ifndef|if|else|elif|endif|pragma|warning|error|undef|line)`)

// IsMeaningfulLine reports whether a line carries reviewable content. Blank
// lines and comment lines do not; preprocessor directives do.
func IsMeaningfulLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return false
	}
	if !commentPrefixRe.MatchString(stripped) {
		return true
	}
	if strings.HasPrefix(stripped, "#") {
		return preprocessorRe.MatchString(stripped)
	}
	return false
}

// MeaningfulRanges drops single-line ranges that cover only a blank or
// comment line. Ranges spanning more than one line always pass, and a
// single-line range pointing past the end of the file is dropped. Order is
// preserved and the result is a subset of the input.
func MeaningfulRanges(lines []string, ranges []diff.LineRange) []diff.LineRange {
	meaningful := make([]diff.LineRange, 0, len(ranges))
	for _, r := range ranges {
		if !isSingleMeaninglessChange(lines, r) {
			meaningful = append(meaningful, r)
		}
	}
	return meaningful
}

func isSingleMeaninglessChange(lines []string, r diff.LineRange) bool {
	if r.Start() != r.End() {
		return false
	}
	idx := r.Start() - 1
	if idx >= len(lines) {
		return true
	}
	return !IsMeaningfulLine(lines[idx])
}

// splitLines splits content into lines without a trailing empty element,
// matching how editors count lines in a newline-terminated file.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
