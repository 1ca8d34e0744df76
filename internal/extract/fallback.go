package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/facet/internal/diff"
)

// ErrEmptyContent reports a fallback extraction attempted without file text.
var ErrEmptyContent = errors.New("file content is empty")

// fallbackWindow is how many lines each changed range grows on both sides
// before merging.
const fallbackWindow = 5

// Import and include line shapes across common languages, matched one line
// at a time.
var importLineRe = regexp.MustCompile(strings.Join([]string{
	// C/C++
	`^\s*#include\s*[<"].*[>"].*$`,
	`^\s*#define\s+\w+.*$`,
	`^\s*#ifdef\s+\w+.*$`,
	`^\s*#ifndef\s+\w+.*$`,
	// C#
	`^\s*using\s+[\w\.]+\s*;.*$`,
	`^\s*using\s+static\s+[\w\.]+\s*;.*$`,
	// Go
	`^\s*import\s*[("].*[)"].*$`,
	`^\s*package\s+\w+.*$`,
	// Rust
	`^\s*use\s+[\w:]+.*$`,
	`^\s*extern\s+crate\s+\w+.*$`,
	`^\s*mod\s+\w+.*$`,
	// Swift
	`^\s*import\s+\w+.*$`,
	`^\s*@import\s+\w+.*$`,
	// Dart
	`^\s*import\s+['"].*['"].*$`,
	`^\s*part\s+['"].*['"].*$`,
	`^\s*part\s+of\s+.*$`,
	// PHP
	`^\s*(require|require_once|include|include_once)\s*[('"].*$`,
	`^\s*use\s+[\w\\]+.*$`,
	// Ruby
	`^\s*(require|load)\s+['"].*['"].*$`,
	`^\s*include\s+\w+.*$`,
	// Perl
	`^\s*use\s+[\w:]+.*$`,
	`^\s*require\s+['"].*['"].*$`,
	// catch-all for other languages
	`^\s*(require|include|load|import)\s*[('"].*$`,
}, "|"))

// FallbackExtractor produces text-based context blocks for languages without
// a grammar: each meaningful changed range grows into a fixed window of
// surrounding lines, overlapping windows merge, and import-looking lines are
// collected by pattern across the whole file.
type FallbackExtractor struct{}

// NewFallback returns a text-based extractor usable for any language.
func NewFallback() *FallbackExtractor {
	return &FallbackExtractor{}
}

// Contexts returns the import block followed by one numbered block per
// merged window. An error is returned when ranges are present but the file
// text is empty.
func (f *FallbackExtractor) Contexts(fileContent string, changedRanges []diff.LineRange) ([]string, error) {
	if len(changedRanges) == 0 {
		return nil, nil
	}
	if fileContent == "" {
		return nil, ErrEmptyContent
	}

	lines := splitLines(fileContent)
	meaningful := MeaningfulRanges(lines, changedRanges)
	if len(meaningful) == 0 {
		return nil, nil
	}

	merged := mergeRanges(expandRanges(meaningful))

	var blocks []string
	if imports := importLines(lines); len(imports) > 0 {
		blocks = append(blocks, formatImportBlock(imports))
	}
	for i, r := range merged {
		content := sliceRange(lines, r)
		if content == "" {
			continue
		}
		blocks = append(blocks, formatContextBlock(content, r, i+1))
	}
	return blocks, nil
}

// expandRanges grows each range by the window on both sides; the start never
// drops below line 1, the end is clamped later when slicing.
func expandRanges(ranges []diff.LineRange) []diff.LineRange {
	expanded := make([]diff.LineRange, 0, len(ranges))
	for _, r := range ranges {
		start := max(1, r.Start()-fallbackWindow)
		expanded = append(expanded, diff.MustLineRange(start, r.End()+fallbackWindow))
	}
	return expanded
}

// mergeRanges folds overlapping and adjacent ranges into a minimal ascending
// set.
func mergeRanges(ranges []diff.LineRange) []diff.LineRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]diff.LineRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start() < sorted[j].Start()
	})

	merged := []diff.LineRange{sorted[0]}
	for _, current := range sorted[1:] {
		last := merged[len(merged)-1]
		if current.Start() <= last.End()+1 {
			merged[len(merged)-1] = diff.MustLineRange(last.Start(), max(last.End(), current.End()))
		} else {
			merged = append(merged, current)
		}
	}
	return merged
}

// importLines collects trimmed import-looking lines from the whole file in
// order, keeping only lines that also pass the meaningful-line check.
func importLines(lines []string) []string {
	var imports []string
	for _, line := range lines {
		if !importLineRe.MatchString(line) {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && IsMeaningfulLine(trimmed) {
			imports = append(imports, trimmed)
		}
	}
	return imports
}

// sliceRange returns the file lines covered by r joined with newlines, with
// the end clamped to the file length. Lines are kept raw: blank lines and
// comments inside a window stay.
func sliceRange(lines []string, r diff.LineRange) string {
	start := r.Start() - 1
	end := min(r.End(), len(lines))
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

func formatImportBlock(imports []string) string {
	if len(imports) == 0 {
		return ""
	}
	return "---- Dependencies/Imports ----\n" + strings.Join(imports, "\n")
}

func formatContextBlock(content string, r diff.LineRange, number int) string {
	return fmt.Sprintf("---- Context Block %d (Lines %d-%d) ----\n%s", number, r.Start(), r.End(), content)
}
