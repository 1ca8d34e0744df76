package diff

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dshills/facet/internal/repofs"
)

// Parse failure sentinels. Both mark the whole diff as unusable; per-file
// problems never surface here.
var (
	ErrEmptyDiff      = errors.New("empty diff")
	ErrNoFileSections = errors.New("no file sections found in diff")
)

var (
	fileSplitRe   = regexp.MustCompile(`(?m)^diff --git`)
	hunkSplitRe   = regexp.MustCompile(`(?m)^@@ `)
	fileHeaderRe  = regexp.MustCompile(`(?m)^diff --git a/(\S+) b/(\S+)`)
	deletedFileRe = regexp.MustCompile(`(?m)^--- a/.*\n^\+\+\+ /dev/null$`)
)

// Parse parses git diff output into a DiffResult. repoPath is the repository
// root used to read each file's post-change content; a file that cannot be
// read gets a placeholder content string and parsing continues. Parse fails
// only for empty input or input with no recognizable file sections.
func Parse(diffText, repoPath string) (*DiffResult, error) {
	if diffText == "" {
		return nil, fmt.Errorf("parsing diff: %w", ErrEmptyDiff)
	}

	result := &DiffResult{}
	for _, section := range splitAtBoundaries(diffText, fileSplitRe) {
		if fd, ok := parseFileSection(section, repoPath); ok {
			result.Files = append(result.Files, *fd)
		}
	}

	if len(result.Files) == 0 {
		return nil, fmt.Errorf("parsing diff: %w", ErrNoFileSections)
	}
	return result, nil
}

// parseFileSection parses one per-file chunk. Sections without a diff --git
// header are not file sections and report ok=false.
func parseFileSection(section, repoPath string) (*FileDiff, bool) {
	if strings.TrimSpace(section) == "" {
		return nil, false
	}
	m := fileHeaderRe.FindStringSubmatch(section)
	if m == nil {
		return nil, false
	}
	filename := m[2]

	var hunks []Hunk
	for _, chunk := range splitAtBoundaries(section, hunkSplitRe) {
		if strings.HasPrefix(strings.TrimLeft(chunk, " \t\r\n"), "@@") {
			hunks = append(hunks, ParseHunk(chunk))
		}
	}

	var content string
	if deletedFileRe.MatchString(section) {
		content = DeletedFilePlaceholder
	} else {
		content = readFileContent(filename, repoPath)
	}

	fd := &FileDiff{Filename: filename, FileContent: content, Hunks: hunks}
	fd.detectLanguage()
	fd.calculateChanges()
	fd.calculateLineCount()
	return fd, true
}

// readFileContent reads the post-change file, downgrading any failure to a
// placeholder string so one unreadable file never aborts the diff parse.
func readFileContent(filename, repoPath string) string {
	content, err := repofs.ReadFile(filename, repoPath)
	if err == nil {
		return content
	}
	slog.Warn("could not read file content for diff", "file", filename, "error", err)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("%s %s (not found)]", readErrorPrefix, filename)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("%s %s (permission denied)]", readErrorPrefix, filename)
	case errors.Is(err, repofs.ErrOutsideRepo):
		return fmt.Sprintf("%s %s (outside repository)]", readErrorPrefix, filename)
	default:
		return fmt.Sprintf("%s %s (%v)]", unexpectedErrorPrefix, filename, err)
	}
}

// splitAtBoundaries splits text at the start of every match of re, keeping
// the match at the head of each piece. Text before the first match becomes
// its own piece. Go's regexp has no lookahead, so this stands in for
// splitting on a zero-width (?=...) boundary.
func splitAtBoundaries(text string, re *regexp.Regexp) []string {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var parts []string
	if locs[0][0] > 0 {
		parts = append(parts, text[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, text[loc[0]:end])
	}
	return parts
}
