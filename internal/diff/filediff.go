package diff

import (
	"strings"

	"github.com/dshills/facet/internal/language"
)

// DeletedFilePlaceholder is stored as a FileDiff's content when the diff
// removes the file; there is no post-image to read.
const DeletedFilePlaceholder = "[deleted file]"

// Placeholder prefixes written when a file's post-change content could not be
// read. Content carrying one of these counts as zero lines.
const (
	readErrorPrefix       = "[file read error:"
	unexpectedErrorPrefix = "[unexpected file error:"
)

// FileDiff is one file's portion of a parsed diff. FileContent holds the full
// post-change file text, the deleted-file sentinel, or a read-error
// placeholder; it is never the diff itself.
type FileDiff struct {
	Filename    string `json:"filename"`
	FileContent string `json:"file_content"`
	Hunks       []Hunk `json:"hunks"`
	Language    string `json:"language"`
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`
	LineCount   int    `json:"line_count"`
}

func (f *FileDiff) detectLanguage() {
	f.Language = language.FromFilename(f.Filename)
}

func (f *FileDiff) calculateChanges() {
	f.Additions = 0
	f.Deletions = 0
	for _, h := range f.Hunks {
		for _, line := range strings.Split(h.Content, "\n") {
			switch {
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				f.Additions++
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				f.Deletions++
			}
		}
	}
}

func (f *FileDiff) calculateLineCount() {
	switch {
	case f.FileContent == "",
		f.FileContent == DeletedFilePlaceholder,
		strings.HasPrefix(f.FileContent, readErrorPrefix),
		strings.HasPrefix(f.FileContent, unexpectedErrorPrefix):
		f.LineCount = 0
	default:
		lines := strings.Split(f.FileContent, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		f.LineCount = len(lines)
	}
}

// HasReadableContent reports whether FileContent holds actual file text
// rather than the deleted-file sentinel or a read-error placeholder.
func (f *FileDiff) HasReadableContent() bool {
	return f.FileContent != "" &&
		f.FileContent != DeletedFilePlaceholder &&
		!strings.HasPrefix(f.FileContent, readErrorPrefix) &&
		!strings.HasPrefix(f.FileContent, unexpectedErrorPrefix)
}

// IsEntirelyNew reports whether every line of the file comes from this diff,
// which is how a newly added file presents.
func (f *FileDiff) IsEntirelyNew() bool {
	return f.LineCount == f.Additions
}

// ChangedRanges returns each hunk's actual change range on the modified side,
// in hunk order.
func (f *FileDiff) ChangedRanges() []LineRange {
	ranges := make([]LineRange, 0, len(f.Hunks))
	for _, h := range f.Hunks {
		ranges = append(ranges, h.ChangeRange())
	}
	return ranges
}
