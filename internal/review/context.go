package review

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/dshills/facet/internal/diff"
	"github.com/dshills/facet/internal/extract"
)

// ContextType identifies which strategy produced a file's review context.
type ContextType string

const (
	FullContext     ContextType = "full_context"
	SmartContext    ContextType = "smart_context"
	FallbackContext ContextType = "fallback_context"
)

// FileContextInfo carries the context text sent alongside a file's hunks,
// tagged with the strategy that produced it.
type FileContextInfo struct {
	Type        ContextType `json:"context_type"`
	Context     string      `json:"context"`
	Description string      `json:"description"`
}

// NewFullContext wraps complete file content.
func NewFullContext(fileContent string) FileContextInfo {
	return FileContextInfo{
		Type:        FullContext,
		Context:     fileContent,
		Description: "Complete file content",
	}
}

// NewSmartContext joins syntax-tree extracted blocks.
func NewSmartContext(blocks []string) FileContextInfo {
	return FileContextInfo{
		Type:        SmartContext,
		Context:     strings.Join(blocks, "\n"),
		Description: "AST-based context extraction",
	}
}

// NewFallbackContext joins text-heuristic extracted blocks.
func NewFallbackContext(blocks []string) FileContextInfo {
	return FileContextInfo{
		Type:        FallbackContext,
		Context:     strings.Join(blocks, "\n"),
		Description: "Text-based context extraction (AST fallback)",
	}
}

// entirelyNewNotice replaces the file context for files whose every line
// comes from the diff itself; the hunks already carry the whole file.
const entirelyNewNotice = "NEWLY ADDED OR COMPLETELY REWRITTEN FILE: This file is either " +
	"newly created or completely rewritten. The file_context contains only this " +
	"informational message. The complete file content is available in the " +
	"after_code field of formatted_hunks. before_code will be empty and should " +
	"be ignored."

// UseSmartContext decides whether a file's context should be extracted
// rather than sent whole. Small changes always qualify; small files never
// do; large files qualify when the change touches at most a fifth of them.
func UseSmartContext(fd *diff.FileDiff) bool {
	totalChanges := fd.Additions + fd.Deletions
	if totalChanges <= 5 {
		return true
	}
	if fd.LineCount < 30 {
		return false
	}
	ratio := float64(totalChanges) / float64(fd.LineCount)
	return ratio <= 0.2
}

// BuildFileContext selects and runs the context strategy for one file:
// syntax-tree extraction when the smart gate is on and the language has a
// grammar, text-heuristic fallback when it does not or the tree path fails,
// full content otherwise.
func BuildFileContext(fd *diff.FileDiff) FileContextInfo {
	if UseSmartContext(fd) {
		blocks, err := extractContexts(fd)
		if err == nil {
			return NewSmartContext(blocks)
		}
		if !errors.Is(err, extract.ErrUnsupportedLanguage) {
			slog.Warn("context extraction failed, using fallback",
				"file", fd.Filename, "error", err)
		}
		fallback, ferr := extract.NewFallback().Contexts(fd.FileContent, fd.ChangedRanges())
		if ferr == nil {
			return NewFallbackContext(fallback)
		}
		slog.Warn("fallback extraction failed, using full content",
			"file", fd.Filename, "error", ferr)
		return NewFullContext(fd.FileContent)
	}

	if !fd.HasReadableContent() {
		slog.Warn("file has no readable content", "file", fd.Filename)
		return NewFullContext("")
	}
	if fd.IsEntirelyNew() {
		return NewFullContext(entirelyNewNotice)
	}
	return NewFullContext(fd.FileContent)
}

func extractContexts(fd *diff.FileDiff) ([]string, error) {
	ex, err := extract.New(fd.Language)
	if err != nil {
		return nil, err
	}
	return ex.Contexts(fd.FileContent, fd.ChangedRanges())
}
