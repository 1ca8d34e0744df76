package review

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/facet/internal/config"
	"github.com/dshills/facet/internal/diff"
	"github.com/dshills/facet/internal/redact"
)

// promptVersion participates in cache keys so prompt changes invalidate
// cached responses.
const promptVersion = "v1"

const promptPreamble = `You are a strict, expert code reviewer. Your job is to review structured file changes and produce findings in JSON format.

The user message contains a JSON array of changed files. Each entry carries:
- "file_name": the file path
- "file_context": surrounding code; "context_type" tells you whether it is the complete file, syntax-tree extracted blocks, or text-extracted blocks
- "formatted_hunks": the changes, where "before_code" and "after_code" are fenced code and "after_code_line_numbers" lists the post-change line numbers

Rules:
1. Only review the changes shown in the hunks. The file context is background; do not report findings on unchanged context code.
2. Focus on bugs, security issues, performance problems, and correctness. Avoid bikeshedding on style unless it impacts readability significantly.
3. Be concise and actionable. Every finding must include a concrete suggestion.
4. Use line numbers from after_code_line_numbers when referencing changed code.
5. Rate severity as "low", "medium", or "high".
6. Rate your confidence from 0.0 to 1.0.
7. Categorize each finding as one of: bug, security, performance, correctness, style, maintainability, testing, docs.
8. Context blocks may start with "---- Context Block N (Lines S-E) ----" or "---- Dependencies/Imports ----" markers; these markers are not part of the reviewed code.
`

const entirelyNewFileRule = `9. Newly Added or Completely Rewritten Files: when file_context.context starts with "NEWLY ADDED OR COMPLETELY REWRITTEN FILE", treat after_code as the entire file content. before_code should be ignored, and file_context.context contains only an informational message, not actual code.
`

const promptContract = `
You MUST respond with ONLY a JSON array of findings. No markdown, no explanation, no preamble. Just the JSON array.

Each finding must have this exact structure:
{
  "severity": "low|medium|high",
  "category": "bug|security|performance|correctness|style|maintainability|testing|docs",
  "title": "Short descriptive title",
  "message": "What is wrong and why it matters",
  "suggestion": "How to fix it, with code if helpful",
  "confidence": 0.0-1.0,
  "path": "relative/file/path",
  "startLine": 1,
  "endLine": 1,
  "tags": ["optional", "tags"]
}

If there are no issues, respond with an empty array: []`

// SystemPrompt returns the system prompt for the LLM. The entirely-new-file
// rule is included only when the diff contains such a file, keeping the
// instruction set minimal otherwise.
func SystemPrompt(includeEntirelyNewRule bool) string {
	if !includeEntirelyNewRule {
		return promptPreamble + promptContract
	}
	return promptPreamble + entirelyNewFileRule + promptContract
}

// FormattedHunk is one hunk shaped for prompt use: fenced code plus the
// post-change line numbering the model should reference.
type FormattedHunk struct {
	Idx              string `json:"hunk_idx"`
	BeforeCode       string `json:"before_code"`
	AfterCode        string `json:"after_code"`
	AfterStartLine   int    `json:"after_code_start_line_number"`
	AfterLineNumbers []int  `json:"after_code_line_numbers"`
}

// NewFormattedHunk shapes a parsed hunk for the prompt. idx is zero-based;
// the rendered index is one-based.
func NewFormattedHunk(h diff.Hunk, idx int, language string) FormattedHunk {
	numbers := make([]int, 0, h.LineCountModified)
	for i := 0; i < h.LineCountModified; i++ {
		numbers = append(numbers, h.StartLineModified+i)
	}
	return FormattedHunk{
		Idx:              strconv.Itoa(idx + 1),
		BeforeCode:       fencedCode(language, h.BeforeCode),
		AfterCode:        fencedCode(language, h.AfterCode),
		AfterStartLine:   h.StartLineModified,
		AfterLineNumbers: numbers,
	}
}

func fencedCode(language, code string) string {
	return fmt.Sprintf("```%s\n%s\n```", language, code)
}

// UserPrompt is one file's unit of review work: its context plus its hunks.
// The prompt splitter partitions a review at this granularity and never
// inside a unit.
type UserPrompt struct {
	FileName       string          `json:"file_name"`
	FileContext    FileContextInfo `json:"file_context"`
	FormattedHunks []FormattedHunk `json:"formatted_hunks"`
	Language       string          `json:"language"`
}

// NewUserPrompt builds a file's prompt unit from its diff and context info.
func NewUserPrompt(fd *diff.FileDiff, fc FileContextInfo) *UserPrompt {
	hunks := make([]FormattedHunk, 0, len(fd.Hunks))
	for i, h := range fd.Hunks {
		hunks = append(hunks, NewFormattedHunk(h, i, fd.Language))
	}
	return &UserPrompt{
		FileName:       fd.Filename,
		FileContext:    fc,
		FormattedHunks: hunks,
		Language:       fd.Language,
	}
}

// ReviewPrompt is a fully assembled review request: one shared system prompt
// and one unit per reviewed file.
type ReviewPrompt struct {
	System      string
	UserPrompts []*UserPrompt
}

// BuildReviewPrompt assembles the prompt for a parsed diff. Files without
// hunks are skipped. When secret redaction is on, context and hunk code are
// scrubbed before they can reach a provider; files matching a redaction path
// pattern have their content withheld entirely.
func BuildReviewPrompt(result *diff.DiffResult, cfg config.Config, rules *Rules) *ReviewPrompt {
	system := SystemPrompt(result.HasEntirelyNewFile())
	if rulesSection := BuildRulesPromptSection(rules); rulesSection != "" {
		system += "\n" + rulesSection
	}

	var units []*UserPrompt
	for i := range result.Files {
		fd := &result.Files[i]
		if len(fd.Hunks) == 0 {
			continue
		}
		fc := BuildFileContext(fd)
		if cfg.Privacy.RedactSecrets {
			fc.Context = redact.Content(fc.Context, fd.Filename, cfg.Privacy.RedactPaths)
		}
		unit := NewUserPrompt(fd, fc)
		if cfg.Privacy.RedactSecrets {
			for j := range unit.FormattedHunks {
				unit.FormattedHunks[j].BeforeCode = redact.Content(unit.FormattedHunks[j].BeforeCode, fd.Filename, cfg.Privacy.RedactPaths)
				unit.FormattedHunks[j].AfterCode = redact.Content(unit.FormattedHunks[j].AfterCode, fd.Filename, cfg.Privacy.RedactPaths)
			}
		}
		units = append(units, unit)
	}

	return &ReviewPrompt{System: system, UserPrompts: units}
}

// UserContent renders prompt units as the user message: review directives
// followed by the files as a JSON array.
func UserContent(units []*UserPrompt, maxFindings int, failOn string) (string, error) {
	var b strings.Builder

	b.WriteString("Review the following changed files.\n\n")

	if maxFindings > 0 {
		fmt.Fprintf(&b, "Return at most %d findings.\n", maxFindings)
	}
	if failOn != "" && failOn != "none" {
		fmt.Fprintf(&b, "Focus especially on findings with severity %s or above.\n", failOn)
	}
	if langs := unitLanguages(units); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}

	data, err := json.MarshalIndent(units, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding prompt units: %w", err)
	}

	b.WriteString("\n--- BEGIN FILES ---\n")
	b.Write(data)
	b.WriteString("\n--- END FILES ---\n")

	return b.String(), nil
}

func unitLanguages(units []*UserPrompt) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, u := range units {
		if u.Language == "" || u.Language == "text" || seen[u.Language] {
			continue
		}
		seen[u.Language] = true
		langs = append(langs, u.Language)
	}
	sort.Strings(langs)
	return langs
}
