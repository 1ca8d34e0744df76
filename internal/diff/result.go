package diff

import "encoding/json"

// DiffResult is the parsed form of one git diff invocation. Files appear in
// input order and own their hunks; nothing mutates them after Parse returns.
type DiffResult struct {
	Files []FileDiff `json:"files"`
}

// TotalAdditions sums added lines across all files.
func (r *DiffResult) TotalAdditions() int {
	total := 0
	for i := range r.Files {
		total += r.Files[i].Additions
	}
	return total
}

// TotalDeletions sums deleted lines across all files.
func (r *DiffResult) TotalDeletions() int {
	total := 0
	for i := range r.Files {
		total += r.Files[i].Deletions
	}
	return total
}

// LanguageStats returns a file count per detected language.
func (r *DiffResult) LanguageStats() map[string]int {
	stats := make(map[string]int)
	for i := range r.Files {
		if lang := r.Files[i].Language; lang != "" {
			stats[lang]++
		}
	}
	return stats
}

// HasEntirelyNewFile reports whether any file in the diff is entirely new
// content. The system prompt includes a whole-file handling rule when true.
func (r *DiffResult) HasEntirelyNewFile() bool {
	for i := range r.Files {
		if r.Files[i].IsEntirelyNew() {
			return true
		}
	}
	return false
}

// ToJSON renders the result with aggregate totals for debugging and the
// --format json path of facet diff.
func (r *DiffResult) ToJSON() (string, error) {
	out := struct {
		Files          []FileDiff     `json:"files"`
		TotalAdditions int            `json:"total_additions"`
		TotalDeletions int            `json:"total_deletions"`
		LanguageStats  map[string]int `json:"language_stats"`
	}{
		Files:          r.Files,
		TotalAdditions: r.TotalAdditions(),
		TotalDeletions: r.TotalDeletions(),
		LanguageStats:  r.LanguageStats(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
