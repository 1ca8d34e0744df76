package review

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/facet/internal/config"
	"github.com/dshills/facet/internal/diff"
	"github.com/dshills/facet/internal/gitctx"
	"github.com/dshills/facet/internal/providers"
	"github.com/dshills/facet/internal/redact"
)

// CompareResult holds results from multi-model comparison.
type CompareResult struct {
	Consensus []Finding            // Findings that appeared in >=2 models
	Unique    map[string][]Finding // Unique findings per model (key: "provider:model")
	All       []Finding            // All merged findings for the report
	LLMMs     int64
}

// compareModelResult holds the output from a single model's review.
type compareModelResult struct {
	label    string
	findings []Finding
	err      error
}

// RunCompareReport runs the full compare pipeline over a diff: the same
// assembled prompt is reviewed by every listed provider:model pair and the
// merged findings are folded into a report. The CompareResult is returned
// alongside so callers can surface consensus and per-model splits.
func RunCompareReport(ctx context.Context, g gitctx.DiffResult, cfg config.Config, models []string) (*Report, *CompareResult, error) {
	startTime := time.Now()

	redactedDiff := g.Diff
	if cfg.Privacy.RedactSecrets {
		redactedDiff = redact.Secrets(redactedDiff)
	}
	if strings.TrimSpace(redactedDiff) == "" {
		return emptyReport(g, startTime), &CompareResult{Unique: map[string][]Finding{}}, nil
	}

	parsed, err := diff.Parse(redactedDiff, g.Repo.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing diff: %w", err)
	}

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, err
	}

	prompt := BuildReviewPrompt(parsed, cfg, rules)
	if len(prompt.UserPrompts) == 0 {
		return emptyReport(g, startTime), &CompareResult{Unique: map[string][]Finding{}}, nil
	}

	cr, err := RunCompare(ctx, prompt, models, cfg)
	if err != nil {
		return nil, nil, err
	}

	findings := ApplySeverityOverrides(cr.All, rules)
	SortFindings(findings)
	if cfg.MaxFindings > 0 && len(findings) > cfg.MaxFindings {
		findings = findings[:cfg.MaxFindings]
	}

	report := &Report{
		Tool:    "facet",
		Version: "1.0",
		RunID:   generateRunID(),
		Repo: RepoInfo{
			Root:   g.Repo.Root,
			Head:   g.Repo.Head,
			Branch: g.Repo.Branch,
		},
		Inputs: InputInfo{
			Mode:  g.Mode,
			Range: g.Range,
		},
		Summary:  ComputeSummary(findings),
		Findings: findings,
		Timing: Timing{
			GitMs:   g.GitMs,
			LLMMs:   cr.LLMMs,
			TotalMs: time.Since(startTime).Milliseconds(),
		},
	}
	return report, cr, nil
}

// RunCompare reviews the same assembled prompt independently across multiple
// provider:model pairs and merges findings into consensus and per-model sets.
func RunCompare(ctx context.Context, prompt *ReviewPrompt, models []string, cfg config.Config) (*CompareResult, error) {
	userPrompt, err := UserContent(prompt.UserPrompts, cfg.MaxFindings, cfg.FailOn)
	if err != nil {
		return nil, err
	}

	results := make([]compareModelResult, len(models))
	var wg sync.WaitGroup
	var totalLLMMs int64
	var mu sync.Mutex

	for i, modelSpec := range models {
		wg.Add(1)
		go func(i int, spec string) {
			defer wg.Done()

			providerName, modelName, err := parseModelSpec(spec)
			if err != nil {
				results[i] = compareModelResult{label: spec, err: err}
				return
			}

			provider, err := providers.New(providerName, modelName)
			if err != nil {
				results[i] = compareModelResult{label: spec, err: fmt.Errorf("%s: %w", spec, err)}
				return
			}

			llmStart := time.Now()
			findings, _, err := reviewOnce(ctx, provider, prompt.System, userPrompt)
			elapsed := time.Since(llmStart).Milliseconds()

			mu.Lock()
			totalLLMMs += elapsed
			mu.Unlock()

			if err != nil {
				results[i] = compareModelResult{label: spec, err: fmt.Errorf("%s: %w", spec, err)}
				return
			}

			results[i] = compareModelResult{label: spec, findings: findings}
		}(i, modelSpec)
	}

	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}

	return mergeResults(results, totalLLMMs), nil
}

func mergeResults(results []compareModelResult, totalLLMMs int64) *CompareResult {
	cr := &CompareResult{
		Unique: make(map[string][]Finding),
		LLMMs:  totalLLMMs,
	}

	if len(results) == 0 {
		return cr
	}

	// A finding is "consensus" if it appears in >=2 models by fuzzy match.
	type matchKey struct {
		modelIdx   int
		findingIdx int
	}
	matchCounts := make(map[matchKey]int)

	for i := 0; i < len(results); i++ {
		for fi, f := range results[i].findings {
			key := matchKey{i, fi}
			for j := i + 1; j < len(results); j++ {
				for gj, g := range results[j].findings {
					if fuzzyMatch(f, g) {
						matchCounts[key]++
						matchCounts[matchKey{j, gj}]++
						break
					}
				}
			}
		}
	}

	// Classify findings. Near-duplicate consensus entries from different
	// models collapse on path+startLine+category.
	type dedupKey struct {
		path      string
		startLine int
		category  Category
	}
	consensusSeen := make(map[dedupKey]bool)
	for i, r := range results {
		for fi, f := range r.findings {
			key := matchKey{i, fi}
			if matchCounts[key] > 0 {
				dk := dedupKey{findingPath(f), findingStartLine(f), f.Category}
				if !consensusSeen[dk] {
					consensusSeen[dk] = true
					cr.Consensus = append(cr.Consensus, f)
					cr.All = append(cr.All, f)
				}
			} else {
				cr.Unique[r.label] = append(cr.Unique[r.label], f)
				cr.All = append(cr.All, f)
			}
		}
	}

	return cr
}

// fuzzyMatch determines if two findings are similar enough to be considered the same.
func fuzzyMatch(a, b Finding) bool {
	if findingPath(a) != findingPath(b) {
		return false
	}

	if !linesOverlap(a, b) {
		return false
	}

	// Title similarity (case-insensitive substring or >50% word overlap)
	if titleSimilar(a.Title, b.Title) {
		return true
	}

	// Same category + overlapping lines + at least one shared title word
	if a.Category == b.Category && anyTitleWordOverlap(a.Title, b.Title) {
		return true
	}

	return false
}

// anyTitleWordOverlap returns true if titles share at least one word.
func anyTitleWordOverlap(a, b string) bool {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}
	for _, w := range wordsA {
		if setB[w] {
			return true
		}
	}
	return false
}

func linesOverlap(a, b Finding) bool {
	la := findingLines(a)
	lb := findingLines(b)
	return la.Start <= lb.End && lb.Start <= la.End
}

func findingLines(f Finding) Span {
	if len(f.Locations) > 0 {
		return f.Locations[0].Lines
	}
	return Span{}
}

func titleSimilar(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return true
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	// Word overlap: >50% of words in common
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	setB := make(map[string]bool)
	for _, w := range wordsB {
		setB[w] = true
	}

	overlap := 0
	for _, w := range wordsA {
		if setB[w] {
			overlap++
		}
	}

	minLen := len(wordsA)
	if len(wordsB) < minLen {
		minLen = len(wordsB)
	}

	return float64(overlap)/float64(minLen) > 0.5
}

func parseModelSpec(spec string) (string, string, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model spec %q: expected provider:model", spec)
	}
	return parts[0], parts[1], nil
}
