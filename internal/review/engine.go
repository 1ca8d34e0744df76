package review

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/facet/internal/cache"
	"github.com/dshills/facet/internal/config"
	"github.com/dshills/facet/internal/diff"
	"github.com/dshills/facet/internal/gitctx"
	"github.com/dshills/facet/internal/providers"
	"github.com/dshills/facet/internal/redact"
)

// maxResponseTokens caps the provider's response size per call.
const maxResponseTokens = 8192

// rawFinding is the JSON structure returned by the LLM.
type rawFinding struct {
	Severity   string   `json:"severity"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
	Confidence float64  `json:"confidence"`
	Path       string   `json:"path"`
	StartLine  int      `json:"startLine"`
	EndLine    int      `json:"endLine"`
	Tags       []string `json:"tags"`
}

// Run executes a review using the given diff result and configuration: the
// diff is parsed into per-file prompt units, reviewed in a single provider
// call, and split into sequential multiturn calls when the provider rejects
// the request for exceeding its context window.
func Run(ctx context.Context, g gitctx.DiffResult, cfg config.Config) (*Report, error) {
	startTime := time.Now()

	redactedDiff := g.Diff
	if cfg.Privacy.RedactSecrets {
		redactedDiff = redact.Secrets(redactedDiff)
	}

	if strings.TrimSpace(redactedDiff) == "" {
		return emptyReport(g, startTime), nil
	}

	store, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		slog.Warn("cache unavailable, continuing without it", "error", err)
		store, _ = cache.New(false, "", 0)
	}
	cacheKey := cache.BuildCacheKey(cfg.Provider, cfg.Model, promptVersion, redactedDiff)
	if cached, ok := store.Get(cacheKey); ok {
		var report Report
		if err := json.Unmarshal([]byte(cached), &report); err == nil {
			slog.Debug("review served from cache", "runId", report.RunID)
			return &report, nil
		}
	}

	parsed, err := diff.Parse(redactedDiff, g.Repo.Root)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	prompt := BuildReviewPrompt(parsed, cfg, rules)
	if len(prompt.UserPrompts) == 0 {
		return emptyReport(g, startTime), nil
	}

	provider, err := providers.New(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	findings, llmMs, err := reviewPrompt(ctx, provider, prompt, cfg)
	if err != nil {
		return nil, err
	}

	findings = ApplySeverityOverrides(findings, rules)
	findings = DeduplicateFindings(findings)
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
			LLMMs:   llmMs,
			TotalMs: time.Since(startTime).Milliseconds(),
		},
	}

	if data, err := json.Marshal(report); err == nil {
		if err := store.Put(cacheKey, string(data)); err != nil {
			slog.Warn("caching review failed", "error", err)
		}
	}

	return report, nil
}

// reviewPrompt runs the single-shot review, falling back to split multiturn
// execution when the provider reports a context-window overflow.
func reviewPrompt(ctx context.Context, provider providers.Reviewer, prompt *ReviewPrompt, cfg config.Config) ([]Finding, int64, error) {
	userPrompt, err := UserContent(prompt.UserPrompts, cfg.MaxFindings, cfg.FailOn)
	if err != nil {
		return nil, 0, err
	}

	findings, llmMs, err := reviewOnce(ctx, provider, prompt.System, userPrompt)
	if err == nil {
		return findings, llmMs, nil
	}

	info, ok := providers.ContextLimitInfo(err)
	if !ok {
		return nil, llmMs, fmt.Errorf("provider review: %w", err)
	}

	slog.Info("context window exceeded, splitting review",
		"units", len(prompt.UserPrompts),
		"actualTokens", info.ActualTokens, "maxTokens", info.MaxTokens)

	chunks := SplitUserPrompts(prompt.UserPrompts, info.ActualTokens, info.MaxTokens)
	findings, multiturnMs, err := runMultiturn(ctx, provider, prompt.System, chunks, cfg)
	return findings, llmMs + multiturnMs, err
}

// reviewOnce performs one provider call over already-rendered prompts,
// including a single repair pass when the response fails to parse.
func reviewOnce(ctx context.Context, provider providers.Reviewer, system, user string) ([]Finding, int64, error) {
	llmStart := time.Now()

	resp, err := provider.Review(ctx, providers.ReviewRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    maxResponseTokens,
	})
	if err != nil {
		return nil, time.Since(llmStart).Milliseconds(), err
	}

	findings, perr := parseFindings(resp.Content)
	if perr != nil {
		repairPrompt := fmt.Sprintf(
			"Your previous response was not valid JSON. The error was: %s\n\nPlease fix it and respond with ONLY a valid JSON array of findings.\n\nYour previous response was:\n%s",
			perr.Error(), resp.Content,
		)
		resp2, err2 := provider.Review(ctx, providers.ReviewRequest{
			SystemPrompt: system,
			UserPrompt:   repairPrompt,
			MaxTokens:    maxResponseTokens,
		})
		if err2 != nil {
			return nil, time.Since(llmStart).Milliseconds(), fmt.Errorf("repair pass failed: %w (original error: %w)", err2, perr)
		}
		findings, perr = parseFindings(resp2.Content)
		if perr != nil {
			return nil, time.Since(llmStart).Milliseconds(), fmt.Errorf("response validation failed after repair: %w", perr)
		}
	}

	return findings, time.Since(llmStart).Milliseconds(), nil
}

func parseFindings(content string) ([]Finding, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			start := 1
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end = end - 1
			}
			content = strings.Join(lines[start:end], "\n")
		}
	}

	var raw []rawFinding
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}

	findings := make([]Finding, 0, len(raw))
	for _, r := range raw {
		f := Finding{
			Severity:   Severity(r.Severity),
			Category:   Category(r.Category),
			Title:      r.Title,
			Message:    r.Message,
			Suggestion: r.Suggestion,
			Confidence: r.Confidence,
			Tags:       r.Tags,
			Locations: []Location{
				{
					Path: r.Path,
					Lines: Span{
						Start: r.StartLine,
						End:   r.EndLine,
					},
				},
			},
		}
		f.ID = generateFindingID(f)
		findings = append(findings, f)
	}

	return findings, nil
}

func generateFindingID(f Finding) string {
	data := fmt.Sprintf("%s:%s:%d", findingPath(f), f.Title, findingStartLine(f))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h[:8])
}

func generateRunID() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return fmt.Sprintf("%x", h[:16])
}

func emptyReport(g gitctx.DiffResult, startTime time.Time) *Report {
	return &Report{
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
		Summary:  Summary{},
		Findings: []Finding{},
		Timing: Timing{
			GitMs:   g.GitMs,
			TotalMs: time.Since(startTime).Milliseconds(),
		},
	}
}
