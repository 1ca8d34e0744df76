package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/facet/internal/config"
	"github.com/dshills/facet/internal/providers"
	"github.com/google/uuid"
)

// runMultiturn reviews split prompt chunks sequentially, one provider call
// per chunk, and synthesizes the results. Sequential calls keep providers
// with strict concurrency limits usable; the shared turn id correlates the
// log lines of one split review. A failed chunk is logged and skipped; the
// run fails only when no chunk succeeds.
func runMultiturn(ctx context.Context, provider providers.Reviewer, system string, chunks [][]*UserPrompt, cfg config.Config) ([]Finding, int64, error) {
	turnID := uuid.NewString()
	slog.Info("starting multiturn review", "turn", turnID, "chunks", len(chunks))

	var all []Finding
	var totalLLMMs int64
	var firstErr error
	succeeded := 0

	for i, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}

		userPrompt, err := UserContent(chunk, cfg.MaxFindings, cfg.FailOn)
		if err != nil {
			return nil, totalLLMMs, err
		}

		findings, llmMs, err := reviewOnce(ctx, provider, system, userPrompt)
		totalLLMMs += llmMs
		if err != nil {
			slog.Warn("chunk review failed", "turn", turnID, "chunk", i, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d: %w", i, err)
			}
			continue
		}

		slog.Debug("chunk reviewed",
			"turn", turnID, "chunk", i, "files", len(chunk), "findings", len(findings))
		succeeded++
		all = append(all, findings...)
	}

	if succeeded == 0 && firstErr != nil {
		return nil, totalLLMMs, firstErr
	}

	all = DeduplicateFindings(all)
	SortFindings(all)

	slog.Info("multiturn review complete",
		"turn", turnID, "succeeded", succeeded, "findings", len(all))
	return all, totalLLMMs, nil
}
