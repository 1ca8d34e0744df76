package review

import (
	"log/slog"
	"math"
	"sort"
)

// safeTokenMargin is the fraction of a provider's context window the
// splitter treats as usable; the remainder absorbs estimation error.
const safeTokenMargin = 0.8

// hunkSizeEstimate approximates one formatted hunk's contribution to a
// unit's size when balancing chunks.
const hunkSizeEstimate = 500

// SplitUserPrompts partitions prompt units into token-balanced chunks after
// a provider rejects a request for exceeding its context window.
// actualTokens and maxTokens come from the provider's error; 0 means the
// figure was not reported. The result is a disjoint exhaustive partition;
// chunks can be empty only when there are fewer units than chunks.
func SplitUserPrompts(units []*UserPrompt, actualTokens, maxTokens int) [][]*UserPrompt {
	if len(units) == 0 {
		return nil
	}

	count := splitCount(actualTokens, maxTokens)
	slog.Debug("splitting prompt units",
		"units", len(units), "chunks", count,
		"actualTokens", actualTokens, "maxTokens", maxTokens)

	return distributeBySize(units, count)
}

// splitCount derives the number of chunks from reported token figures.
// Without both figures the split is an uninformed halving.
func splitCount(actualTokens, maxTokens int) int {
	if actualTokens <= 0 || maxTokens <= 0 {
		return 2
	}
	safeMax := float64(maxTokens) * safeTokenMargin
	if float64(actualTokens) <= safeMax {
		return 1
	}
	count := int(math.Ceil(float64(actualTokens) / safeMax))
	if count < 2 {
		count = 2
	}
	return count
}

// estimateSize is a fast relative size for one unit: context text length
// plus a flat per-hunk allowance.
func estimateSize(u *UserPrompt) int {
	return len(u.FileContext.Context) + len(u.FormattedHunks)*hunkSizeEstimate
}

// distributeBySize packs units into count chunks greedily: largest units
// first, each into the currently smallest chunk. Approximate balance only;
// units are never split.
func distributeBySize(units []*UserPrompt, count int) [][]*UserPrompt {
	type sizedUnit struct {
		unit *UserPrompt
		size int
	}

	sized := make([]sizedUnit, 0, len(units))
	for _, u := range units {
		sized = append(sized, sizedUnit{unit: u, size: estimateSize(u)})
	}
	sort.SliceStable(sized, func(i, j int) bool {
		return sized[i].size > sized[j].size
	})

	chunks := make([][]*UserPrompt, count)
	totals := make([]int, count)

	for _, s := range sized {
		smallest := 0
		for i := 1; i < count; i++ {
			if totals[i] < totals[smallest] {
				smallest = i
			}
		}
		chunks[smallest] = append(chunks[smallest], s.unit)
		totals[smallest] += s.size
	}

	return chunks
}

// applyOverlap duplicates the trailing overlap units of each chunk onto the
// front of the next so boundary files are reviewed with both neighbors.
// The review path always splits with zero overlap; this is an extension
// point kept for when cross-chunk context proves necessary.
func applyOverlap(chunks [][]*UserPrompt, overlap int) [][]*UserPrompt {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}

	result := make([][]*UserPrompt, 0, len(chunks))
	result = append(result, chunks[0])

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		carried := prev
		if len(prev) > overlap {
			carried = prev[len(prev)-overlap:]
		}
		merged := make([]*UserPrompt, 0, len(carried)+len(chunks[i]))
		merged = append(merged, carried...)
		merged = append(merged, chunks[i]...)
		result = append(result, merged)
	}

	return result
}
