// Package review contains the core types and engine for LLM-based code review.
//
// It defines the Finding, Report, and Severity types, assembles per-file
// prompt units from parsed diff hunks and extracted file context, parses and
// validates JSON responses from LLM providers, and generates stable finding
// IDs as SHA-256 hashes of path, title, and line context.
//
// Each reviewed file becomes one UserPrompt unit carrying its context (full
// content, syntax-tree extracted blocks, or text-heuristic fallback blocks)
// and its formatted hunks. When a provider rejects a request for exceeding
// its context window, SplitUserPrompts partitions the units into
// token-balanced chunks using the provider-reported token figures, and the
// chunks are reviewed sequentially; results are deduplicated, sorted, and
// merged into a single report.
//
// Compare mode (compare.go) runs the same prompt against multiple
// provider/model pairs concurrently and classifies findings as consensus or
// model-unique using fuzzy title matching.
//
// Rules packs (rules.go) allow callers to override finding severities,
// specify focus areas, and declare required checks that must appear in every
// review.
package review
