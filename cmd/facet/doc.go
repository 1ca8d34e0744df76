// Facet is a local-first CLI for reviewing code changes with LLM providers.
//
// It reviews unstaged, staged, commit, range, and pull request diffs,
// extracting focused code context around each change and emitting structured
// findings with deterministic exit codes suitable for CI gating and git
// hooks.
//
// Usage:
//
//	facet review unstaged             # review working tree changes
//	facet review staged               # review staged changes
//	facet review commit <sha>         # review changes from a commit to HEAD
//	facet review range origin/main..HEAD  # review a revision range
//	facet review pr owner/repo#42     # review a GitHub pull request
//
// See https://github.com/dshills/facet for full documentation.
package main
