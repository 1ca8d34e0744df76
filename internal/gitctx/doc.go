// Package gitctx acquires diffs and repository metadata from git.
//
// The four local modes (unstaged, staged, commit, range) shell out to
// git diff with a five-line context width by default; [FromDiff] wraps diff
// text fetched elsewhere, such as a pull request diff. Results carry the
// changed-file list, repository metadata, and acquisition time, filtered by
// include/exclude glob patterns and truncated to a configurable maximum byte
// size.
package gitctx
