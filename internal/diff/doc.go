// Package diff parses unified git diff output into structured per-file,
// per-hunk records with accurate line-range tracking.
//
// [Parse] splits the raw text at diff --git boundaries, extracts the
// post-change filename from each header, and splits file bodies at @@
// boundaries into [Hunk] values. Hunk headers yield original and modified
// start lines and line counts; a malformed header degrades to zeros rather
// than failing the parse. Each hunk can report the [LineRange] of lines it
// actually changes on the modified side, computed by replaying context,
// added, and deleted lines from the hunk body.
//
// File content is read best-effort from the repository: deleted files get a
// sentinel, unreadable files get a descriptive placeholder, and parsing
// always continues past per-file problems. Only empty or non-diff input
// fails, with errors wrapping [ErrEmptyDiff] or [ErrNoFileSections].
package diff
