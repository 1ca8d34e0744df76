package gitctx

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Diff acquisition modes. Mode strings appear verbatim in report output.
const (
	ModeUnstaged = "unstaged"
	ModeStaged   = "staged"
	ModeCommit   = "commit"
	ModeRange    = "range"
	ModePR       = "pr"
)

// defaultContextLines is the context width used when none is configured.
// Extraction downstream assumes at least this much surrounding context.
const defaultContextLines = 5

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	ContextLines int
	MaxDiffBytes int
	Include      []string
	Exclude      []string
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff  string
	Files []string
	Mode  string
	Range string
	Repo  RepoMeta
	GitMs int64
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata. An empty repo runs git in the
// current directory.
func GetRepoMeta(repo string) (RepoMeta, error) {
	root, err := gitOutput(repo, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(repo, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(repo, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of the working tree vs the index.
func Unstaged(repo string, opts DiffOptions) (DiffResult, error) {
	res, err := collect(repo, ModeUnstaged, "", nil, opts)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return res, nil
}

// Staged returns the diff of the index vs HEAD.
func Staged(repo string, opts DiffOptions) (DiffResult, error) {
	res, err := collect(repo, ModeStaged, "", []string{"--cached"}, opts)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return res, nil
}

// Commit returns the cumulative diff from a commit to HEAD.
func Commit(repo, sha string, opts DiffOptions) (DiffResult, error) {
	sha = strings.TrimSpace(sha)
	if sha == "" {
		return DiffResult{}, fmt.Errorf("commit required")
	}
	target := sha + "..HEAD"
	res, err := collect(repo, ModeCommit, target, []string{target}, opts)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", target, err)
	}
	return res, nil
}

// Range returns the combined diff for a revision range such as main..feature.
// With mergeBase, ".." is widened to "..." so the comparison starts at the
// common ancestor instead of the tip of the left side.
func Range(repo, revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	revRange = strings.TrimSpace(revRange)
	if revRange == "" {
		return DiffResult{}, fmt.Errorf("revision range required")
	}
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	res, err := collect(repo, ModeRange, revRange, []string{diffRange}, opts)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return res, nil
}

// FromDiff wraps diff text obtained outside git, such as a fetched pull
// request diff. The file list is scanned from the text itself.
func FromDiff(diff, mode, rangeStr string) DiffResult {
	return DiffResult{
		Diff:  diff,
		Files: extractFiles(diff),
		Mode:  mode,
		Range: rangeStr,
	}
}

// collect runs the diff and its matching --name-only listing, then applies
// the shared exclude and truncation handling.
func collect(repo, mode, rangeStr string, modeArgs []string, opts DiffOptions) (DiffResult, error) {
	start := time.Now()
	diff, err := gitOutput(repo, diffArgs(opts, modeArgs...)...)
	if err != nil {
		return DiffResult{}, err
	}
	files, ferr := changedFiles(repo, modeArgs, opts)
	if ferr != nil {
		files = extractFiles(diff)
	}
	return buildResult(repo, diff, mode, rangeStr, files, opts, start), nil
}

// diffArgs assembles the git diff argument list: context width, then the
// mode-specific arguments, then the path filters after "--".
func diffArgs(opts DiffOptions, modeArgs ...string) []string {
	n := opts.ContextLines
	if n <= 0 {
		n = defaultContextLines
	}
	args := []string{"diff", fmt.Sprintf("--unified=%d", n)}
	args = append(args, modeArgs...)
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

// changedFiles lists the changed paths for the same mode arguments the diff
// was produced with.
func changedFiles(repo string, modeArgs []string, opts DiffOptions) ([]string, error) {
	args := []string{"diff", "--name-only"}
	args = append(args, modeArgs...)
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	out, err := gitOutput(repo, args...)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func buildResult(repo, diff, mode, rangeStr string, files []string, opts DiffOptions, start time.Time) DiffResult {
	meta, err := GetRepoMeta(repo)
	if err != nil {
		meta = RepoMeta{}
	}

	// Filter excludes before truncating so excluded files don't consume the byte budget
	if len(opts.Exclude) > 0 {
		diff = filterExcluded(diff, opts.Exclude)
		files = filterFileList(files, opts.Exclude)
	}

	if opts.MaxDiffBytes > 0 && len(diff) > opts.MaxDiffBytes {
		diff = diff[:opts.MaxDiffBytes] + "\n... (diff truncated at max-diff-bytes limit)\n"
	}

	return DiffResult{
		Diff:  diff,
		Files: files,
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
		GitMs: time.Since(start).Milliseconds(),
	}
}

func extractFiles(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			f := strings.TrimPrefix(line, "+++ b/")
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

func filterExcluded(diff string, excludes []string) string {
	sections := splitDiffSections(diff)
	var kept []string
	for _, section := range sections {
		path := extractPathFromSection(section)
		if path == "" || !MatchesAny(path, excludes) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	var sections []string
	lines := strings.Split(diff, "\n")
	var current strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func extractPathFromSection(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
	}
	return ""
}

func filterFileList(files []string, excludes []string) []string {
	var result []string
	for _, f := range files {
		if !MatchesAny(f, excludes) {
			result = append(result, f)
		}
	}
	return result
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// gitOutput runs git with the given arguments, in repo when non-empty,
// surfacing trimmed stderr on failure.
func gitOutput(repo string, args ...string) (string, error) {
	if repo != "" {
		args = append([]string{"-C", repo}, args...)
	}
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
