package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/facet/internal/config"
	"github.com/dshills/facet/internal/github"
	"github.com/dshills/facet/internal/gitctx"
	"github.com/dshills/facet/internal/output"
	"github.com/dshills/facet/internal/providers"
	"github.com/dshills/facet/internal/review"
)

// Shared review flags
var (
	flagRepoPath     string
	flagPaths        string
	flagExclude      string
	flagContextLines int
	flagMaxDiffBytes int
	flagCompare      string
	flagFailOn       string
	flagMaxFindings  int
	flagNoRedact     bool
	flagMergeBase    bool
	flagPRDryRun     bool
	flagPRInline     bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagMaxFindings > 0 {
		m["maxFindings"] = fmt.Sprintf("%d", flagMaxFindings)
	}
	if flagContextLines > 0 {
		m["contextLines"] = fmt.Sprintf("%d", flagContextLines)
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = fmt.Sprintf("%d", flagMaxDiffBytes)
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagCompare != "" {
		m["compare"] = flagCompare
	}
	return m
}

func buildDiffOpts(cfg config.Config) gitctx.DiffOptions {
	opts := gitctx.DiffOptions{
		ContextLines: cfg.ContextLines,
		MaxDiffBytes: cfg.MaxDiffBytes,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// reviewSetup resolves repository metadata and the effective config for a
// review run. A false return means exitCode is already set.
func reviewSetup() (gitctx.RepoMeta, config.Config, bool) {
	meta, err := gitctx.GetRepoMeta(flagRepoPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return gitctx.RepoMeta{}, config.Config{}, false
	}
	cfg, err := config.Load(meta.Root, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitConfigError
		return gitctx.RepoMeta{}, config.Config{}, false
	}
	if flagNoCache {
		cfg.Cache.Enabled = false
	}
	return meta, cfg, true
}

// runReview executes the review over a collected diff, writes the report, and
// applies the fail-on threshold. Returns nil when the run failed; exitCode is
// set accordingly.
func runReview(g gitctx.DiffResult, cfg config.Config) *review.Report {
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	// Determine compare models from flag or config
	var compareModels []string
	if flagCompare != "" {
		compareModels = splitComma(flagCompare)
	} else if len(cfg.Compare) > 0 {
		compareModels = cfg.Compare
	}

	ctx := context.Background()

	var report *review.Report
	var err error

	if len(compareModels) >= 2 {
		var cr *review.CompareResult
		report, cr, err = review.RunCompareReport(ctx, g, cfg, compareModels)
		if err == nil {
			fmt.Fprintf(os.Stderr, "Compare mode: %d models, %d consensus findings, %d total\n",
				len(compareModels), len(cr.Consensus), len(cr.All))
			for label, unique := range cr.Unique {
				if len(unique) > 0 {
					fmt.Fprintf(os.Stderr, "  %s: %d unique findings\n", label, len(unique))
				}
			}
		}
	} else {
		report, err = review.Run(ctx, g, cfg)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if providers.IsAuthError(err) {
			exitCode = ExitConfigError
		} else {
			exitCode = ExitRuntimeError
		}
		return nil
	}

	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	// Check fail-on threshold
	if cfg.FailOn != "none" && cfg.FailOn != "" {
		for _, f := range report.Findings {
			if review.MeetsThreshold(f.Severity, cfg.FailOn) {
				exitCode = ExitFindings
				break
			}
		}
	}

	return report
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes",
	Long:  "Review code changes using an LLM provider. Use subcommands to specify what to review.",
}

var reviewUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Review unstaged changes (working tree vs index)",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, cfg, ok := reviewSetup()
		if !ok {
			return nil
		}
		g, err := gitctx.Unstaged(meta.Root, buildDiffOpts(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		runReview(g, cfg)
		return nil
	},
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, cfg, ok := reviewSetup()
		if !ok {
			return nil
		}
		g, err := gitctx.Staged(meta.Root, buildDiffOpts(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		runReview(g, cfg)
		return nil
	},
}

var reviewCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Review changes from a commit to HEAD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, cfg, ok := reviewSetup()
		if !ok {
			return nil
		}
		g, err := gitctx.Commit(meta.Root, args[0], buildDiffOpts(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		runReview(g, cfg)
		return nil
	},
}

var reviewRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Review a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, cfg, ok := reviewSetup()
		if !ok {
			return nil
		}
		g, err := gitctx.Range(meta.Root, args[0], flagMergeBase, buildDiffOpts(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		runReview(g, cfg)
		return nil
	},
}

var reviewPRCmd = &cobra.Command{
	Use:   "pr <ref>",
	Short: "Review a GitHub pull request",
	Long: "Fetch a pull request diff from GitHub and review it. The reference may be\n" +
		"owner/repo#number, or a bare number when run inside a clone with an origin remote.\n" +
		"Unless --dry-run is given, the report is posted as a PR comment, updating any\n" +
		"previous one in place.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runPRReview(args[0])
		return nil
	},
}

func runPRReview(ref string) {
	owner, repo, num, err := github.ParsePRRef(ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	if owner == "" {
		owner, repo, err = github.DetectRepo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v (specify the pull request as owner/repo#number)\n", err)
			exitCode = ExitUsageError
			return
		}
	}

	// The project overlay comes from the local clone when there is one.
	var root string
	if meta, err := gitctx.GetRepoMeta(flagRepoPath); err == nil {
		root = meta.Root
	}
	cfg, err := config.Load(root, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitConfigError
		return
	}
	if flagNoCache {
		cfg.Cache.Enabled = false
	}

	client, err := github.NewClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitConfigError
		return
	}

	ctx := context.Background()
	fmt.Fprintf(os.Stderr, "Fetching PR #%d from %s/%s...\n", num, owner, repo)
	rawDiff, err := client.GetPRDiff(ctx, owner, repo, num)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if strings.TrimSpace(rawDiff) == "" {
		fmt.Fprintln(os.Stderr, "PR has no diff; nothing to review.")
		return
	}

	g := gitctx.FromDiff(rawDiff, gitctx.ModePR, fmt.Sprintf("%s/%s#%d", owner, repo, num))
	if files, err := client.GetPRFiles(ctx, owner, repo, num); err == nil && len(files) > 0 {
		g.Files = files
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not list PR files: %v\n", err)
	}

	report := runReview(g, cfg)
	if report == nil || flagPRDryRun {
		return
	}

	var buf bytes.Buffer
	mw := &output.MarkdownWriter{}
	if err := mw.Write(&buf, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering summary: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if err := client.UpsertComment(ctx, owner, repo, num, buf.String()); err != nil {
		fmt.Fprintf(os.Stderr, "Error posting comment: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	fmt.Fprintf(os.Stderr, "Posted review summary to %s/%s#%d\n", owner, repo, num)

	if flagPRInline {
		diffFiles := make(map[string]bool, len(g.Files))
		for _, f := range g.Files {
			diffFiles[f] = true
		}
		ghReview := github.BuildGitHubReview(report.Findings, diffFiles)
		if err := client.PostReview(ctx, owner, repo, num, ghReview); err != nil {
			fmt.Fprintf(os.Stderr, "Error posting inline comments: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
		fmt.Fprintf(os.Stderr, "Posted %d inline comments\n", len(ghReview.Comments))
	}
}

func init() {
	reviewCmd.AddCommand(reviewUnstagedCmd)
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewCommitCmd)
	reviewCmd.AddCommand(reviewRangeCmd)
	reviewCmd.AddCommand(reviewPRCmd)

	// Shared flags inherited by every review subcommand
	pf := reviewCmd.PersistentFlags()
	pf.StringVar(&flagRepoPath, "repo-path", "", "Repository path (default: current directory)")
	pf.StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	pf.StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	pf.IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	pf.IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	pf.StringVar(&flagCompare, "compare", "", "Compare mode: comma-separated provider:model pairs")
	pf.StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, low, medium, high)")
	pf.IntVar(&flagMaxFindings, "max-findings", 0, "Maximum number of findings")
	pf.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")

	// Range-specific flags
	reviewRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")

	// PR-specific flags
	reviewPRCmd.Flags().BoolVar(&flagPRDryRun, "dry-run", false, "Review locally without posting to GitHub")
	reviewPRCmd.Flags().BoolVar(&flagPRInline, "inline", false, "Also post inline comments on changed lines")
}
