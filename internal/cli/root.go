package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/facet/internal/config"
)

const version = "0.1.0"

// Exit codes are stable so CI gates and git hooks can branch on them.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitRuntimeError = 4
)

// Global flags available on every subcommand.
var (
	flagConfigFile string
	flagVerbose    bool
	flagProvider   string
	flagModel      string
	flagFormat     string
	flagOut        string
	flagNoCache    bool
	flagRules      string
)

var rootCmd = &cobra.Command{
	Use:   "facet",
	Short: "Local AI code review CLI",
	Long:  "Facet reviews code changes using LLM providers and emits findings with deterministic exit codes.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		config.SetConfigFile(flagConfigFile)
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, gemini, ollama)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model name")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	rootCmd.PersistentFlags().StringVarP(&flagOut, "output", "o", "", "Write report to file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the review cache")
	rootCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "Path to custom rules file")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print facet version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "facet version %s\n", version)
	},
}
