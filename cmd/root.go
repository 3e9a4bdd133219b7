// Package cmd contains the ragline CLI: serve, ask, ingest, and version.
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/log"
)

var (
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "Conversational question answering over a document corpus",
	Long: `ragline answers natural-language questions about an ingested document
corpus, keeping per-thread conversational context so follow-up questions
resolve against earlier turns.

Build the corpus once with "ragline ingest", then serve queries over HTTP
with "ragline serve" or one-shot from the terminal with "ragline ask".`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	// Load .env before anything reads the environment; a missing file is
	// not an error.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON")
}

// buildLogger creates the process logger from the persistent flags.
func buildLogger() (log.Logger, error) {
	var level slog.Level
	switch strings.ToLower(flagLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", flagLogLevel)
	}

	return log.New(log.Config{Level: level, JSON: flagLogJSON}), nil
}
