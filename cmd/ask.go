package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/app"
	"github.com/ragline/ragline/internal/config"
)

var flagThreadID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the terminal",
	Long: `Ask runs one question through the answer pipeline and prints the result.

Pass --thread to continue an existing conversation; without it each
invocation starts a fresh thread.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, args)
	},
}

func init() {
	askCmd.Flags().StringVar(&flagThreadID, "thread", "", "thread id to continue (default: new thread)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	threadID := flagThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}

	question := strings.Join(args, " ")
	turn, err := a.Pipeline.Ask(ctx, threadID, question)
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, turn.Answer)
	fmt.Fprintf(out, "\n(thread %s, %d context chunks)\n", turn.ThreadID, len(turn.Context))
	if turn.StandaloneQuestion != turn.Question {
		fmt.Fprintf(out, "(interpreted as: %s)\n", turn.StandaloneQuestion)
	}

	return nil
}
