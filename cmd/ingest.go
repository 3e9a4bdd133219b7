package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/app"
	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/corpus"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Build the corpus from a directory of documents",
	Long: `Ingest walks a directory, splits every supported text file into
overlapping chunks, embeds them, and writes them to the corpus store.

The embedding configuration (provider, model, dimension) is recorded with
the index; serving refuses to start against an index built with a
different embedder.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, dir string) error {
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

	// Record the embedding identity before indexing anything.
	if err := a.Corpus.WriteEmbeddingConfig(ctx, corpus.EmbeddingConfig{
		Provider:  cfg.Provider,
		Model:     cfg.EmbedderModel,
		Dimension: cfg.EmbeddingDim,
	}); err != nil {
		return err
	}

	splitter := corpus.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	ingester := corpus.NewIngester(a.Corpus, splitter, logger)

	result, err := ingester.IngestDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d files (%d chunks, %d skipped) in %s\n",
		result.FilesAdded, result.ChunksAdded, result.FilesSkipped, result.Duration.Round(time.Millisecond))

	return nil
}
