package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Indexer is the storage capability consumed by the Ingester. Both Store and
// MemoryStore satisfy it.
type Indexer interface {
	Index(ctx context.Context, chunks []Chunk) error
}

// defaultExtensions are the plain-text formats the ingester accepts.
var defaultExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".html": true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// maxFileSize guards against accidentally ingesting binaries or huge dumps.
const maxFileSize = 10 << 20 // 10 MiB

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	FilesAdded   int
	FilesSkipped int
	ChunksAdded  int
	Duration     time.Duration
}

// Ingester loads source documents from disk, splits them, and indexes the
// resulting chunks. This is the one-time build step, not the serving path.
type Ingester struct {
	store    Indexer
	splitter *Splitter
	logger   *slog.Logger
}

// NewIngester creates an Ingester. A nil logger falls back to slog.Default().
func NewIngester(store Indexer, splitter *Splitter, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: store, splitter: splitter, logger: logger}
}

// IngestDirectory walks dir recursively and ingests every supported file.
// Unsupported and oversized files are skipped, not errors; a read failure on
// a supported file aborts the run.
func (ing *Ingester) IngestDirectory(ctx context.Context, dir string) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !defaultExtensions[ext] {
			result.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > maxFileSize {
			ing.logger.Warn("skipping oversized file", "path", path, "size", info.Size())
			result.FilesSkipped++
			return nil
		}

		added, err := ing.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		result.FilesAdded++
		result.ChunksAdded += added
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	ing.logger.Info("ingestion complete",
		"files", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"chunks", result.ChunksAdded,
		"duration", result.Duration,
	)
	return result, nil
}

// IngestFile splits and indexes a single file, returning the chunk count.
// The document id is the absolute file path.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", absPath, err)
	}

	chunks := ing.splitter.Split(absPath, string(content))
	for i := range chunks {
		chunks[i].Metadata = map[string]string{
			"file_name":  filepath.Base(absPath),
			"indexed_at": time.Now().Format(time.RFC3339),
		}
	}

	if err := ing.store.Index(ctx, chunks); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", absPath, err)
	}

	ing.logger.Debug("ingested file", "path", absPath, "chunks", len(chunks))
	return len(chunks), nil
}
