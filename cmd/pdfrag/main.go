package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perbu/pdfrag/pkg/config"
	"github.com/perbu/pdfrag/pkg/embedder"
	"github.com/perbu/pdfrag/pkg/loader"
	"github.com/perbu/pdfrag/pkg/logutil"
	"github.com/perbu/pdfrag/pkg/pdfrag"
	"github.com/perbu/pdfrag/pkg/store"
)

func main() {
	// Load .env files if they exist (for API keys)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pdfrag",
		Short:         "Index a document and answer questions with the most relevant passages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (YAML)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("document", "", "document file or directory to index")
	pf.String("index", "", "index file (.gob, or .db/.sqlite for SQLite)")
	pf.String("metric", "", "distance metric for new indexes (l2, cosine)")
	pf.String("provider", "", "embedding provider (openai, gemini, simple)")

	root.AddCommand(newBuildCmd(), newQueryCmd(), newConfigCmd())
	return root
}

// setup loads configuration and returns a context carrying the logger.
func setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logutil.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logutil.WithLogger(ctx, logger), cfg, nil
}

// openIndex builds the embedder first so missing credentials fail before any
// document is read, then builds or loads the index. The document is only read
// when the store finds no index file.
func openIndex(ctx context.Context, cfg *config.Config) (*pdfrag.Index, embedder.Embedder, error) {
	emb, err := embedder.New(ctx, cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}

	metric, err := pdfrag.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(store.Options{
		Metric:      metric,
		BatchSize:   cfg.Embedder.BatchSize,
		Concurrency: cfg.Embedder.Concurrency,
	})
	idx, err := s.BuildOrLoadFrom(ctx, cfg.IndexPath, documentChunks(cfg), emb)
	if err != nil {
		return nil, nil, err
	}
	return idx, emb, nil
}

// documentChunks loads and chunks the configured document.
func documentChunks(cfg *config.Config) store.ChunkSource {
	return func(ctx context.Context) ([]pdfrag.Chunk, error) {
		docs, err := loader.LoadPath(ctx, cfg.DocumentPath)
		if err != nil {
			return nil, err
		}
		chunks, err := loader.Chunk(docs, cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Info("document chunked",
			zap.String("document", cfg.DocumentPath),
			zap.Int("documents", len(docs)),
			zap.Int("chunks", len(chunks)))
		return chunks, nil
	}
}
