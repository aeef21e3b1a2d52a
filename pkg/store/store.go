// Package store builds a similarity index from chunks on first use and loads
// the persisted copy on every later run.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perbu/pdfrag/pkg/embedder"
	"github.com/perbu/pdfrag/pkg/logutil"
	"github.com/perbu/pdfrag/pkg/pdfrag"
)

const (
	// DefaultBatchSize is the number of chunks sent per EmbedBatch call.
	DefaultBatchSize = 64
	// DefaultConcurrency is the number of batches embedded in parallel.
	DefaultConcurrency = 4
	// DefaultLockTimeout bounds the wait for another process building the same index.
	DefaultLockTimeout = 30 * time.Second

	lockRetryDelay = 50 * time.Millisecond
)

// Options tune how an index is built.
type Options struct {
	Metric      pdfrag.Metric // distance metric recorded in new indexes
	BatchSize   int           // chunks per EmbedBatch call
	Concurrency int           // batches in flight
	LockTimeout time.Duration // how long to wait for another builder
}

// Store builds or loads persisted indexes.
type Store struct {
	opts Options
}

// New returns a Store, filling zero options with defaults.
func New(opts Options) *Store {
	if opts.Metric == "" {
		opts.Metric = pdfrag.MetricL2
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	return &Store{opts: opts}
}

// ChunkSource produces the chunks to embed. It is only called when the index
// has to be built.
type ChunkSource func(ctx context.Context) ([]pdfrag.Chunk, error)

// BuildOrLoad returns the index persisted at indexPath. When no file exists
// it embeds chunks, writes the index and returns it. An existing file is
// never rebuilt: chunks are ignored and no embedding calls are made, even if
// the file cannot be read.
func (s *Store) BuildOrLoad(ctx context.Context, indexPath string, chunks []pdfrag.Chunk, emb embedder.Embedder) (*pdfrag.Index, error) {
	return s.BuildOrLoadFrom(ctx, indexPath, func(context.Context) ([]pdfrag.Chunk, error) {
		return chunks, nil
	}, emb)
}

// BuildOrLoadFrom is BuildOrLoad with chunks produced on demand. src runs
// while the index lock is held, so the existence check and the build see
// the same state of indexPath.
func (s *Store) BuildOrLoadFrom(ctx context.Context, indexPath string, src ChunkSource, emb embedder.Embedder) (*pdfrag.Index, error) {
	if indexPath == "" {
		return nil, fmt.Errorf("%w: index path is empty", pdfrag.ErrConfiguration)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is nil", pdfrag.ErrConfiguration)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: chunk source is nil", pdfrag.ErrConfiguration)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("index_path", indexPath))

	unlock, err := s.lock(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, err = os.Stat(indexPath)
	switch {
	case err == nil:
		return s.load(ctx, indexPath, logger)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: stat %s: %w", pdfrag.ErrIndexLoad, indexPath, err)
	}

	chunks, err := src(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("index not found, building", zap.Int("chunks", len(chunks)))
	start := time.Now()
	idx, err := s.build(ctx, chunks, emb, logger)
	if err != nil {
		return nil, err
	}
	if err := Save(indexPath, idx); err != nil {
		return nil, err
	}
	logger.Info("index built",
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension),
		zap.String("metric", string(idx.Metric)),
		zap.Duration("duration", time.Since(start)))
	return idx, nil
}

func (s *Store) load(ctx context.Context, indexPath string, logger *zap.Logger) (*pdfrag.Index, error) {
	start := time.Now()
	idx, err := Load(indexPath)
	if err != nil {
		return nil, err
	}
	if idx.Metric != s.opts.Metric {
		logger.Warn("index metric differs from configuration, using the index metric",
			zap.String("index_metric", string(idx.Metric)),
			zap.String("configured_metric", string(s.opts.Metric)))
	}
	logger.Info("index loaded",
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension),
		zap.Duration("duration", time.Since(start)))
	return idx, nil
}

func (s *Store) build(ctx context.Context, chunks []pdfrag.Chunk, emb embedder.Embedder, logger *zap.Logger) (*pdfrag.Index, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			vecs, err := emb.EmbedBatch(gctx, texts)
			if err != nil {
				if errors.Is(err, pdfrag.ErrConfiguration) {
					return err
				}
				return fmt.Errorf("%w: embed chunks %d-%d: %w", pdfrag.ErrEmbeddingProvider, start, end-1, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: provider returned %d vectors for %d chunks", pdfrag.ErrConfiguration, len(vecs), len(texts))
			}
			copy(vectors[start:end], vecs)
			logger.Debug("batch embedded", zap.Int("batch", start/s.opts.BatchSize), zap.Int("size", len(texts)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := emb.Dimension()
	if len(vectors) > 0 && dim <= 0 {
		dim = len(vectors[0])
	}
	idx := &pdfrag.Index{
		Chunks:     chunks,
		Embeddings: vectors,
		Dimension:  dim,
		Metric:     s.opts.Metric,
		ModelInfo:  emb.ModelInfo(),
	}
	if idx.Chunks == nil {
		idx.Chunks = []pdfrag.Chunk{}
		idx.Embeddings = [][]float32{}
	}
	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", pdfrag.ErrConfiguration, err)
	}
	return idx, nil
}

// lock takes the advisory lock guarding indexPath, waiting up to the lock timeout.
func (s *Store) lock(ctx context.Context, indexPath string) (func(), error) {
	if dir := filepath.Dir(indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	fl := flock.New(indexPath + ".lock")
	lctx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}
