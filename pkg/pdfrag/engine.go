package pdfrag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perbu/pdfrag/pkg/logutil"
)

// DefaultTopK is the number of results QueryIndex returns.
const DefaultTopK = 3

// QueryEmbedder embeds query text. It must be the same provider, with the
// same dimensionality, that was used to build the index.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelInfo() string
}

// Engine answers free-text queries against an index.
type Engine struct {
	index    *Index
	embedder QueryEmbedder
}

// NewEngine creates an engine over index using emb for query embeddings.
func NewEngine(index *Index, emb QueryEmbedder) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index is nil", ErrConfiguration)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is nil", ErrConfiguration)
	}
	return &Engine{index: index, embedder: emb}, nil
}

// Index returns the underlying index.
func (e *Engine) Index() *Index {
	return e.index
}

// QueryIndex returns the DefaultTopK chunks closest to question.
func (e *Engine) QueryIndex(ctx context.Context, question string) ([]Result, error) {
	return e.Query(ctx, question, DefaultTopK)
}

// Query embeds text and returns at most k results ordered by distance.
// An empty result means nothing relevant was found.
func (e *Engine) Query(ctx context.Context, text string, k int) ([]Result, error) {
	logger := logutil.GetLogger(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	if e.index.Len() == 0 {
		logger.Debug("query against empty index", zap.String("query", text))
		return []Result{}, nil
	}

	if model := e.embedder.ModelInfo(); e.index.ModelInfo != "" && model != e.index.ModelInfo {
		logger.Warn("query embedder differs from index model",
			zap.String("index_model", e.index.ModelInfo),
			zap.String("query_model", model))
	}

	start := time.Now()
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %w", ErrEmbeddingProvider, err)
	}

	results, err := e.index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	logger.Debug("query answered",
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}
