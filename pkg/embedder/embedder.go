package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/perbu/pdfrag/pkg/config"
	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// Embedder interface for generating embeddings
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// New builds the embedder selected by cfg. Missing credentials are reported
// as pdfrag.ErrConfiguration before any request is made.
func New(ctx context.Context, cfg config.EmbedderConfig) (Embedder, error) {
	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		emb, err = NewOpenAIEmbedder(OpenAIConfig{
			Model:      cfg.Model,
			APIKeyEnv:  cfg.APIKeyEnv,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case config.ProviderGemini:
		emb, err = NewGeminiEmbedder(ctx, GeminiConfig{
			Model:      cfg.Model,
			APIKeyEnv:  cfg.APIKeyEnv,
			Dimensions: cfg.Dimensions,
		})
	case config.ProviderSimple:
		emb = NewSimpleEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", pdfrag.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithCache(emb, cfg.CacheSize, cfg.CacheTTL), nil
}

// SimpleEmbedder is a deterministic, offline embedder using feature hashing
// over lowercase words. It needs no credentials and suits tests and demos.
type SimpleEmbedder struct {
	dim int
}

// NewSimpleEmbedder creates a hashing embedder. Non-positive dimensions default to 256.
func NewSimpleEmbedder(dimension int) *SimpleEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &SimpleEmbedder{dim: dimension}
}

// Embed generates a unit-length embedding vector from text
func (e *SimpleEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		sum := sha256.Sum256([]byte(word))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(e.dim)
		sign := float32(1)
		if sum[4]&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}
	l2normalize(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *SimpleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *SimpleEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *SimpleEmbedder) ModelInfo() string {
	return fmt.Sprintf("simple-hash-%d", e.dim)
}
