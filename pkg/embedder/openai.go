package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	Model      string // defaults to text-embedding-3-small
	APIKeyEnv  string // environment variable holding the key, defaults to OPENAI_API_KEY
	BaseURL    string // optional OpenAI-compatible endpoint
	Dimensions int    // optional reduced dimensionality for text-embedding-3 models
}

// OpenAIEmbedder uses OpenAI API for embeddings
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dim        int
	dimensions int
}

// NewOpenAIEmbedder creates an OpenAI embedder
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s environment variable not set", pdfrag.ErrConfiguration, cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	// Set dimension based on model
	dim := 1536 // default for text-embedding-3-small and ada-002
	if cfg.Model == string(openai.LargeEmbedding3) {
		dim = 3072
	}
	if cfg.Dimensions > 0 {
		dim = cfg.Dimensions
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dim:        dim,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single API request
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if len(text) == 0 {
			return nil, fmt.Errorf("cannot embed empty text at position %d", i)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errNoEmbedding
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || out[item.Index] != nil {
			return nil, fmt.Errorf("OpenAI returned unexpected embedding index %d", item.Index)
		}
		if len(item.Embedding) != e.dim {
			return nil, fmt.Errorf("OpenAI returned dimension %d, expected %d", len(item.Embedding), e.dim)
		}
		v := make([]float32, len(item.Embedding))
		copy(v, item.Embedding)

		// L2 normalize (important for cosine similarity)
		l2normalize(v)
		out[item.Index] = v
	}
	return out, nil
}

// Dimension returns the embedding dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + e.model
}

var errNoEmbedding = errors.New("no embedding data returned from API")

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
