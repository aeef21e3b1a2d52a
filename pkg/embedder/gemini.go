package embedder

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// Gemini task types
const (
	geminiTaskDocument = "RETRIEVAL_DOCUMENT"
	geminiTaskQuery    = "RETRIEVAL_QUERY"
)

// GeminiConfig configures the Gemini embedder.
type GeminiConfig struct {
	Model      string // defaults to text-embedding-004
	APIKeyEnv  string // defaults to GEMINI_API_KEY
	Dimensions int    // optional output dimensionality
}

// GeminiEmbedder uses the Gemini API for embeddings. Documents and queries
// are embedded with their respective retrieval task types.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int
	outDim *int32
}

// NewGeminiEmbedder creates a Gemini embedder
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s environment variable not set", pdfrag.ErrConfiguration, cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", pdfrag.ErrConfiguration, err)
	}

	e := &GeminiEmbedder{client: client, model: cfg.Model, dim: 768}
	if cfg.Dimensions > 0 {
		d := int32(cfg.Dimensions)
		e.outDim = &d
		e.dim = cfg.Dimensions
	}
	return e, nil
}

// Embed generates a query embedding
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, geminiTaskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates document embeddings in one request
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, geminiTaskDocument)
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: e.outDim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, errNoEmbedding
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dim {
			return nil, fmt.Errorf("gemini embedding %d has unexpected dimension", i)
		}
		v := make([]float32, len(emb.Values))
		copy(v, emb.Values)
		l2normalize(v)
		out[i] = v
	}
	return out, nil
}

// Dimension returns the embedding dimension
func (e *GeminiEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *GeminiEmbedder) ModelInfo() string {
	return "gemini-" + e.model
}
