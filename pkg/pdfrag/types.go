package pdfrag

import (
	"fmt"
	"math"
)

// Well-known metadata keys
const (
	MetaPage   = "page"
	MetaSource = "source"
)

// Metadata holds scalar attributes of a document (page number, source id).
type Metadata map[string]any

// Page returns the page number, if present and numeric.
func (m Metadata) Page() (int, bool) {
	switch v := m[MetaPage].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

// Source returns the source identifier, or "" when unset.
func (m Metadata) Source() string {
	s, _ := m[MetaSource].(string)
	return s
}

// Clone returns a shallow copy. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is a unit of source content produced by a loader
type Document struct {
	Text     string
	Metadata Metadata
}

// Chunk represents a piece of a document with its content and metadata
type Chunk struct {
	Text     string   // The actual text content
	Metadata Metadata // Copy of the parent document's metadata
	Offset   int      // Character offset in the parent document
}

// NewChunk builds a chunk, copying metadata so the parent document is never aliased.
func NewChunk(text string, metadata Metadata, offset int) Chunk {
	return Chunk{
		Text:     text,
		Metadata: metadata.Clone(),
		Offset:   offset,
	}
}

// Result is a single ranked match.
type Result struct {
	Chunk    Chunk
	Distance float64
}

// Index holds the in-memory vector index for similarity search
type Index struct {
	Chunks     []Chunk     // Indexed chunks
	Embeddings [][]float32 // Corresponding embeddings (chunk[i] ↔ embedding[i])
	Dimension  int         // Embedding vector dimension
	Metric     Metric      // Distance metric used to rank results
	ModelInfo  string      // Model name/version used to build the index
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Chunks)
}

// Validate checks that chunks and embeddings line up and share the index dimension.
func (idx *Index) Validate() error {
	if len(idx.Chunks) != len(idx.Embeddings) {
		return fmt.Errorf("%d chunks but %d embeddings", len(idx.Chunks), len(idx.Embeddings))
	}
	for i, v := range idx.Embeddings {
		if len(v) != idx.Dimension {
			return fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), idx.Dimension)
		}
	}
	return nil
}
