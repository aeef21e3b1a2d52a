package pdfrag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataPage(t *testing.T) {
	tests := []struct {
		name   string
		meta   Metadata
		want   int
		wantOK bool
	}{
		{name: "nil", meta: nil},
		{name: "missing", meta: Metadata{MetaSource: "a.pdf"}},
		{name: "int", meta: Metadata{MetaPage: 4}, want: 4, wantOK: true},
		{name: "int64", meta: Metadata{MetaPage: int64(7)}, want: 7, wantOK: true},
		{name: "json number", meta: Metadata{MetaPage: float64(12)}, want: 12, wantOK: true},
		{name: "fractional", meta: Metadata{MetaPage: 1.5}},
		{name: "string", meta: Metadata{MetaPage: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.meta.Page()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetadataSource(t *testing.T) {
	assert.Equal(t, "", Metadata(nil).Source())
	assert.Equal(t, "", Metadata{MetaSource: 3}.Source())
	assert.Equal(t, "handbook.pdf", Metadata{MetaSource: "handbook.pdf"}.Source())
}

func TestNewChunkCopiesMetadata(t *testing.T) {
	parent := Metadata{MetaPage: 1, MetaSource: "a.pdf"}
	c := NewChunk("text", parent, 5)
	c.Metadata[MetaPage] = 99
	c.Metadata["extra"] = true

	assert.Equal(t, 1, parent[MetaPage])
	assert.NotContains(t, parent, "extra")
	assert.Equal(t, 5, c.Offset)

	assert.Nil(t, NewChunk("x", nil, 0).Metadata)
}

func TestIndexValidate(t *testing.T) {
	idx := &Index{
		Chunks:     []Chunk{{Text: "a"}, {Text: "b"}},
		Embeddings: [][]float32{{1, 2}, {3, 4}},
		Dimension:  2,
	}
	assert.NoError(t, idx.Validate())

	idx.Embeddings[1] = []float32{1}
	assert.Error(t, idx.Validate())

	idx.Embeddings = idx.Embeddings[:1]
	assert.Error(t, idx.Validate())
}
