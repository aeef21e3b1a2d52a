package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadPathDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.md"), "# Signals\nYield to pedestrians.")
	writeFile(t, filepath.Join(dir, "a.txt"), "Speed limits in residential areas.")
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), "Parking on hills.")
	writeFile(t, filepath.Join(dir, "notes.csv"), "ignored,row")

	docs, err := LoadPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "Speed limits in residential areas.", docs[0].Text)
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Metadata.Source())
	assert.Equal(t, filepath.Join(dir, "b.md"), docs[1].Metadata.Source())
	assert.Equal(t, filepath.Join(dir, "nested", "c.txt"), docs[2].Metadata.Source())

	_, ok := docs[0].Metadata.Page()
	assert.False(t, ok)
}

func TestLoadPathFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handbook.txt")
	writeFile(t, path, "Always signal before changing lanes.")

	docs, err := LoadPath(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Always signal before changing lanes.", docs[0].Text)

	chunks, err := Chunk(docs, 10, 2)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, path, c.Metadata.Source())
	}
}

func TestLoadPathErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPath(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	csv := filepath.Join(dir, "data.csv")
	writeFile(t, csv, "a,b")
	_, err = LoadPath(context.Background(), csv)
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("handbook.PDF"))
	assert.True(t, Supported("notes.md"))
	assert.True(t, Supported("a.txt"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("README"))
}

func TestToDocumentKeepsPageMetadata(t *testing.T) {
	raw := schema.Document{
		PageContent: "Right of way",
		Metadata:    map[string]any{"page": 12, "total_pages": 40},
	}
	d := toDocument(raw, "handbook.pdf")

	page, ok := d.Metadata.Page()
	assert.True(t, ok)
	assert.Equal(t, 12, page)
	assert.Equal(t, "handbook.pdf", d.Metadata.Source())
	assert.Equal(t, 40, d.Metadata["total_pages"])

	d.Metadata[pdfrag.MetaPage] = 1
	assert.Equal(t, 12, raw.Metadata["page"])
}

func TestLoadFilePDF(t *testing.T) {
	path := filepath.Join("testdata", "handbook.pdf")

	docs, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Contains(t, docs[0].Text, "Parking on a hill: turn your wheels toward the curb.")
	assert.Contains(t, docs[1].Text, "At a four way stop the first vehicle to arrive has the right of way.")
	assert.NotContains(t, docs[0].Text, "four way stop")

	for i, d := range docs {
		page, ok := d.Metadata.Page()
		assert.True(t, ok, "page %d", i)
		assert.Equal(t, i+1, page)
		assert.Equal(t, path, d.Metadata.Source())
	}

	// Directory walks pick up PDFs as well.
	fromDir, err := LoadPath(context.Background(), "testdata")
	require.NoError(t, err)
	assert.Len(t, fromDir, 2)
}
