package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// formatVersion is bumped whenever the persisted layout changes.
const formatVersion = 2

// codec persists an index in one file format.
type codec interface {
	write(path string, idx *pdfrag.Index) error
	read(path string) (*pdfrag.Index, error)
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return sqliteCodec{}
	}
	return gobCodec{}
}

// Save writes idx to path atomically. The format follows the file extension:
// SQLite for .db/.sqlite/.sqlite3, gob otherwise.
func Save(path string, idx *pdfrag.Index) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pdfrag.ErrConfiguration, err)
	}
	return writeAtomic(path, func(tmp string) error {
		return codecFor(path).write(tmp, idx)
	})
}

// Load reads the index at path. Any failure is reported as pdfrag.ErrIndexLoad.
func Load(path string) (*pdfrag.Index, error) {
	idx, err := codecFor(path).read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pdfrag.ErrIndexLoad, path, err)
	}
	if idx.Metric == "" {
		idx.Metric = pdfrag.MetricL2
	}
	if _, err := pdfrag.ParseMetric(string(idx.Metric)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pdfrag.ErrIndexLoad, path, err)
	}
	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pdfrag.ErrIndexLoad, path, err)
	}
	return idx, nil
}

// writeAtomic lets fn write a temp file next to path, then renames it into place.
func writeAtomic(path string, fn func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := fn(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

// gobIndex is the on-disk gob layout. Metadata values travel as gob
// interface values, so they keep their concrete Go types.
type gobIndex struct {
	Version    int
	Metric     string
	ModelInfo  string
	Dimension  int
	Chunks     []gobChunk
	Embeddings [][]float32
}

type gobChunk struct {
	Text     string
	Offset   int
	Metadata map[string]any
}

type gobCodec struct{}

func (gobCodec) write(path string, idx *pdfrag.Index) error {
	data := gobIndex{
		Version:    formatVersion,
		Metric:     string(idx.Metric),
		ModelInfo:  idx.ModelInfo,
		Dimension:  idx.Dimension,
		Chunks:     make([]gobChunk, len(idx.Chunks)),
		Embeddings: idx.Embeddings,
	}
	for i, c := range idx.Chunks {
		data.Chunks[i] = gobChunk{Text: c.Text, Offset: c.Offset, Metadata: c.Metadata}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	return file.Close()
}

func (gobCodec) read(path string) (*pdfrag.Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data gobIndex
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if data.Version != formatVersion {
		return nil, fmt.Errorf("unsupported index format version %d", data.Version)
	}

	idx := &pdfrag.Index{
		Chunks:     make([]pdfrag.Chunk, len(data.Chunks)),
		Embeddings: data.Embeddings,
		Dimension:  data.Dimension,
		Metric:     pdfrag.Metric(data.Metric),
		ModelInfo:  data.ModelInfo,
	}
	if idx.Embeddings == nil {
		idx.Embeddings = [][]float32{}
	}
	for i, c := range data.Chunks {
		idx.Chunks[i] = pdfrag.Chunk{Text: c.Text, Metadata: c.Metadata, Offset: c.Offset}
	}
	return idx, nil
}
