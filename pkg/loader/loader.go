package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/perbu/pdfrag/pkg/logutil"
	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// LoadPath loads documents from a file, or from every supported file under a
// directory in lexical order. PDFs yield one document per page.
func LoadPath(ctx context.Context, path string) ([]pdfrag.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if !Supported(path) {
			return nil, fmt.Errorf("unsupported document type: %s", path)
		}
		return LoadFile(ctx, path)
	}

	var docs []pdfrag.Document
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and unsupported files
		if d.IsDir() || !Supported(p) {
			return nil
		}

		fileDocs, err := LoadFile(ctx, p)
		if err != nil {
			return err
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Supported reports whether the file extension has a loader.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// LoadFile loads a single PDF, text or markdown file.
func LoadFile(ctx context.Context, path string) ([]pdfrag.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var raw []schema.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		raw, err = documentloaders.NewPDF(f, info.Size()).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	default:
		raw, err = documentloaders.NewText(f).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	docs := make([]pdfrag.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, toDocument(d, path))
	}
	logutil.GetLogger(ctx).Debug("loaded file", zap.String("path", path), zap.Int("documents", len(docs)))
	return docs, nil
}

func toDocument(d schema.Document, source string) pdfrag.Document {
	meta := make(pdfrag.Metadata, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		meta[k] = v
	}
	meta[pdfrag.MetaSource] = source
	return pdfrag.Document{Text: d.PageContent, Metadata: meta}
}
