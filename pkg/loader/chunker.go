package loader

import (
	"fmt"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// Chunk splits documents into fixed-size, overlapping chunks.
//
// Sizes count characters (runes). Consecutive chunks from one document start
// chunkSize-chunkOverlap characters apart; the last chunk of a document may be
// shorter. Empty documents yield no chunks.
func Chunk(docs []pdfrag.Document, chunkSize, chunkOverlap int) ([]pdfrag.Chunk, error) {
	if err := ValidateChunkParams(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	var chunks []pdfrag.Chunk
	for _, doc := range docs {
		chunks = append(chunks, chunkDocument(doc, chunkSize, chunkOverlap)...)
	}
	return chunks, nil
}

// ValidateChunkParams rejects size/overlap pairs that would never advance.
func ValidateChunkParams(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be greater than zero, got %d", pdfrag.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be zero or greater, got %d", pdfrag.ErrConfiguration, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			pdfrag.ErrConfiguration, chunkOverlap, chunkSize)
	}
	return nil
}

func chunkDocument(doc pdfrag.Document, chunkSize, chunkOverlap int) []pdfrag.Chunk {
	text := []rune(doc.Text)
	if len(text) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	var chunks []pdfrag.Chunk
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, pdfrag.NewChunk(string(text[start:end]), doc.Metadata, start))
		if end == len(text) {
			break
		}
	}
	return chunks
}
