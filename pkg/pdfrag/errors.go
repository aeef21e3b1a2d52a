package pdfrag

import "errors"

var (
	// ErrConfiguration reports invalid settings: missing credentials, bad chunk
	// parameters, dimension mismatches.
	ErrConfiguration = errors.New("configuration error")
	// ErrIndexLoad reports a persisted index that exists but cannot be read.
	ErrIndexLoad = errors.New("index load error")
	// ErrEmbeddingProvider reports a failed embedding call.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrInvalidQuery reports an empty query.
	ErrInvalidQuery = errors.New("invalid query")
)
