package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// sqliteCodec stores the index as a SQLite file with a key/value meta table
// and one row per chunk. Embeddings are JSON arrays.
type sqliteCodec struct{}

var sqliteSchema = []string{
	`CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE chunks (
		position INTEGER PRIMARY KEY,
		char_offset INTEGER NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT,
		embedding TEXT NOT NULL
	)`,
}

func (sqliteCodec) write(path string, idx *pdfrag.Index) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	for _, query := range sqliteSchema {
		if _, err := conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"version":    strconv.Itoa(formatVersion),
		"metric":     string(idx.Metric),
		"model_info": idx.ModelInfo,
		"dimension":  strconv.Itoa(idx.Dimension),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to insert meta %s: %w", k, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO chunks (position, char_offset, text, metadata, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range idx.Chunks {
		metaJSON, err := encodeMetadata(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for chunk %d: %w", i, err)
		}
		embeddingJSON, err := json.Marshal(idx.Embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for chunk %d: %w", i, err)
		}
		var metaCol any
		if metaJSON != nil {
			metaCol = string(metaJSON)
		}
		if _, err := stmt.Exec(i, c.Offset, c.Text, metaCol, string(embeddingJSON)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return conn.Close()
}

func (sqliteCodec) read(path string) (*pdfrag.Index, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	meta, err := readMeta(conn)
	if err != nil {
		return nil, err
	}
	version, err := strconv.Atoi(meta["version"])
	if err != nil || version != formatVersion {
		return nil, fmt.Errorf("unsupported index format version %q", meta["version"])
	}
	dim, err := strconv.Atoi(meta["dimension"])
	if err != nil {
		return nil, fmt.Errorf("invalid dimension %q", meta["dimension"])
	}

	idx := &pdfrag.Index{
		Chunks:     []pdfrag.Chunk{},
		Embeddings: [][]float32{},
		Dimension:  dim,
		Metric:     pdfrag.Metric(meta["metric"]),
		ModelInfo:  meta["model_info"],
	}

	rows, err := conn.Query(`SELECT char_offset, text, metadata, embedding FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			offset        int
			text          string
			metaJSON      sql.NullString
			embeddingJSON string
		)
		if err := rows.Scan(&offset, &text, &metaJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for chunk %d: %w", len(idx.Chunks), err)
		}
		md, err := decodeMetadata([]byte(metaJSON.String))
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", len(idx.Chunks), err)
		}
		idx.Chunks = append(idx.Chunks, pdfrag.Chunk{Text: text, Metadata: md, Offset: offset})
		idx.Embeddings = append(idx.Embeddings, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return idx, nil
}

func readMeta(conn *sql.DB) (map[string]string, error) {
	rows, err := conn.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}
