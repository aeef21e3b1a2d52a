package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

const handbook = `Parking on a hill: turn your wheels toward the curb when facing downhill.
Speed limits near schools are 25 miles per hour when children are present.
At a four way stop the first vehicle to arrive has the right of way.
A flashing red signal means stop, then proceed when it is safe.
`

func writeFixture(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handbook.txt"), []byte(handbook), 0644))
	cfgPath = filepath.Join(dir, "pdfrag.yaml")
	cfg := strings.Join([]string{
		"document_path: " + filepath.Join(dir, "handbook.txt"),
		"index_path: " + filepath.Join(dir, "index.gob"),
		"chunk_size: 80",
		"chunk_overlap: 10",
		"embedder:",
		"  provider: simple",
		"log:",
		"  level: error",
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return dir, cfgPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildAndQuery(t *testing.T) {
	dir, cfgPath := writeFixture(t)

	out, err := run(t, "", "--config", cfgPath, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "chunks (dim=256, metric=l2, model=simple-hash-256)")
	assert.FileExists(t, filepath.Join(dir, "index.gob"))

	out, err = run(t, "", "--config", cfgPath, "query", "--top", "1", "parking", "on", "a", "hill")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Result 1: Parking on a hill"), out)
	assert.NotContains(t, out, "Result 2:")
}

func TestQueryDoesNotReadDocumentOnceIndexed(t *testing.T) {
	dir, cfgPath := writeFixture(t)

	_, err := run(t, "", "--config", cfgPath, "build")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "handbook.txt")))

	out, err := run(t, "", "--config", cfgPath, "query", "--top", "1", "four", "way", "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Result 1:")

	// Without the index the missing document is an error, not an empty index.
	require.NoError(t, os.Remove(filepath.Join(dir, "index.gob")))
	_, err = run(t, "", "--config", cfgPath, "build")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "index.gob"))
}

func TestQueryFromStdin(t *testing.T) {
	_, cfgPath := writeFixture(t)

	out, err := run(t, "speed limits near schools\n\n   \nflashing red signal\n", "--config", cfgPath, "query")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Result 1:"))
	assert.Equal(t, 2*3, strings.Count(out, "\n---\n"))
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	_, cfgPath := writeFixture(t)

	_, err := run(t, "", "--config", cfgPath, "query", "   ")
	require.ErrorIs(t, err, pdfrag.ErrInvalidQuery)
}

func TestMissingCredentialsFailBeforeLoading(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDFRAG_TEST_NO_KEY", "")
	cfgPath := filepath.Join(dir, "pdfrag.yaml")
	cfg := "document_path: " + filepath.Join(dir, "missing.pdf") + "\n" +
		"index_path: " + filepath.Join(dir, "index.gob") + "\n" +
		"embedder:\n  provider: openai\n  api_key_env: PDFRAG_TEST_NO_KEY\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	_, err := run(t, "", "--config", cfgPath, "build")
	require.ErrorIs(t, err, pdfrag.ErrConfiguration)
	assert.NoFileExists(t, filepath.Join(dir, "index.gob"))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "pdfrag.yaml")
	out, err := run(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_size: 1000")
	assert.Contains(t, string(data), "cache_ttl: 10m0s")
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "No relevant content found in the document.\n", formatResults(nil))

	results := []pdfrag.Result{
		{Chunk: pdfrag.NewChunk("  Stop at red lights.\n", pdfrag.Metadata{pdfrag.MetaPage: 12}, 0)},
		{Chunk: pdfrag.NewChunk("Yield to pedestrians.", nil, 40)},
		{Chunk: pdfrag.NewChunk("Signal before turning.", pdfrag.Metadata{pdfrag.MetaPage: float64(3)}, 80)},
	}
	want := "Result 1: Stop at red lights. (Page 12)\n---\n" +
		"Result 2: Yield to pedestrians.\n---\n" +
		"Result 3: Signal before turning. (Page 3)\n---\n"
	assert.Equal(t, want, formatResults(results))
}
