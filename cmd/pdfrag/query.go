package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [question...]",
		Short: "Answer a question with the most relevant passages",
		Long: "Answer a question with the most relevant passages. Without arguments,\n" +
			"questions are read from standard input, one per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			idx, emb, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			engine, err := pdfrag.NewEngine(idx, emb)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return answer(ctx, out, engine, strings.Join(args, " "), cfg.TopK)
			}
			return answerLines(ctx, cmd.InOrStdin(), out, engine, cfg.TopK)
		},
	}
	cmd.Flags().Int("top", 0, "number of results to return")
	return cmd
}

func answer(ctx context.Context, w io.Writer, engine *pdfrag.Engine, question string, k int) error {
	results, err := engine.Query(ctx, question, k)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, formatResults(results))
	return err
}

// answerLines answers one question per input line. Blank lines are skipped.
func answerLines(ctx context.Context, r io.Reader, w io.Writer, engine *pdfrag.Engine, k int) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := answer(ctx, w, engine, line, k); err != nil {
			if errors.Is(err, pdfrag.ErrEmbeddingProvider) {
				fmt.Fprintf(w, "Error: %v\n", err)
				continue
			}
			return err
		}
	}
	return scanner.Err()
}

// formatResults renders results the way they are handed to a caller:
// numbered passages with their page when known.
func formatResults(results []pdfrag.Result) string {
	if len(results) == 0 {
		return "No relevant content found in the document.\n"
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "Result %d: %s", i+1, strings.TrimSpace(r.Chunk.Text))
		if page, ok := r.Chunk.Metadata.Page(); ok && page > 0 {
			fmt.Fprintf(&b, " (Page %d)", page)
		}
		b.WriteString("\n---\n")
	}
	return b.String()
}
