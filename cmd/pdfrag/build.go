package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the index, or load it if it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			idx, _, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index %s: %d chunks (dim=%d, metric=%s, model=%s)\n",
				cfg.IndexPath, idx.Len(), idx.Dimension, idx.Metric, idx.ModelInfo)
			return nil
		},
	}
}
