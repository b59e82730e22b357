package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var thumbnailWorkers int

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "Generate missing product thumbnails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.images.Regenerate(ctx, thumbnailWorkers)
		if err != nil {
			return fmt.Errorf("thumbnails: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d thumbnails generated, %d failed\n", res.Done, res.Failed)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every active product to the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.catalog.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d products indexed\n", n)
		return nil
	},
}

func init() {
	thumbnailsCmd.Flags().IntVar(&thumbnailWorkers, "workers", 4, "concurrent thumbnail jobs")
}
