package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/feed"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newFeedCmd(cfg *config.Config) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Write an RSS feed of every generated image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, injector := setup(cmd, cfg)
			defer injector.Shutdown()

			g, err := do.Invoke[*feed.Generator](injector)
			if err != nil {
				return err
			}
			rss, err := g.Generate(ctx)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.ResultsDir, feed.FileName)
			if err := os.WriteFile(path, rss, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	feedCmd.Flags().StringVar(&cfg.FeedURL, "url", cfg.FeedURL, "base URL for item links")
	return feedCmd
}
