package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/inject"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func NewRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dallecli",
		Short:        "Generate images from text prompts with a DALL-E mini backend",
		SilenceUsage: true,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "URL of the image generation backend")
	f.StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "directory holding one sub-directory per prompt")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "timeout per backend request, 0 waits forever")
	f.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "S3 bucket to mirror results to")
	f.StringVar(&cfg.Distribution, "distribution", cfg.Distribution, "CloudFront distribution to invalidate after mirroring")
	f.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "hide progress bars")

	rootCmd.AddCommand(
		newOneshotCmd(cfg),
		newCollageCmd(cfg),
		newFeedCmd(cfg),
	)
	return rootCmd
}

// setup builds the logger and injector for a command run. The log level only
// follows LOG_LEVEL; --verbose adds console messages, not log lines.
func setup(cmd *cobra.Command, cfg *config.Config) (context.Context, *do.Injector) {
	logger := log.New(cmd.ErrOrStderr(), log.ParseLevel(cfg.LogLevel))
	ctx := log.NewContext(cmd.Context(), logger)
	return ctx, inject.Setup(ctx, cfg, cmd.OutOrStdout())
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
