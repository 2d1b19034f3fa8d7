package cmd

import (
	"fmt"

	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/handler"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newOneshotCmd(cfg *config.Config) *cobra.Command {
	var n int
	oneshotCmd := &cobra.Command{
		Use:     "oneshot <prompt>...",
		Short:   "Generate images for each prompt",
		Long:    "Requests COUNT images per prompt, one after the other, and writes each to results/<prompt>/<n>.jpg.",
		Example: `  dallecli oneshot "a cat in a hat" "a dog on a log" -n 3`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("-n must be at least 1, got %d", n)
			}
			ctx, injector := setup(cmd, cfg)
			defer injector.Shutdown()

			h, err := do.Invoke[*handler.Handler](injector)
			if err != nil {
				return err
			}
			_, err = h.Oneshot(ctx, args, n)
			return err
		},
	}
	oneshotCmd.Flags().IntVarP(&n, "count", "n", 1, "number of images to generate per prompt")
	oneshotCmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "print request timings and written paths")
	return oneshotCmd
}
