package cmd

import (
	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/handler"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newCollageCmd(cfg *config.Config) *cobra.Command {
	collageCmd := &cobra.Command{
		Use:     "collage <prompt>...",
		Short:   "Generate a captioned 3x3 collage for each prompt",
		Long:    "Requests nine images per prompt and assembles them into results/<prompt>/collage.jpg.",
		Example: `  dallecli collage "a cat in a hat"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, injector := setup(cmd, cfg)
			defer injector.Shutdown()

			h, err := do.Invoke[*handler.Handler](injector)
			if err != nil {
				return err
			}
			_, err = h.Collage(ctx, args)
			return err
		},
	}
	collageCmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "print request timings and written paths")
	return collageCmd
}
