package handler

import (
	"context"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/prompt"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Input struct {
	Prompts []string `json:"prompts,omitempty"`
	Count   int      `json:"count,omitempty"`
	Collage bool     `json:"collage,omitempty"`
}

type Output struct {
	Prompts []string `json:"prompts"`
	Paths   []string `json:"paths"`
}

// LambdaHandler runs a batch per invocation, picking a random prompt when the
// event names none.
type LambdaHandler struct {
	*Handler
	randomizer *prompt.Randomizer
}

func NewLambdaHandler(i *do.Injector) (*LambdaHandler, error) {
	return &LambdaHandler{
		Handler:    do.MustInvoke[*Handler](i),
		randomizer: do.MustInvoke[*prompt.Randomizer](i),
	}, nil
}

func (h *LambdaHandler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("LambdaHandler").With("input", input)
	log.Info("handling lambda invocation")

	if len(input.Prompts) == 0 {
		p, err := h.randomizer.Randomize(ctx)
		if err != nil {
			return Output{}, err
		}
		input.Prompts = []string{p}
	}
	input.Count = lo.Ternary(input.Count > 0, input.Count, 1)

	var (
		paths []string
		err   error
	)
	if input.Collage {
		paths, err = h.Collage(ctx, input.Prompts)
	} else {
		paths, err = h.Oneshot(ctx, input.Prompts, input.Count)
	}
	return Output{Prompts: input.Prompts, Paths: paths}, err
}
