package prompt

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

var ErrNoPrompts = errors.New("no prompts configured")

type Randomizer struct {
	prompts []string
	rnd     *rand.Rand
}

func NewRandomizer(i *do.Injector) (*Randomizer, error) {
	prompts := do.MustInvokeNamed[[]string](i, "prompts")
	return newRandomizer(prompts, rand.NewSource(time.Now().UTC().Unix())), nil
}

func newRandomizer(prompts []string, src rand.Source) *Randomizer {
	prompts = lo.Filter(lo.Map(prompts, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}), func(p string, _ int) bool {
		return p != ""
	})
	return &Randomizer{prompts, rand.New(src)}
}

func (r *Randomizer) Randomize(ctx context.Context) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("randomizer")
	log.Info("picking random prompt", "choices", len(r.prompts))
	if len(r.prompts) == 0 {
		return "", ErrNoPrompts
	}
	return r.prompts[r.rnd.Intn(len(r.prompts))], nil
}
