package signup

import (
	"context"

	"github.com/rs/zerolog/log"
)

type compensator struct {
	name string
	fn   func(context.Context) error
}

// compensation is a stack of undo actions. Steps push as they complete;
// run executes them in reverse creation order. Each undo is attempted
// independently: a failed deletion is logged and never aborts the rest,
// and undo errors never replace the error that triggered the unwind.
type compensation struct {
	steps []compensator
}

func (c *compensation) push(name string, fn func(context.Context) error) {
	c.steps = append(c.steps, compensator{name: name, fn: fn})
}

func (c *compensation) run(ctx context.Context) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(ctx); err != nil {
			log.Error().Err(err).Str("resource", step.name).Msg("signup rollback: delete failed")
			continue
		}
		log.Info().Str("resource", step.name).Msg("signup rollback: deleted")
	}
}
