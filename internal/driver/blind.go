package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/session"
)

// DefaultBlindDelay is the pause before each blind write. It was tuned
// against one observed environment and guarantees nothing.
const DefaultBlindDelay = 5 * time.Second

// BlindOptions tunes the blind-timed strategy.
type BlindOptions struct {
	// Delay is slept before every write.
	Delay time.Duration `mapstructure:"delay"`
}

// BlindStrategy writes every response on a fixed schedule without reading
// the child's output. Use it only where prompts cannot be observed; a slow
// child will receive answers meant for earlier prompts.
type BlindStrategy struct {
	opts BlindOptions
}

// NewBlindStrategy returns the blind-timed strategy.
func NewBlindStrategy(opts BlindOptions) *BlindStrategy {
	return &BlindStrategy{opts: opts}
}

func (s *BlindStrategy) Name() string { return StrategyBlind }

// Drive writes each defined response after the configured delay, then waits
// for the child to exit. Steps without a response are skipped.
func (s *BlindStrategy) Drive(ctx context.Context, conv Conversation, script prompts.Script) error {
	total := len(script.Steps)
	for i, st := range script.Steps {
		if st.Response == nil {
			continue
		}

		if err := sleep(ctx, s.opts.Delay); err != nil {
			return &StepError{Step: i + 1, Prompt: st.Expect.String(), Err: err}
		}

		if err := conv.SendLine(*st.Response); err != nil {
			return &StepError{Step: i + 1, Prompt: st.Expect.String(), Err: err}
		}
		conv.Report(session.NewEvent(session.EventResponseSent, session.ResponseSentData(i+1, total, *st.Response)))
	}

	if err := conv.WaitExit(ctx); err != nil {
		return fmt.Errorf("waiting for exit: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
