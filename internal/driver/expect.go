package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/session"
)

// ExpectOptions tunes the pattern-matched strategy.
type ExpectOptions struct {
	// PromptTimeout bounds the wait for each single prompt. Zero leaves
	// only the overall run timeout.
	PromptTimeout time.Duration `mapstructure:"prompt_timeout"`

	// MaxBuffer bounds the unconsumed output searched for a prompt.
	MaxBuffer int `mapstructure:"max_buffer"`
}

// ExpectStrategy waits for each prompt to appear before answering it, so it
// tolerates any prompt timing.
type ExpectStrategy struct {
	opts ExpectOptions
}

// NewExpectStrategy returns the pattern-matched strategy.
func NewExpectStrategy(opts ExpectOptions) *ExpectStrategy {
	return &ExpectStrategy{opts: opts}
}

func (s *ExpectStrategy) Name() string { return StrategyExpect }

// MaxBuffer reports the configured output window.
func (s *ExpectStrategy) MaxBuffer() int { return s.opts.MaxBuffer }

// Drive answers every step in order, then waits for the end of output.
func (s *ExpectStrategy) Drive(ctx context.Context, conv Conversation, script prompts.Script) error {
	total := len(script.Steps)
	for i, st := range script.Steps {
		if err := s.expect(ctx, conv, st.Expect); err != nil {
			return &StepError{Step: i + 1, Prompt: st.Expect.String(), Err: err}
		}
		conv.Report(session.NewEvent(session.EventPromptMatched, session.PromptMatchedData(i+1, total, st.Expect.String())))

		if st.Response == nil {
			continue
		}
		if err := conv.SendLine(*st.Response); err != nil {
			return &StepError{Step: i + 1, Prompt: st.Expect.String(), Err: err}
		}
		conv.Report(session.NewEvent(session.EventResponseSent, session.ResponseSentData(i+1, total, *st.Response)))
	}

	if err := conv.WaitEOF(ctx); err != nil {
		return fmt.Errorf("waiting for end of output: %w", err)
	}
	return nil
}

func (s *ExpectStrategy) expect(ctx context.Context, conv Conversation, m prompts.Matcher) error {
	if s.opts.PromptTimeout <= 0 {
		return conv.Expect(ctx, m)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.PromptTimeout)
	defer cancel()
	return conv.Expect(ctx, m)
}
