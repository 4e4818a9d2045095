// Package driver answers a child process's interactive prompts from a
// prompt script.
package driver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/session"
)

var (
	// ErrTimeout is reported when the overall or per-prompt timeout fires.
	ErrTimeout = errors.New("timeout exceeded")

	// ErrEOF is reported when the child's output ends before an expected
	// prompt appears.
	ErrEOF = errors.New("output ended before prompt appeared")
)

const (
	StrategyExpect = "expect"
	StrategyBlind  = "blind"
)

// Conversation is what a Strategy may do with the running child.
type Conversation interface {
	// Expect blocks until m appears in output not yet consumed, then
	// consumes output through the end of the match.
	Expect(ctx context.Context, m prompts.Matcher) error

	// SendLine writes line followed by a newline to the child's input.
	SendLine(line string) error

	// WaitEOF blocks until the child's output stream ends.
	WaitEOF(ctx context.Context) error

	// WaitExit blocks until the child exits, whatever its status.
	WaitExit(ctx context.Context) error

	// Report records progress.
	Report(ev session.Event)
}

// Strategy drives a conversation through a script.
type Strategy interface {
	Name() string
	Drive(ctx context.Context, conv Conversation, script prompts.Script) error
}

// StepError identifies the script step a strategy failed on.
type StepError struct {
	Step   int
	Prompt string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%q): %v", e.Step, e.Prompt, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Config selects a strategy. Options are strategy-specific and decoded into
// ExpectOptions or BlindOptions.
type Config struct {
	Strategy string         `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	Options  map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// New creates the strategy named by cfg.
func New(cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case "", StrategyExpect:
		var o ExpectOptions
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, fmt.Errorf("expect strategy options: %w", err)
		}
		return NewExpectStrategy(o), nil
	case StrategyBlind:
		o := BlindOptions{Delay: DefaultBlindDelay}
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, fmt.Errorf("blind strategy options: %w", err)
		}
		return NewBlindStrategy(o), nil
	default:
		return nil, fmt.Errorf("unknown driver strategy: %s", cfg.Strategy)
	}
}

func decodeOptions(in map[string]any, out any) error {
	if len(in) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			numberToSecondsHook,
		),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

var durationType = reflect.TypeOf(time.Duration(0))

// numberToSecondsHook reads bare numbers as seconds when the target is a
// duration, so "delay: 5" means five seconds.
func numberToSecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}
