package driver

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/spboyer/ptsauto/internal/prompts"
)

// DefaultMaxBuffer bounds how much unconsumed output is searched for a
// prompt. Older output is discarded first.
const DefaultMaxBuffer = 1 << 20

// outputBuffer holds child output that no prompt has consumed yet.
type outputBuffer struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	eof     bool
	err     error
	changed chan struct{}
}

func newOutputBuffer(max int) *outputBuffer {
	if max <= 0 {
		max = DefaultMaxBuffer
	}
	return &outputBuffer{max: max, changed: make(chan struct{})}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Dropping from the front only reslices; append copies the live window
	// when it runs out of capacity, which amortizes to O(1) per byte.
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	b.notifyLocked()
	return len(p), nil
}

// finish marks the end of output. err is nil or io.EOF for a clean end.
func (b *outputBuffer) finish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eof {
		return
	}
	b.eof = true
	if err != nil && !errors.Is(err, io.EOF) {
		b.err = err
	}
	b.notifyLocked()
}

func (b *outputBuffer) notifyLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

func (b *outputBuffer) expect(ctx context.Context, m prompts.Matcher) error {
	for {
		b.mu.Lock()
		if loc := m.Match(b.buf); loc != nil {
			b.buf = b.buf[loc[1]:]
			b.mu.Unlock()
			return nil
		}
		if b.eof {
			err := b.err
			b.mu.Unlock()
			if err != nil {
				return errors.Join(ErrEOF, err)
			}
			return ErrEOF
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *outputBuffer) waitEOF(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.eof {
			b.buf = nil
			b.mu.Unlock()
			return nil
		}
		// nothing will ever match again; keep memory flat
		b.buf = b.buf[:0]
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
