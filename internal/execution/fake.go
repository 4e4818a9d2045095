package execution

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// FakeTurn is one exchange of a FakeChild: optionally pause, write Output,
// then optionally read one line of input.
type FakeTurn struct {
	Delay    time.Duration
	Output   string
	ReadLine bool
}

// FakeChild is an in-memory stand-in for an interactive tool. It plays its
// turns in order, records every line it reads and exits with ExitCode. When
// Hang is set it keeps its output open after the last turn until killed.
type FakeChild struct {
	Turns    []FakeTurn
	Hang     bool
	ExitCode int

	mu     sync.Mutex
	lines  []string
	killed bool
	spawns int
}

// Lines returns the input lines the child consumed.
func (f *FakeChild) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// Killed reports whether Kill was called while the child was running.
func (f *FakeChild) Killed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.killed
}

// Spawns reports how many times the child was started.
func (f *FakeChild) Spawns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawns
}

// Spawn implements Spawner. The command is ignored.
func (f *FakeChild) Spawn(ctx context.Context, _ Command) (Process, error) {
	f.mu.Lock()
	f.spawns++
	f.mu.Unlock()

	outR, outW := io.Pipe()
	p := &fakeProcess{
		child: f,
		outR:  outR,
		outW:  outW,
		input: make(chan string, 64),
		kill:  make(chan struct{}),
		done:  make(chan struct{}),
		exit:  -1,
	}
	go p.play()
	return p, nil
}

var errFakeKilled = errors.New("signal: killed")

type fakeProcess struct {
	child *FakeChild
	outR  *io.PipeReader
	outW  *io.PipeWriter

	inMu    sync.Mutex
	pending strings.Builder
	input   chan string

	kill     chan struct{}
	killOnce sync.Once
	done     chan struct{}
	exit     int
	waitErr  error
}

func (p *fakeProcess) play() {
	defer close(p.done)
	defer p.outW.Close() //nolint:errcheck

	for _, turn := range p.child.Turns {
		if turn.Delay > 0 {
			select {
			case <-time.After(turn.Delay):
			case <-p.kill:
				p.exitKilled()
				return
			}
		}
		if turn.Output != "" {
			if _, err := io.WriteString(p.outW, turn.Output); err != nil {
				p.exitKilled()
				return
			}
		}
		if turn.ReadLine {
			select {
			case line := <-p.input:
				p.child.mu.Lock()
				p.child.lines = append(p.child.lines, line)
				p.child.mu.Unlock()
			case <-p.kill:
				p.exitKilled()
				return
			}
		}
	}

	if p.child.Hang {
		<-p.kill
		p.exitKilled()
		return
	}
	p.exit = p.child.ExitCode
}

func (p *fakeProcess) exitKilled() {
	p.child.mu.Lock()
	p.child.killed = true
	p.child.mu.Unlock()
	p.exit = -1
	p.waitErr = errFakeKilled
}

func (p *fakeProcess) Output() io.Reader { return p.outR }
func (p *fakeProcess) Input() io.Writer  { return fakeInput{p} }
func (p *fakeProcess) Pid() int          { return 0 }

func (p *fakeProcess) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakeProcess) ExitCode() int {
	select {
	case <-p.done:
		return p.exit
	default:
		return -1
	}
}

func (p *fakeProcess) Kill() error {
	p.killOnce.Do(func() { close(p.kill) })
	return nil
}

func (p *fakeProcess) Close() error {
	return p.outR.Close()
}

// fakeInput splits writes into lines, buffering like a terminal would.
type fakeInput struct {
	p *fakeProcess
}

func (w fakeInput) Write(b []byte) (int, error) {
	select {
	case <-w.p.done:
		return 0, io.ErrClosedPipe
	default:
	}

	w.p.inMu.Lock()
	defer w.p.inMu.Unlock()
	for _, c := range string(b) {
		if c != '\n' {
			w.p.pending.WriteRune(c)
			continue
		}
		select {
		case w.p.input <- w.p.pending.String():
		default:
			return 0, errors.New("fake child input buffer full")
		}
		w.p.pending.Reset()
	}
	return len(b), nil
}
