package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spboyer/ptsauto/internal/execution"
	"github.com/spboyer/ptsauto/internal/models"
	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/session"
	"golang.org/x/sync/errgroup"
)

// DefaultDrainTimeout bounds how long output is collected after the child
// has been killed or has exited.
const DefaultDrainTimeout = 5 * time.Second

// Driver owns the lifecycle of one child process run.
type Driver struct {
	Spawner  execution.Spawner
	Strategy Strategy

	// Timeout bounds the whole conversation, including the wait for the
	// child to finish. Zero means no limit.
	Timeout time.Duration

	// Transcript receives the raw output. Run closes it exactly once.
	Transcript io.WriteCloser

	Observer     session.Observer
	DrainTimeout time.Duration
}

// Outcome describes how a run ended.
type Outcome struct {
	Status    models.Status
	Err       error
	ExitCode  int
	Pid       int
	Killed    bool
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the wall time of the run.
func (o *Outcome) Duration() time.Duration {
	return o.EndedAt.Sub(o.StartedAt)
}

// Run spawns cmd and drives it through script. Every failure is reported in
// the returned Outcome; the child is killed on timeout or control errors and
// never restarted.
func (d *Driver) Run(ctx context.Context, cmd execution.Command, script prompts.Script) *Outcome {
	out := &Outcome{ExitCode: -1, StartedAt: time.Now()}
	defer d.closeTranscript()
	defer func() {
		out.EndedAt = time.Now()
		data := session.RunCompleteData(string(out.Status), out.ExitCode, out.Duration().Milliseconds())
		if out.Err != nil {
			d.report(session.NewEvent(session.EventError, session.ErrorData(out.Err.Error(), nil)))
		}
		d.report(session.NewEvent(session.EventRunComplete, data))
	}()

	proc, err := d.Spawner.Spawn(ctx, cmd)
	if err != nil {
		out.Status = models.StatusFailed
		out.Err = fmt.Errorf("spawning %s: %w", cmd.Path, err)
		return out
	}
	defer func() {
		if err := proc.Close(); err != nil {
			slog.Debug("closing child streams", "error", err)
		}
	}()
	out.Pid = proc.Pid()
	d.report(session.NewEvent(session.EventRunStart,
		session.RunStartData(cmd.Path, cmd.Args, out.Pid, d.Strategy.Name(), len(script.Steps))))

	maxBuffer := 0
	if es, ok := d.Strategy.(*ExpectStrategy); ok {
		maxBuffer = es.MaxBuffer()
	}
	buf := newOutputBuffer(maxBuffer)

	var pump errgroup.Group
	pump.Go(func() error {
		return copyOutput(proc.Output(), buf, d.Transcript)
	})

	runCtx, cancel := d.runContext(ctx)
	defer cancel()

	conv := &conversation{proc: proc, buf: buf, report: d.report}
	driveErr := d.Strategy.Drive(runCtx, conv, script)
	if driveErr == nil {
		// the child may linger after closing its output
		if err := proc.Wait(runCtx); err != nil && runCtx.Err() != nil {
			driveErr = fmt.Errorf("waiting for exit: %w", runCtx.Err())
		}
	}

	if driveErr != nil {
		out.Killed = true
		if err := proc.Kill(); err != nil {
			slog.Warn("killing benchmark process", "pid", out.Pid, "error", err)
		}
		waitCtx, waitCancel := context.WithTimeout(context.Background(), d.drainTimeout())
		if err := proc.Wait(waitCtx); errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("benchmark process did not exit after kill", "pid", out.Pid)
		}
		waitCancel()
	}

	d.drain(proc, &pump)

	out.ExitCode = proc.ExitCode()
	d.report(session.NewEvent(session.EventProcessExit, session.ProcessExitData(out.ExitCode, out.Killed)))

	switch {
	case driveErr == nil:
		out.Status = models.StatusSucceeded
	case errors.Is(driveErr, context.DeadlineExceeded) && ctx.Err() == nil:
		out.Status = models.StatusTimedOut
		out.Err = fmt.Errorf("%w: %w", ErrTimeout, driveErr)
	default:
		out.Status = models.StatusFailed
		out.Err = driveErr
	}
	return out
}

func (d *Driver) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout > 0 {
		return context.WithTimeout(ctx, d.Timeout)
	}
	return context.WithCancel(ctx)
}

func (d *Driver) drainTimeout() time.Duration {
	if d.DrainTimeout > 0 {
		return d.DrainTimeout
	}
	return DefaultDrainTimeout
}

// drain waits for the output pump to reach end of stream. If something still
// holds the child's terminal open, the streams are closed to unblock it.
func (d *Driver) drain(proc execution.Process, pump *errgroup.Group) {
	done := make(chan error, 1)
	go func() { done <- pump.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			slog.Debug("reading benchmark output", "error", err)
		}
		return
	case <-time.After(d.drainTimeout()):
	}

	slog.Warn("benchmark output still open after exit, closing it")
	if err := proc.Close(); err != nil {
		slog.Debug("closing child streams", "error", err)
	}
	select {
	case <-done:
	case <-time.After(d.drainTimeout()):
		slog.Warn("abandoning benchmark output reader")
	}
}

func (d *Driver) closeTranscript() {
	if d.Transcript == nil {
		return
	}
	if err := d.Transcript.Close(); err != nil {
		slog.Warn("closing transcript", "error", err)
	}
}

func (d *Driver) report(ev session.Event) {
	if d.Observer != nil {
		d.Observer(ev)
	}
}

// copyOutput feeds the match buffer and the transcript until the child's
// output ends. A failing transcript never stops prompt matching.
func copyOutput(r io.Reader, buf *outputBuffer, transcript io.Writer) error {
	chunk := make([]byte, 4096)
	var transcriptErr error
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if transcript != nil && transcriptErr == nil {
				if _, werr := transcript.Write(chunk[:n]); werr != nil {
					transcriptErr = werr
					slog.Warn("writing transcript", "error", werr)
				}
			}
			buf.Write(chunk[:n]) //nolint:errcheck
		}
		if err != nil {
			buf.finish(err)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// conversation adapts a running Process to the Conversation interface.
type conversation struct {
	proc   execution.Process
	buf    *outputBuffer
	report func(session.Event)
}

func (c *conversation) Expect(ctx context.Context, m prompts.Matcher) error {
	return c.buf.expect(ctx, m)
}

func (c *conversation) SendLine(line string) error {
	if _, err := io.WriteString(c.proc.Input(), line+"\n"); err != nil {
		return fmt.Errorf("writing to benchmark input: %w", err)
	}
	return nil
}

func (c *conversation) WaitEOF(ctx context.Context) error {
	return c.buf.waitEOF(ctx)
}

func (c *conversation) WaitExit(ctx context.Context) error {
	err := c.proc.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		slog.Debug("benchmark exited", "error", err)
	}
	return nil
}

func (c *conversation) Report(ev session.Event) {
	c.report(ev)
}
