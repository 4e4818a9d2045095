// Package execution launches the benchmark tool as a child process and
// exposes its text streams for interactive driving.
package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// ptySize is the classic 80x24 terminal.
var ptySize = &pty.Winsize{Rows: 24, Cols: 80}

// PTYSpawner runs the child on a pseudo-terminal, so tools that check
// isatty or prompt only on terminals behave as they do for an operator.
type PTYSpawner struct{}

// Spawn starts cmd attached to a new pseudo-terminal.
func (PTYSpawner) Spawn(_ context.Context, c Command) (Process, error) {
	cmd := newCmd(c)

	master, err := pty.StartWithSize(cmd, ptySize)
	if err != nil {
		return nil, fmt.Errorf("starting %s on a pty: %w", c.Path, err)
	}

	return newCmdProcess(cmd, &ptyReader{f: master}, master, master), nil
}

// PipeSpawner runs the child with plain pipes. Standard error is merged into
// the output stream.
type PipeSpawner struct{}

// Spawn starts cmd with its standard streams connected to pipes.
func (PipeSpawner) Spawn(_ context.Context, c Command) (Process, error) {
	cmd := newCmd(c)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		stdin.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()    //nolint:errcheck
		pw.Close()    //nolint:errcheck
		stdin.Close() //nolint:errcheck
		return nil, fmt.Errorf("starting %s: %w", c.Path, err)
	}
	// the child holds its own copy of the write end
	pw.Close() //nolint:errcheck

	return newCmdProcess(cmd, pr, stdin, pr, stdin), nil
}

func newCmd(c Command) *exec.Cmd {
	//nolint:gosec // the benchmark command comes from local configuration
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

type cmdProcess struct {
	cmd     *exec.Cmd
	out     io.Reader
	in      io.Writer
	closers []io.Closer

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

func newCmdProcess(cmd *exec.Cmd, out io.Reader, in io.Writer, closers ...io.Closer) *cmdProcess {
	p := &cmdProcess{
		cmd:     cmd,
		out:     out,
		in:      in,
		closers: closers,
		done:    make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p
}

func (p *cmdProcess) Output() io.Reader { return p.out }
func (p *cmdProcess) Input() io.Writer  { return p.in }
func (p *cmdProcess) Pid() int          { return p.cmd.Process.Pid }

func (p *cmdProcess) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *cmdProcess) ExitCode() int {
	select {
	case <-p.done:
		return p.cmd.ProcessState.ExitCode()
	default:
		return -1
	}
}

func (p *cmdProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := killProcessGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing pid %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func (p *cmdProcess) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		for _, c := range p.closers {
			if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

// ptyReader reports the EIO a pty master returns after the slave side is
// gone as a clean end of stream.
type ptyReader struct {
	f *os.File
}

func (r *ptyReader) Read(b []byte) (int, error) {
	n, err := r.f.Read(b)
	if err != nil && (errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)) {
		return n, io.EOF
	}
	return n, err
}
