package execution

import (
	"context"
	"io"
)

// Command describes the child process to launch.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
}

// Process is a running child whose text interface is being driven.
type Process interface {
	// Output is the child's combined stdout/stderr stream. Reads return
	// io.EOF once the child and everything holding its terminal is gone.
	Output() io.Reader

	// Input is the child's standard input.
	Input() io.Writer

	// Pid returns the OS process id, or 0 for in-memory children.
	Pid() int

	// Wait blocks until the child exits or ctx is done. It may be called
	// more than once.
	Wait(ctx context.Context) error

	// ExitCode is the child's exit status, or -1 while running or when
	// killed by a signal.
	ExitCode() int

	// Kill forcibly terminates the child and its process group.
	Kill() error

	// Close releases the child's streams.
	Close() error
}

// Spawner launches child processes.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

//go:generate go tool mockgen -source process.go -destination mock_process.go -package execution
