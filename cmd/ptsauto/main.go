package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Benchmark ran and its report was extracted
	ExitRunFailed = 1 // Timeout, control failure or missing report
	ExitError     = 2 // Configuration or runtime error
)

// RunFailureError indicates that the tool was driven, but the run did not
// produce a usable report.
type RunFailureError struct {
	Message string
}

func (e *RunFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var runFailureErr *RunFailureError
		if errors.As(err, &runFailureErr) {
			os.Exit(ExitRunFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
