// Package transcript persists the raw output of a driven child process.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/spboyer/ptsauto/internal/runid"
)

// unsafeChars matches characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func sanitizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the transcript name for a run of label, e.g.
// "15_10_2026_09_30_12_4242_ptsnginx_output.log".
func Filename(gen runid.Generator, label string, compress bool) string {
	name := gen.Stamp(sanitizeName(label) + "_output.log")
	if compress {
		name += ".gz"
	}
	return name
}

// Options controls how a transcript is written.
type Options struct {
	// Compress gzips the transcript as it is written.
	Compress bool
}

// Writer appends raw bytes to a transcript file. It is safe for concurrent
// use and Close may be called any number of times; the file is closed once.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	gz   *gzip.Writer

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// Create opens path for writing, truncating any previous content. Parent
// directories are created automatically.
func Create(path string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	w := &Writer{path: path, file: f}
	if opts.Compress {
		w.gz = gzip.NewWriter(f)
	}
	return w, nil
}

// Write appends b to the transcript.
func (w *Writer) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.file.Write(b)
}

// Close flushes and closes the transcript.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		w.closed = true
		var gzErr error
		if w.gz != nil {
			gzErr = w.gz.Close()
		}
		w.closeErr = errors.Join(gzErr, w.file.Close())
	})
	return w.closeErr
}

// Path returns the file path of the transcript.
func (w *Writer) Path() string {
	return w.path
}
