package transcript

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spboyer/ptsauto/internal/runid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	gen := runid.Generator{
		Now: func() time.Time { return time.Date(2026, 10, 15, 9, 30, 12, 0, time.Local) },
		PID: func() int { return 4242 },
	}

	assert.Equal(t, "15_10_2026_09_30_12_4242_ptsnginx_output.log", Filename(gen, "pts/nginx", false))
	assert.Equal(t, "15_10_2026_09_30_12_4242_ptsnginx_output.log.gz", Filename(gen, "pts/nginx", true))
	assert.Equal(t, "15_10_2026_09_30_12_4242_unnamed_output.log", Filename(gen, "///", false))
}

func TestWriter_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	w, err := Create(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	_, err = w.Write([]byte("Connections: "))
	require.NoError(t, err)
	_, err = w.Write([]byte("2\r\n"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Connections: 2\r\n", string(data))
}

func TestWriter_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log.gz")

	w, err := Create(path, Options{Compress: true})
	require.NoError(t, err)
	_, err = w.Write([]byte("System Test Configuration\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "System Test Configuration\n", string(data))
}
