package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeScript(t *testing.T, args ...string) (string, error) {
	t.Helper()
	scriptShowTarget = defaultTarget
	var out bytes.Buffer
	cmd := newScriptCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScriptShow_RoundTripsThroughValidate(t *testing.T) {
	out, err := executeScript(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "pts/nginx")

	path := filepath.Join(t.TempDir(), "nginx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = executeScript(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pts-nginx: 8 step(s) for pts/nginx")
	assert.Contains(t, out, "1. System Test Configuration → (wait only)")
	assert.Contains(t, out, `→ "{{.ResultName}}"`)
}

func TestScriptShow_UnknownTarget(t *testing.T) {
	_, err := executeScript(t, "show", "--target", "pts/apache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no built-in prompt script for pts/apache")
}

func TestScriptValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nsteps: []\n"), 0o644))

	_, err := executeScript(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
