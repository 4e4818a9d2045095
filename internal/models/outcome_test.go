package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOK(t *testing.T) {
	assert.True(t, StatusSucceeded.OK())
	for _, s := range []Status{StatusFailed, StatusTimedOut, StatusNoReport} {
		assert.False(t, s.OK(), "%s", s)
	}
}

func TestRunOutcomeJSON(t *testing.T) {
	o := RunOutcome{
		ResultName: "15-10-2026-09-30-12-4242-ptsnginx",
		Status:     StatusTimedOut,
		StartedAt:  time.Date(2026, 10, 15, 9, 30, 12, 0, time.UTC),
		ErrorMsg:   "timeout exceeded",
		Paths:      RunPaths{Report: "/r/composite.xml", Summary: "/o/s.txt"},
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "timed_out", m["status"])
	assert.Equal(t, "timeout exceeded", m["error"])
	assert.NotContains(t, m, "records", "empty records are omitted")
	assert.NotContains(t, m, "extract_error")

	paths, ok := m["paths"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, paths, "transcript")
}
