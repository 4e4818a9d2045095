package models

import "time"

// Status represents the outcome status of a benchmark run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	// StatusNoReport means the tool exited cleanly but never wrote its
	// composite report.
	StatusNoReport Status = "no_report"
)

// OK reports whether the run produced a report.
func (s Status) OK() bool {
	return s == StatusSucceeded
}

// NotAvailable is the display value for a result field missing from the
// report. It is a default, not an error signal.
const NotAvailable = "N/A"

// ResultRecord is one Result element of a composite report.
type ResultRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Scale       string `json:"scale"`
	Value       string `json:"value"`
}

// RunSetup captures how a run was configured.
type RunSetup struct {
	Tool       string `json:"tool"`
	Target     string `json:"target"`
	Strategy   string `json:"strategy"`
	Terminal   string `json:"terminal"`
	TimeoutSec int    `json:"timeout_sec"`
	Script     string `json:"script"`
}

// RunPaths lists the files a run read or wrote.
type RunPaths struct {
	Report     string `json:"report"`
	Summary    string `json:"summary"`
	Transcript string `json:"transcript,omitempty"`
	SessionLog string `json:"session_log,omitempty"`
}

// RunOutcome is the complete result of driving one benchmark run.
type RunOutcome struct {
	ResultName   string         `json:"result_name"`
	RunStamp     string         `json:"run_stamp"`
	Status       Status         `json:"status"`
	Setup        RunSetup       `json:"config"`
	Paths        RunPaths       `json:"paths"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
	DurationMs   int64          `json:"duration_ms"`
	ExitCode     int            `json:"exit_code"`
	ErrorMsg     string         `json:"error,omitempty"`
	ExtractError string         `json:"extract_error,omitempty"`
	Records      []ResultRecord `json:"records,omitempty"`
}
