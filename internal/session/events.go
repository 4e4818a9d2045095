// Package session records what happened while a benchmark run was driven.
package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventRunStart      EventType = "run_start"
	EventRunComplete   EventType = "run_complete"
	EventPromptMatched EventType = "prompt_matched"
	EventResponseSent  EventType = "response_sent"
	EventProcessExit   EventType = "process_exit"
	EventError         EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// Observer receives session events as they happen.
type Observer func(Event)

// RunStartData returns event data for a spawned child.
func RunStartData(command string, args []string, pid int, strategy string, steps int) map[string]any {
	return map[string]any{
		"command":  command,
		"args":     args,
		"pid":      pid,
		"strategy": strategy,
		"steps":    steps,
	}
}

// RunCompleteData returns event data for the end of a run.
func RunCompleteData(status string, exitCode int, durationMs int64) map[string]any {
	return map[string]any{
		"status":      status,
		"exit_code":   exitCode,
		"duration_ms": durationMs,
	}
}

// PromptMatchedData returns event data for a recognized prompt.
func PromptMatchedData(step, totalSteps int, prompt string) map[string]any {
	return map[string]any{
		"step":        step,
		"total_steps": totalSteps,
		"prompt":      prompt,
	}
}

// ResponseSentData returns event data for a line written to the child.
func ResponseSentData(step, totalSteps int, response string) map[string]any {
	return map[string]any{
		"step":        step,
		"total_steps": totalSteps,
		"response":    response,
	}
}

// ProcessExitData returns event data for the child's exit.
func ProcessExitData(exitCode int, killed bool) map[string]any {
	return map[string]any{
		"exit_code": exitCode,
		"killed":    killed,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
