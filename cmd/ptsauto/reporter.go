package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/ptsauto/internal/models"
	"github.com/spboyer/ptsauto/internal/session"
	"github.com/spboyer/ptsauto/internal/spinner"
	"golang.org/x/term"
)

// progressReporter turns session events into console output: a line per
// prompt in verbose mode, otherwise a spinner when w is a terminal.
type progressReporter struct {
	w           io.Writer
	verbose     bool
	interactive bool

	mu   sync.Mutex
	spin *spinner.Spinner
}

func newProgressReporter(w io.Writer, verbose bool) *progressReporter {
	return &progressReporter{w: w, verbose: verbose, interactive: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *progressReporter) Start() {
	if p.verbose || !p.interactive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin = spinner.Start(p.w, "Starting benchmark...")
}

func (p *progressReporter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spin != nil {
		p.spin.Stop()
		p.spin = nil
	}
}

func (p *progressReporter) Handle(ev session.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.verbose {
		if p.spin != nil && ev.Type == session.EventPromptMatched {
			p.spin.Update(fmt.Sprintf("Answering prompts [%v/%v]", ev.Data["step"], ev.Data["total_steps"]))
		}
		return
	}

	switch ev.Type {
	case session.EventRunStart:
		fmt.Fprintf(p.w, "Started %v (pid %v)\n", ev.Data["command"], ev.Data["pid"])
	case session.EventPromptMatched:
		fmt.Fprintf(p.w, "[%v/%v] %s\n", ev.Data["step"], ev.Data["total_steps"], truncate(fmt.Sprint(ev.Data["prompt"]), 80))
	case session.EventResponseSent:
		fmt.Fprintf(p.w, "      → %q\n", ev.Data["response"])
	case session.EventProcessExit:
		fmt.Fprintf(p.w, "Process exited with code %v", ev.Data["exit_code"])
		if killed, _ := ev.Data["killed"].(bool); killed {
			fmt.Fprint(p.w, " (killed)")
		}
		fmt.Fprintln(p.w)
	case session.EventError:
		fmt.Fprintf(p.w, "[ERROR] %v\n", ev.Data["message"])
	}
}

// truncate shortens s to maxLen characters, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func printSummary(w io.Writer, outcome *models.RunOutcome) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " BENCHMARK RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	icon := "✓"
	if !outcome.Status.OK() {
		icon = "✗"
	}
	fmt.Fprintf(w, "Status:      %s %s\n", icon, outcome.Status)
	fmt.Fprintf(w, "Result name: %s\n", outcome.ResultName)
	fmt.Fprintf(w, "Exit code:   %d\n", outcome.ExitCode)
	fmt.Fprintf(w, "Duration:    %s\n", formatDuration(time.Duration(outcome.DurationMs)*time.Millisecond))
	if outcome.ErrorMsg != "" {
		fmt.Fprintf(w, "Error:       %s\n", outcome.ErrorMsg)
	}
	fmt.Fprintln(w)

	if len(outcome.Records) > 0 {
		printRecords(w, outcome.Records)
		fmt.Fprintln(w)
	}
	if outcome.ExtractError != "" {
		fmt.Fprintf(w, "⚠ Could not extract results: %s\n\n", outcome.ExtractError)
	}

	fmt.Fprintf(w, "Report:      %s\n", outcome.Paths.Report)
	if outcome.Status.OK() && outcome.ExtractError == "" {
		fmt.Fprintf(w, "Summary:     %s\n", outcome.Paths.Summary)
	}
	if outcome.Paths.Transcript != "" {
		fmt.Fprintf(w, "Transcript:  %s\n", outcome.Paths.Transcript)
	}
	if outcome.Paths.SessionLog != "" {
		fmt.Fprintf(w, "Session log: %s\n", outcome.Paths.SessionLog)
	}
}

// printRecords renders records as an aligned table. Titles and units may
// carry wide characters, so columns are measured in display cells.
func printRecords(w io.Writer, records []models.ResultRecord) {
	titleW, descW := len("Title"), len("Description")
	for _, r := range records {
		titleW = max(titleW, runewidth.StringWidth(r.Title))
		descW = max(descW, runewidth.StringWidth(r.Description))
	}

	fmt.Fprintf(w, "%s  %s  %s\n", padRight("Title", titleW), padRight("Description", descW), "Value")
	fmt.Fprintln(w, strings.Repeat("─", titleW+descW+4+len("Value")))
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s  %s %s\n", padRight(r.Title, titleW), padRight(r.Description, descW), r.Value, r.Scale)
	}
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Second).String()
}

func saveOutcome(outcome *models.RunOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
