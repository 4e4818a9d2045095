// Package orchestration runs one benchmark end to end: naming, hooks,
// prompt driving and result extraction.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spboyer/ptsauto/internal/driver"
	"github.com/spboyer/ptsauto/internal/execution"
	"github.com/spboyer/ptsauto/internal/hooks"
	"github.com/spboyer/ptsauto/internal/models"
	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/report"
	"github.com/spboyer/ptsauto/internal/runid"
	"github.com/spboyer/ptsauto/internal/session"
	"github.com/spboyer/ptsauto/internal/template"
	"github.com/spboyer/ptsauto/internal/transcript"
	"github.com/spboyer/ptsauto/internal/utils"
)

// TimestampLayout formats the start and end times of a run.
const TimestampLayout = "2006-01-02 15:04:05"

// Terminal kinds.
const (
	TerminalPTY  = "pty"
	TerminalPipe = "pipe"
)

// RunConfig is the fully resolved input of one run.
type RunConfig struct {
	Tool     string
	Target   string
	Script   prompts.Script
	Timeout  time.Duration
	Driver   driver.Config
	Terminal string

	// ResultsDir is where the tool saves composite reports; OutputDir
	// receives summaries; LogDir holds transcripts and session logs.
	ResultsDir string
	OutputDir  string
	LogDir     string

	Transcript         bool
	CompressTranscript bool
	SessionLog         bool

	Vars    map[string]string
	Hooks   hooks.HooksConfig
	Verbose bool
}

// ProgressListener receives session events as the run progresses.
type ProgressListener func(event session.Event)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSpawner replaces the spawner chosen from the terminal setting.
func WithSpawner(s execution.Spawner) RunnerOption {
	return func(r *Runner) {
		r.spawner = s
	}
}

// WithGenerator sets the clock and pid used for run names.
func WithGenerator(g runid.Generator) RunnerOption {
	return func(r *Runner) {
		r.gen = g
	}
}

// WithKernel overrides the kernel release reported to the tool.
func WithKernel(release string) RunnerOption {
	return func(r *Runner) {
		r.kernel = release
	}
}

// Runner orchestrates a single benchmark run.
type Runner struct {
	cfg     RunConfig
	spawner execution.Spawner
	gen     runid.Generator
	kernel  string

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg RunConfig, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg}
	for _, o := range opts {
		o(r)
	}
	if r.spawner == nil {
		r.spawner = spawnerFor(cfg.Terminal)
	}
	if r.kernel == "" {
		r.kernel = kernelRelease()
	}
	return r
}

func spawnerFor(terminal string) execution.Spawner {
	if terminal == TerminalPipe {
		return execution.PipeSpawner{}
	}
	return execution.PTYSpawner{}
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event session.Event) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// plan holds the names and paths derived for one run.
type plan struct {
	stamp      string
	resultName string
	report     string
	summary    string
	transcript string
	sessionLog string
}

func (r *Runner) plan() plan {
	label := r.cfg.Target
	p := plan{
		stamp:      r.gen.Stamp(label),
		resultName: r.gen.ResultName(label),
	}
	p.report = report.CompositePath(r.cfg.ResultsDir, p.resultName)
	p.summary = report.SummaryPath(r.cfg.OutputDir, p.resultName)
	if r.cfg.Transcript {
		p.transcript = filepath.Join(r.cfg.LogDir, transcript.Filename(r.gen, label, r.cfg.CompressTranscript))
	}
	if r.cfg.SessionLog {
		p.sessionLog = session.LogPath(r.cfg.LogDir, p.resultName)
	}
	return p
}

// Run drives the benchmark once. The returned error covers problems that
// prevent a run from starting (bad configuration, failing before_run hooks,
// unwritable logs); everything that happens once the tool is spawned is
// reported through the outcome's status.
func (r *Runner) Run(ctx context.Context) (*models.RunOutcome, error) {
	strategy, err := driver.New(r.cfg.Driver)
	if err != nil {
		return nil, err
	}
	if err := r.cfg.Script.Validate(); err != nil {
		return nil, err
	}

	p := r.plan()
	startTime := time.Now()

	script, err := r.cfg.Script.Render(&template.Context{
		Target:     r.cfg.Target,
		ResultName: p.resultName,
		RunStamp:   p.stamp,
		Kernel:     r.kernel,
		Timestamp:  startTime.Format(TimestampLayout),
		Vars:       r.cfg.Vars,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt script %q: %w", r.cfg.Script.Name, err)
	}

	outcome := &models.RunOutcome{
		ResultName: p.resultName,
		RunStamp:   p.stamp,
		Setup: models.RunSetup{
			Tool:       r.cfg.Tool,
			Target:     r.cfg.Target,
			Strategy:   strategy.Name(),
			Terminal:   r.terminal(),
			TimeoutSec: int(r.cfg.Timeout / time.Second),
			Script:     r.cfg.Script.Name,
		},
		Paths: models.RunPaths{
			Report:     p.report,
			Summary:    p.summary,
			Transcript: p.transcript,
			SessionLog: p.sessionLog,
		},
		StartedAt: startTime,
	}

	hookRunner := &hooks.Runner{Verbose: r.cfg.Verbose, Env: r.hookEnv(p)}
	if len(r.cfg.Hooks.BeforeRun) > 0 {
		if err := hookRunner.Execute(ctx, "before_run", r.cfg.Hooks.BeforeRun); err != nil {
			return nil, fmt.Errorf("before_run hook failed: %w", err)
		}
	}

	logger, err := r.openSessionLog(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := logger.Close(); err != nil {
			slog.Warn("closing session log", "error", err)
		}
	}()

	d := &driver.Driver{
		Spawner:  r.spawner,
		Strategy: strategy,
		Timeout:  r.cfg.Timeout,
		Observer: session.Fanout(logger, func(err error) {
			slog.Warn("writing session log", "error", err)
		}, utils.EventToSlog, r.notifyProgress),
	}
	if p.transcript != "" {
		tw, err := transcript.Create(p.transcript, transcript.Options{Compress: r.cfg.CompressTranscript})
		if err != nil {
			return nil, err
		}
		d.Transcript = tw
	}

	slog.Info("Test started", "at", startTime.Format(TimestampLayout), "target", r.cfg.Target, "result_name", p.resultName)

	res := d.Run(ctx, execution.Command{
		Path: r.cfg.Tool,
		Args: []string{"benchmark", r.cfg.Target},
	}, script)

	outcome.Status = res.Status
	outcome.ExitCode = res.ExitCode
	if res.Err != nil {
		outcome.ErrorMsg = res.Err.Error()
		slog.Error("benchmark run failed", "status", res.Status, "error", res.Err)
	}

	if res.Status == models.StatusSucceeded {
		r.collectResults(outcome)
	}

	endTime := time.Now()
	outcome.EndedAt = endTime
	outcome.DurationMs = endTime.Sub(startTime).Milliseconds()
	slog.Info("Test ended", "at", endTime.Format(TimestampLayout), "status", outcome.Status)

	if len(r.cfg.Hooks.AfterRun) > 0 {
		hookRunner.Env["PTS_STATUS"] = string(outcome.Status)
		if err := hookRunner.Execute(ctx, "after_run", r.cfg.Hooks.AfterRun); err != nil {
			slog.Warn("after_run hook error", "error", err)
		}
	}

	return outcome, nil
}

// collectResults checks for the composite report and extracts it. A missing
// report turns the run into StatusNoReport; an unreadable one is recorded
// but leaves the status alone.
func (r *Runner) collectResults(outcome *models.RunOutcome) {
	if _, err := os.Stat(outcome.Paths.Report); err != nil {
		slog.Warn("composite report does not exist", "path", outcome.Paths.Report)
		outcome.Status = models.StatusNoReport
		outcome.ErrorMsg = fmt.Sprintf("composite report %s was not written", outcome.Paths.Report)
		return
	}
	slog.Info("composite report exists", "path", outcome.Paths.Report)

	records, err := report.Extract(outcome.Paths.Report, outcome.Paths.Summary)
	if err != nil {
		if errors.Is(err, report.ErrNoSource) {
			outcome.Status = models.StatusNoReport
		}
		outcome.ExtractError = err.Error()
		slog.Error("extracting results", "error", err)
		return
	}
	outcome.Records = records
	slog.Info("Results saved", "path", outcome.Paths.Summary, "records", len(records))
}

func (r *Runner) openSessionLog(p plan) (session.Logger, error) {
	if p.sessionLog == "" {
		return session.NopLogger{}, nil
	}
	l, err := session.NewJSONLogger(p.sessionLog)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *Runner) terminal() string {
	if r.cfg.Terminal == "" {
		return TerminalPTY
	}
	return r.cfg.Terminal
}

func (r *Runner) hookEnv(p plan) map[string]string {
	return map[string]string{
		"PTS_TOOL":            r.cfg.Tool,
		"PTS_TARGET":          r.cfg.Target,
		"PTS_RESULT_NAME":     p.resultName,
		"PTS_RUN_STAMP":       p.stamp,
		"PTS_REPORT_PATH":     p.report,
		"PTS_SUMMARY_PATH":    p.summary,
		"PTS_TRANSCRIPT_PATH": p.transcript,
	}
}
