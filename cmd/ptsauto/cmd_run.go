package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spboyer/ptsauto/internal/driver"
	"github.com/spboyer/ptsauto/internal/orchestration"
	"github.com/spboyer/ptsauto/internal/projectconfig"
	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/report"
	"github.com/spboyer/ptsauto/internal/utils"
	"github.com/spf13/cobra"
)

const defaultTarget = prompts.DefaultTarget

var (
	toolFlag           string
	strategyFlag       string
	timeoutFlag        time.Duration
	delayFlag          time.Duration
	promptTimeoutFlag  time.Duration
	scriptFlag         string
	resultsDirFlag     string
	outputDirFlag      string
	logDirFlag         string
	noTranscript       bool
	compressTranscript bool
	sessionLogFlag     bool
	outputPath         string
	junitPath          string
	usePipe            bool
	verbose            bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Run a benchmark and extract its results",
		Long: `Run "<tool> benchmark <target>" and answer its prompts from a prompt script.

The target defaults to pts/nginx, which has a built-in script. Other targets
need --script. Settings come from .ptsauto.yaml (searched upward from the
working directory) and are overridden by flags.

Exit status is 0 when the report was extracted, 1 when the run timed out,
failed or left no report, and 2 for configuration errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommandE,
	}

	f := cmd.Flags()
	f.StringVar(&toolFlag, "tool", "", "Benchmark tool executable (default: phoronix-test-suite)")
	f.StringVar(&strategyFlag, "strategy", "", "How prompts are answered: expect or blind")
	f.DurationVar(&timeoutFlag, "timeout", 0, "Overall run timeout (default: 540s)")
	f.DurationVar(&delayFlag, "delay", 0, "Pause before each write with --strategy blind")
	f.DurationVar(&promptTimeoutFlag, "prompt-timeout", 0, "Maximum wait for any single prompt with --strategy expect")
	f.StringVar(&scriptFlag, "script", "", "Prompt script YAML file (default: built-in script for the target)")
	f.StringVar(&resultsDirFlag, "results-dir", "", "Directory the tool saves results in")
	f.StringVar(&outputDirFlag, "output-dir", "", "Directory for text summaries (default: results dir)")
	f.StringVar(&logDirFlag, "log-dir", "", "Directory for transcripts and session logs")
	f.BoolVar(&noTranscript, "no-transcript", false, "Do not save the raw tool output")
	f.BoolVar(&compressTranscript, "compress-transcript", false, "Gzip the raw tool output")
	f.BoolVar(&sessionLogFlag, "session-log", false, "Write session events as NDJSON")
	f.StringVarP(&outputPath, "output", "o", "", "Output JSON file for the run outcome")
	f.StringVar(&junitPath, "junit", "", "Write the run outcome as JUnit XML")
	f.BoolVar(&usePipe, "pipe", false, "Connect the tool with pipes instead of a pseudo-terminal")
	f.BoolVarP(&verbose, "verbose", "v", false, "Print every prompt and response")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	pc, err := projectconfig.Load(wd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		pc.Target = args[0]
	}

	cfg, err := buildRunConfig(cmd, pc, wd)
	if err != nil {
		return err
	}

	runner := orchestration.NewRunner(cfg)
	progress := newProgressReporter(cmd.OutOrStdout(), verbose)
	runner.OnProgress(progress.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running benchmark: %s\n", cfg.Target)
	fmt.Fprintf(out, "Tool: %s\n", cfg.Tool)
	fmt.Fprintf(out, "Script: %s (%d steps)\n", cfg.Script.Name, len(cfg.Script.Steps))
	fmt.Fprintf(out, "Strategy: %s\n", strategyName(cfg.Driver))
	fmt.Fprintln(out)

	progress.Start()
	outcome, err := runner.Run(ctx)
	progress.Stop()
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	printSummary(out, outcome)

	if outputPath != "" {
		if err := saveOutcome(outcome, outputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "Outcome saved to: %s\n", outputPath)
	}
	if junitPath != "" {
		if err := report.WriteJUnitXML(outcome, junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit XML: %w", err)
		}
		fmt.Fprintf(out, "JUnit XML saved to: %s\n", junitPath)
	}

	if !outcome.Status.OK() {
		return &RunFailureError{
			Message: fmt.Sprintf("benchmark run %s: %s", outcome.Status, outcome.ErrorMsg),
		}
	}
	return nil
}

// buildRunConfig overlays command-line flags on the project configuration.
func buildRunConfig(cmd *cobra.Command, pc *projectconfig.ProjectConfig, wd string) (orchestration.RunConfig, error) {
	flags := cmd.Flags()

	if toolFlag != "" {
		pc.Tool = toolFlag
	}
	if strategyFlag != "" {
		pc.Driver.Strategy = strategyFlag
	}
	if usePipe {
		pc.Driver.Terminal = orchestration.TerminalPipe
	}

	timeout := time.Duration(pc.Timeout) * time.Second
	if flags.Changed("timeout") {
		if timeoutFlag <= 0 {
			return orchestration.RunConfig{}, fmt.Errorf("--timeout must be positive")
		}
		timeout = timeoutFlag
	}

	dcfg, err := driverConfig(pc.Driver, flags.Changed("delay"), flags.Changed("prompt-timeout"))
	if err != nil {
		return orchestration.RunConfig{}, err
	}

	paths, err := pc.ResolvedPaths()
	if err != nil {
		return orchestration.RunConfig{}, err
	}
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{resultsDirFlag, &paths.Results},
		{outputDirFlag, &paths.Output},
		{logDirFlag, &paths.Logs},
	} {
		if o.flag == "" {
			continue
		}
		if *o.dst, err = utils.ResolvePath(o.flag, wd); err != nil {
			return orchestration.RunConfig{}, err
		}
	}
	if resultsDirFlag != "" && outputDirFlag == "" && pc.Paths.Output == "" {
		paths.Output = paths.Results
	}

	script, err := loadScript(pc, wd)
	if err != nil {
		return orchestration.RunConfig{}, err
	}

	return orchestration.RunConfig{
		Tool:               pc.Tool,
		Target:             pc.Target,
		Script:             script,
		Timeout:            timeout,
		Driver:             dcfg,
		Terminal:           pc.Driver.Terminal,
		ResultsDir:         paths.Results,
		OutputDir:          paths.Output,
		LogDir:             paths.Logs,
		Transcript:         *pc.Transcript.Enabled && !noTranscript,
		CompressTranscript: *pc.Transcript.Compress || compressTranscript,
		SessionLog:         *pc.SessionLog || sessionLogFlag,
		Vars:               pc.Vars,
		Hooks:              pc.Hooks,
		Verbose:            verbose,
	}, nil
}

func driverConfig(dc projectconfig.DriverConfig, delaySet, promptTimeoutSet bool) (driver.Config, error) {
	cfg := driver.Config{Strategy: dc.Strategy, Options: maps.Clone(dc.Options)}
	if cfg.Options == nil {
		cfg.Options = map[string]any{}
	}

	strategy := strategyName(cfg)
	if delaySet {
		if strategy != driver.StrategyBlind {
			return driver.Config{}, fmt.Errorf("--delay only applies to --strategy blind")
		}
		cfg.Options["delay"] = delayFlag.String()
	}
	if promptTimeoutSet {
		if strategy != driver.StrategyExpect {
			return driver.Config{}, fmt.Errorf("--prompt-timeout only applies to --strategy expect")
		}
		cfg.Options["prompt_timeout"] = promptTimeoutFlag.String()
	}
	return cfg, nil
}

func strategyName(cfg driver.Config) string {
	if cfg.Strategy == "" {
		return driver.StrategyExpect
	}
	return cfg.Strategy
}

func loadScript(pc *projectconfig.ProjectConfig, wd string) (prompts.Script, error) {
	path := ""
	if scriptFlag != "" {
		p, err := utils.ResolvePath(scriptFlag, wd)
		if err != nil {
			return prompts.Script{}, err
		}
		path = p
	} else {
		p, err := pc.ScriptPath()
		if err != nil {
			return prompts.Script{}, err
		}
		path = p
	}

	if path == "" {
		s, ok := prompts.Builtin(pc.Target)
		if !ok {
			return prompts.Script{}, fmt.Errorf("no built-in prompt script for %s; pass --script", pc.Target)
		}
		return s, nil
	}

	s, err := prompts.LoadFile(path)
	if err != nil {
		return prompts.Script{}, err
	}
	if s.Target != "" && s.Target != pc.Target {
		slog.Warn("prompt script was written for another target", "script", s.Name, "script_target", s.Target, "target", pc.Target)
	}
	return s, nil
}
