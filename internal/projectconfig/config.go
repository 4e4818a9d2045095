// Package projectconfig provides the ProjectConfig struct and loader for
// .ptsauto.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spboyer/ptsauto/internal/hooks"
	"github.com/spboyer/ptsauto/internal/utils"
	"github.com/spboyer/ptsauto/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".ptsauto.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultTool    = "phoronix-test-suite"
	DefaultTarget  = "pts/nginx"
	DefaultTimeout = 540

	DefaultResultsDir = "~/.phoronix-test-suite/test-results"
	DefaultLogsDir    = "."

	DefaultStrategy = "expect"
	DefaultTerminal = "pty"
)

// PathsConfig holds the directories a run reads from and writes to.
type PathsConfig struct {
	// Results is where the benchmark tool saves composite reports.
	Results string `yaml:"results,omitempty"`
	// Output is where summaries are written. Empty means Results.
	Output string `yaml:"output,omitempty"`
	// Logs holds transcripts and session logs.
	Logs string `yaml:"logs,omitempty"`
}

// DriverConfig selects how the benchmark's prompts are answered.
type DriverConfig struct {
	Strategy string         `yaml:"strategy,omitempty"`
	Terminal string         `yaml:"terminal,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
}

// TranscriptConfig holds raw output logging settings.
type TranscriptConfig struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	Compress *bool `yaml:"compress,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .ptsauto.yaml.
type ProjectConfig struct {
	Tool       string            `yaml:"tool,omitempty"`
	Target     string            `yaml:"target,omitempty"`
	Script     string            `yaml:"script,omitempty"`
	Timeout    int               `yaml:"timeout,omitempty"`
	Paths      PathsConfig       `yaml:"paths,omitempty"`
	Driver     DriverConfig      `yaml:"driver,omitempty"`
	Transcript TranscriptConfig  `yaml:"transcript,omitempty"`
	SessionLog *bool             `yaml:"session_log,omitempty"`
	Vars       map[string]string `yaml:"vars,omitempty"`
	Hooks      hooks.HooksConfig `yaml:"hooks,omitempty"`

	// Dir is the directory holding the loaded file, or "" for defaults.
	// Relative paths in the file are resolved against it.
	Dir string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Tool:    DefaultTool,
		Target:  DefaultTarget,
		Timeout: DefaultTimeout,
		Paths: PathsConfig{
			Results: DefaultResultsDir,
			Logs:    DefaultLogsDir,
		},
		Driver: DriverConfig{
			Strategy: DefaultStrategy,
			Terminal: DefaultTerminal,
		},
		Transcript: TranscriptConfig{
			Enabled:  utils.Ptr(true),
			Compress: utils.Ptr(false),
		},
		SessionLog: utils.Ptr(false),
	}
}

// Load finds .ptsauto.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s:\n  %s", path, strings.Join(errs, "\n  "))
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .ptsauto.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Tool != "" {
		dst.Tool = src.Tool
	}
	if src.Target != "" {
		dst.Target = src.Target
	}
	if src.Script != "" {
		dst.Script = src.Script
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}

	// Paths
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}
	if src.Paths.Output != "" {
		dst.Paths.Output = src.Paths.Output
	}
	if src.Paths.Logs != "" {
		dst.Paths.Logs = src.Paths.Logs
	}

	// Driver
	if src.Driver.Strategy != "" {
		dst.Driver.Strategy = src.Driver.Strategy
	}
	if src.Driver.Terminal != "" {
		dst.Driver.Terminal = src.Driver.Terminal
	}
	if src.Driver.Options != nil {
		dst.Driver.Options = src.Driver.Options
	}

	// Transcript
	if src.Transcript.Enabled != nil {
		dst.Transcript.Enabled = src.Transcript.Enabled
	}
	if src.Transcript.Compress != nil {
		dst.Transcript.Compress = src.Transcript.Compress
	}

	if src.SessionLog != nil {
		dst.SessionLog = src.SessionLog
	}
	if src.Vars != nil {
		dst.Vars = src.Vars
	}

	// Hooks
	if src.Hooks.BeforeRun != nil {
		dst.Hooks.BeforeRun = src.Hooks.BeforeRun
	}
	if src.Hooks.AfterRun != nil {
		dst.Hooks.AfterRun = src.Hooks.AfterRun
	}
}

// ResolvedPaths returns Paths with "~" expanded and relative entries
// resolved against the config file's directory, or the working directory
// when no file was loaded. An empty Output falls back to Results.
func (c *ProjectConfig) ResolvedPaths() (PathsConfig, error) {
	base := c.Dir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return PathsConfig{}, fmt.Errorf("resolving working directory: %w", err)
		}
		base = wd
	}

	var out PathsConfig
	var err error
	if out.Results, err = utils.ResolvePath(c.Paths.Results, base); err != nil {
		return PathsConfig{}, err
	}
	if out.Output, err = utils.ResolvePath(c.Paths.Output, base); err != nil {
		return PathsConfig{}, err
	}
	if out.Logs, err = utils.ResolvePath(c.Paths.Logs, base); err != nil {
		return PathsConfig{}, err
	}
	if out.Output == "" {
		out.Output = out.Results
	}
	return out, nil
}

// ScriptPath resolves Script like the other paths. Empty means the built-in
// script for the target.
func (c *ProjectConfig) ScriptPath() (string, error) {
	if c.Script == "" || c.Dir == "" {
		return utils.ExpandHome(c.Script)
	}
	return utils.ResolvePath(c.Script, c.Dir)
}
