// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// RuntimeNative runs preprocessing commands through the host shell.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs preprocessing commands in the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidRuntimeMode is returned when a RuntimeMode value is not recognized.
	ErrInvalidRuntimeMode = errors.New("invalid runtime mode")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RuntimeMode selects how preprocessing commands are executed.
	RuntimeMode string

	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// ModuleConfig enables artifact generation for one module.
	ModuleConfig struct {
		Name string `json:"name" mapstructure:"name"`
		// Output overrides the derived output directory.
		Output string `json:"output,omitempty" mapstructure:"output"`
		// Exclude lists library and module names left out of the closure.
		Exclude []string `json:"exclude,omitempty" mapstructure:"exclude"`
	}

	// PreprocessingConfig registers a shell command for a module.
	PreprocessingConfig struct {
		Name string `json:"name" mapstructure:"name"`
		Cmd  string `json:"cmd" mapstructure:"cmd"`
	}

	// ShellConfig selects the preprocessing shell.
	ShellConfig struct {
		Runtime RuntimeMode `json:"runtime" mapstructure:"runtime"`
		// Path forces a specific shell binary for the native runtime.
		Path string `json:"path,omitempty" mapstructure:"path"`
	}

	// PreprocessConfig holds the opt-in limits of preprocessing runs.
	PreprocessConfig struct {
		// Timeout is a Go duration string. Empty means no timeout.
		Timeout string `json:"timeout,omitempty" mapstructure:"timeout"`
		// MaxOutput caps each captured stream in bytes. Zero means unbounded.
		MaxOutput int `json:"max_output,omitempty" mapstructure:"max_output"`
	}

	// Config is the artifactgen configuration.
	Config struct {
		Enabled       bool                  `json:"enabled" mapstructure:"enabled"`
		Project       string                `json:"project" mapstructure:"project"`
		LogLevel      LogLevel              `json:"log_level" mapstructure:"log_level"`
		Modules       []ModuleConfig        `json:"modules" mapstructure:"modules"`
		Preprocessing []PreprocessingConfig `json:"preprocessing" mapstructure:"preprocessing"`
		Shell         ShellConfig           `json:"shell" mapstructure:"shell"`
		Preprocess    PreprocessConfig      `json:"preprocess" mapstructure:"preprocess"`
		StateFile     string                `json:"state_file" mapstructure:"state_file"`

		// BaseDir anchors the relative paths above. Set by Load.
		BaseDir string `json:"-" mapstructure:"-"`
	}

	// InvalidConfigError collects the problems found by Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration: generation disabled.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		Project:       "project.cue",
		LogLevel:      LogLevelInfo,
		Modules:       []ModuleConfig{},
		Preprocessing: []PreprocessingConfig{},
		Shell:         ShellConfig{Runtime: RuntimeNative},
		StateFile:     filepath.Join(".artifactgen", "artifacts.toml"),
	}
}

// Validate returns an error for unknown runtime modes.
func (m RuntimeMode) Validate() error {
	switch m {
	case RuntimeNative, RuntimeVirtual:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRuntimeMode, m)
	}
}

// Validate returns an error for unknown log levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l)
	}
}

// IsRunnable reports whether the entry has both a name and a command.
func (p PreprocessingConfig) IsRunnable() bool {
	return p.Name != "" && p.Cmd != ""
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the constraints CUE cannot express: unique module entries,
// a parseable timeout, and known enum values for programmatic configs.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Shell.Runtime.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Preprocess.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Preprocess.MaxOutput < 0 {
		errs = append(errs, fmt.Errorf("preprocess.max_output must not be negative"))
	}
	seen := make(map[string]int, len(c.Modules))
	for i, m := range c.Modules {
		if first, dup := seen[m.Name]; dup {
			errs = append(errs, fmt.Errorf("modules[%d]: duplicate module %q (same as modules[%d])", i, m.Name, first))
			continue
		}
		seen[m.Name] = i
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means zero (no timeout).
func (p PreprocessConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("preprocess.timeout: %w", err)
	}
	return d, nil
}

// Module returns the entry configured for name.
func (c *Config) Module(name string) (ModuleConfig, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleConfig{}, false
}

// PreprocessingFor returns the first preprocessing entry registered for name.
func (c *Config) PreprocessingFor(name string) (PreprocessingConfig, bool) {
	for _, p := range c.Preprocessing {
		if p.Name == name {
			return p, true
		}
	}
	return PreprocessingConfig{}, false
}

// ProjectPath returns the project descriptor path.
func (c *Config) ProjectPath() string { return c.resolve(c.Project) }

// StatePath returns the artifact registry state file path.
func (c *Config) StatePath() string { return c.resolve(c.StateFile) }

// OutputOverride returns the resolved output override of module, if any.
func (c *Config) OutputOverride(module string) (string, bool) {
	m, ok := c.Module(module)
	if !ok || m.Output == "" {
		return "", false
	}
	return c.resolve(m.Output), true
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
