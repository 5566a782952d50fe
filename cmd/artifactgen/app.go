// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and loads what it needs through it.
	App struct {
		Config  config.Provider
		stdout  io.Writer
		stderr  io.Writer
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is everything one command invocation works against.
	session struct {
		cfg      *config.Config
		cfgPath  string
		proj     *project.Project
		registry *registry.Registry
		logger   *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}, nil
}

func (f *rootFlagValues) loadOptions() (config.LoadOptions, error) {
	dir := f.projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.LoadOptions{}, fmt.Errorf("determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return config.LoadOptions{}, fmt.Errorf("resolve project directory: %w", err)
	}
	return config.LoadOptions{ConfigFilePath: f.configPath, BaseDir: abs}, nil
}

// loadConfig reads the configuration and builds the root logger from it.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*session, error) {
	opts, err := flags.loadOptions()
	if err != nil {
		return nil, err
	}
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, cfgPath: configFilePath(opts), logger: a.newLogger(cfg, flags.verbose)}, nil
}

// configFilePath returns the file Load reads for opts, or "" when the
// defaults are used.
func configFilePath(opts config.LoadOptions) string {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath
	}
	p := config.FilePath(opts.BaseDir)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// open loads configuration, the project descriptor and the persisted
// artifact registry.
func (a *App) open(ctx context.Context, flags *rootFlagValues) (*session, error) {
	s, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	s.proj, err = project.Load(s.cfg.ProjectPath())
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(s.cfg.ProjectPath()).
			WithSuggestion("Create the descriptor or point 'project' in artifactgen.cue at it").
			WithIssue(issue.ProjectLoadFailedId).
			Wrap(err).
			BuildError()
	}

	s.registry, err = registry.Open(&registry.TOMLStore{Path: s.cfg.StatePath()})
	if err != nil {
		return nil, fmt.Errorf("open artifact registry: %w", err)
	}
	return s, nil
}

func (a *App) newLogger(cfg *config.Config, verbose bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	level, err := log.ParseLevel(string(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

func moduleNotFound(name string, err error) error {
	return issue.NewErrorContext().
		WithOperation("resolve module").
		WithResource(name).
		WithSuggestion("Run 'artifactgen closure' with a module declared in project.cue").
		WithIssue(issue.ModuleNotFoundId).
		Wrap(err).
		BuildError()
}
