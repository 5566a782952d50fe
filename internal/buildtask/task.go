// SPDX-License-Identifier: MPL-2.0

// Package buildtask turns registered artifacts into executable build tasks: an
// optional pre-processing task running the artifact's registered command, and
// the packaging task that writes the artifact tree to its output directory.
package buildtask

import (
	"context"
	"fmt"
	"io"

	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/packaging"

	"github.com/charmbracelet/log"
)

const (
	// PhasePreProcessing runs before anything is packaged.
	PhasePreProcessing Phase = iota
	// PhasePackaging writes artifact trees.
	PhasePackaging
)

type (
	// Phase is a stage of an artifact build.
	Phase int

	// Task is one unit of an artifact build.
	Task interface {
		ID() string
		Phase() Phase
		Description() string
		Run(ctx context.Context) error
	}

	// Provider creates the pre-processing tasks of an artifact.
	Provider struct {
		shell  preprocess.Shell
		sink   preprocess.Sink
		opts   []preprocess.Option
		logger *log.Logger
	}

	// PreprocessTask runs an artifact's preprocessing command.
	PreprocessTask struct {
		artifact string
		spec     registry.Preprocessing
		runner   *preprocess.Runner
		result   *preprocess.Result
	}

	// PackageTask materializes an artifact tree.
	PackageTask struct {
		artifact *registry.Artifact
		resolver packaging.Resolver
		result   *packaging.Result
	}
)

func (p Phase) String() string {
	switch p {
	case PhasePreProcessing:
		return "pre-processing"
	case PhasePackaging:
		return "packaging"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// NewProvider returns a Provider running commands through shell and
// reporting diagnostics to sink. opts apply to every created runner.
func NewProvider(shell preprocess.Shell, sink preprocess.Sink, logger *log.Logger, opts ...preprocess.Option) *Provider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Provider{shell: shell, sink: sink, opts: opts, logger: logger}
}

// CreateTasks returns the tasks for phase. Only the pre-processing phase has
// tasks, and only for artifacts whose preprocessing property has a non-empty
// name and command.
func (p *Provider) CreateTasks(phase Phase, a *registry.Artifact) []Task {
	if phase != PhasePreProcessing || a.Preprocessing == nil {
		return nil
	}
	spec := *a.Preprocessing
	if spec.Name == "" || spec.Cmd == "" {
		return nil
	}
	opts := append([]preprocess.Option{preprocess.WithLogger(p.logger)}, p.opts...)
	return []Task{&PreprocessTask{
		artifact: a.Name,
		spec:     spec,
		runner:   preprocess.NewRunner(p.shell, p.sink, opts...),
	}}
}

// ID implements Task.
func (t *PreprocessTask) ID() string { return "preprocess:" + t.spec.Name }

// Phase implements Task.
func (t *PreprocessTask) Phase() Phase { return PhasePreProcessing }

// Description implements Task.
func (t *PreprocessTask) Description() string {
	return fmt.Sprintf("run '%s' for %s", t.spec.Cmd, t.spec.Name)
}

// Run executes the command in the declaring module's directory.
func (t *PreprocessTask) Run(ctx context.Context) error {
	res, err := t.runner.Run(ctx, t.spec.Cmd, t.spec.Dir)
	t.result = res
	return err
}

// Result returns the command result once Run has returned.
func (t *PreprocessTask) Result() *preprocess.Result { return t.result }

// NewPackageTask returns the packaging task of a.
func NewPackageTask(a *registry.Artifact, resolver packaging.Resolver) *PackageTask {
	return &PackageTask{artifact: a, resolver: resolver}
}

// ID implements Task.
func (t *PackageTask) ID() string { return "package:" + t.artifact.Name }

// Phase implements Task.
func (t *PackageTask) Phase() Phase { return PhasePackaging }

// Description implements Task.
func (t *PackageTask) Description() string {
	return fmt.Sprintf("package %s into %s", t.artifact.Name, t.artifact.OutputPath)
}

// Run writes the artifact tree.
func (t *PackageTask) Run(ctx context.Context) error {
	if t.artifact.OutputPath == "" {
		return fmt.Errorf("artifact %s has no output path", t.artifact.Name)
	}
	res, err := packaging.Materialize(ctx, t.artifact.Root, t.artifact.OutputPath, t.resolver)
	t.result = res
	return err
}

// Result returns what was written once Run has returned.
func (t *PackageTask) Result() *packaging.Result { return t.result }
