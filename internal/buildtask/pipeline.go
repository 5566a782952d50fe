// SPDX-License-Identifier: MPL-2.0

package buildtask

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/artifactgen/artifactgen/internal/dag"
	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/packaging"

	"github.com/charmbracelet/log"
)

type (
	// Pipeline builds artifacts: pre-processing tasks first, then packaging.
	Pipeline struct {
		provider *Provider
		resolver packaging.Resolver
		logger   *log.Logger
	}

	// TaskReport records one executed task.
	TaskReport struct {
		ID       string
		Phase    Phase
		Duration time.Duration
		Err      error
	}

	// Report is the outcome of building one artifact.
	Report struct {
		Artifact string
		Tasks    []TaskReport
		// Stopped is set when a pre-processing task stopped the build.
		Stopped bool
		// Packaged is what the packaging task wrote, if it ran.
		Packaged *packaging.Result
	}
)

// NewPipeline returns a Pipeline. resolver locates module outputs and libraries.
func NewPipeline(provider *Provider, resolver packaging.Resolver, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{provider: provider, resolver: resolver, logger: logger}
}

// Tasks returns a's tasks in execution order.
func (p *Pipeline) Tasks(a *registry.Artifact) ([]Task, error) {
	g := dag.New[Task]()
	pkg := NewPackageTask(a, p.resolver)
	if err := g.Add(pkg.ID(), pkg); err != nil {
		return nil, err
	}
	for _, t := range p.provider.CreateTasks(PhasePreProcessing, a) {
		if err := g.Add(t.ID(), t); err != nil {
			return nil, err
		}
		if err := g.Before(t.ID(), pkg.ID()); err != nil {
			return nil, err
		}
	}
	return g.Order()
}

// Build runs a's tasks in order. A stop-build from a pre-processing task skips
// the remaining tasks and is returned as is; other task errors are wrapped.
func (p *Pipeline) Build(ctx context.Context, a *registry.Artifact) (*Report, error) {
	tasks, err := p.Tasks(a)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", a.Name, err)
	}

	report := &Report{Artifact: a.Name}
	for _, t := range tasks {
		p.logger.Debug("running task", "task", t.ID(), "phase", t.Phase(), "what", t.Description())
		start := time.Now()
		runErr := t.Run(ctx)
		report.Tasks = append(report.Tasks, TaskReport{ID: t.ID(), Phase: t.Phase(), Duration: time.Since(start), Err: runErr})

		if pt, ok := t.(*PackageTask); ok {
			report.Packaged = pt.Result()
		}
		if runErr == nil {
			continue
		}
		if preprocess.IsStopBuild(runErr) {
			report.Stopped = true
			p.logger.Warn("build stopped", "artifact", a.Name, "task", t.ID())
			return report, runErr
		}
		return report, fmt.Errorf("artifact %s: task %s: %w", a.Name, t.ID(), runErr)
	}
	return report, nil
}
