// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"context"
	"fmt"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/pkg/project"
)

type (
	// Loader produces a fresh configuration and project snapshot.
	Loader interface {
		Load(ctx context.Context) (*project.Project, *config.Config, error)
	}

	// LoaderFunc adapts a function to Loader.
	LoaderFunc func(ctx context.Context) (*project.Project, *config.Config, error)

	fileLoader struct {
		provider config.Provider
		opts     config.LoadOptions
	}
)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (*project.Project, *config.Config, error) {
	return f(ctx)
}

// NewFileLoader reads the configuration described by opts and then the
// project descriptor it points at.
func NewFileLoader(provider config.Provider, opts config.LoadOptions) Loader {
	if provider == nil {
		provider = config.NewProvider()
	}
	return &fileLoader{provider: provider, opts: opts}
}

func (l *fileLoader) Load(ctx context.Context) (*project.Project, *config.Config, error) {
	cfg, err := l.provider.Load(ctx, l.opts)
	if err != nil {
		return nil, nil, err
	}
	proj, err := project.Load(cfg.ProjectPath())
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(cfg.ProjectPath()).
			WithSuggestion("Check the descriptor with 'artifactgen closure <module>'").
			WithIssue(issue.ProjectLoadFailedId).
			Wrap(fmt.Errorf("load project: %w", err)).
			BuildError()
	}
	return proj, cfg, nil
}
