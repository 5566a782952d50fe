// SPDX-License-Identifier: MPL-2.0

package assembly

import (
	"context"
	"errors"
	"io"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// maxParallelBuilds bounds concurrent read phases within one pass.
const maxParallelBuilds = 8

type (
	// Pass re-derives the artifacts of every configured module and queues
	// their commits.
	Pass struct {
		committer *registry.Committer
		logger    *log.Logger
	}

	// Skip records a module left out of a pass.
	Skip struct {
		Module string
		Reason error
	}

	// PassReport summarizes one pass.
	PassReport struct {
		// Disabled is set when generation is turned off in config.
		Disabled  bool
		Submitted []*ArtifactConfig
		Skipped   []Skip
	}
)

// NewPass returns a Pass committing through committer.
func NewPass(committer *registry.Committer, logger *log.Logger) *Pass {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pass{committer: committer, logger: logger}
}

// Run builds the artifact of every module listed in cfg and submits the
// results in config order. Modules that are unknown or have no resolvable
// output are skipped and logged at debug level. Run returns once everything
// is queued; call Committer.Flush to wait for the commits.
func (p *Pass) Run(ctx context.Context, proj *project.Project, cfg *config.Config) (*PassReport, error) {
	report := &PassReport{}
	if !cfg.Enabled {
		p.logger.Debug("artifact generation disabled")
		report.Disabled = true
		return report, nil
	}

	builder := NewBuilder(proj, cfg, p.logger)
	built := make([]*ArtifactConfig, len(cfg.Modules))
	skipped := make([]error, len(cfg.Modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBuilds)
	for i, mc := range cfg.Modules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ac, err := builder.Build(mc.Name)
			switch {
			case err == nil:
				built[i] = ac
			case errors.Is(err, project.ErrModuleNotFound), errors.Is(err, ErrOutputUnresolvable):
				skipped[i] = err
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for i, mc := range cfg.Modules {
		if skipped[i] != nil {
			p.logger.Debug("module skipped", "module", mc.Name, "reason", skipped[i])
			report.Skipped = append(report.Skipped, Skip{Module: mc.Name, Reason: skipped[i]})
			continue
		}
		ac := built[i]
		if err := p.committer.Submit(ctx, ac.Mutation()); err != nil {
			return report, err
		}
		p.logger.Debug("artifact queued", "artifact", ac.Name, "output", ac.OutputDir)
		report.Submitted = append(report.Submitted, ac)
	}
	return report, nil
}
