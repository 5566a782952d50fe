// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/artifactgen/artifactgen/internal/assembly"
	"github.com/artifactgen/artifactgen/internal/registry"

	"github.com/charmbracelet/log"
)

// Listener re-runs the whole assembly pass for every event it receives.
// Concurrent events are serialized; each pass waits for its commits.
type Listener struct {
	loader    Loader
	pass      *assembly.Pass
	committer *registry.Committer
	logger    *log.Logger

	mu   sync.Mutex
	runs int
	last *assembly.PassReport
}

// NewListener returns a Listener committing through committer. The loader
// is used for events that carry no snapshot.
func NewListener(loader Loader, committer *registry.Committer, logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Listener{
		loader:    loader,
		pass:      assembly.NewPass(committer, logger),
		committer: committer,
		logger:    logger,
	}
}

// Handle implements Handler.
func (l *Listener) Handle(ctx context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	proj, cfg := ev.Project, ev.Config
	if proj == nil || cfg == nil {
		var err error
		if proj, cfg, err = l.loader.Load(ctx); err != nil {
			return fmt.Errorf("%s: %w", ev.Kind, err)
		}
	}

	report, err := l.pass.Run(ctx, proj, cfg)
	if err != nil {
		return fmt.Errorf("%s: assembly pass: %w", ev.Kind, err)
	}
	if err := l.committer.Flush(ctx); err != nil {
		return fmt.Errorf("%s: commit artifacts: %w", ev.Kind, err)
	}

	l.runs++
	l.last = report
	if report.Disabled {
		return nil
	}
	l.logger.Info("artifacts reassembled",
		"trigger", ev.Kind, "artifacts", len(report.Submitted), "skipped", len(report.Skipped))
	return nil
}

// Runs returns the number of completed passes and the last report.
func (l *Listener) Runs() (int, *assembly.PassReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runs, l.last
}
