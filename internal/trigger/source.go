// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"context"
	"io"
	"sync"

	"github.com/artifactgen/artifactgen/internal/watch"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/charmbracelet/log"
)

// Source turns filesystem change batches into bus events. Every batch
// reloads the configuration and project; the descriptor diff against the
// previous snapshot decides between ModuleAdded and RootsChanged.
type Source struct {
	loader Loader
	bus    *Bus
	logger *log.Logger

	mu   sync.Mutex
	last *project.Project
}

// NewSource returns a Source publishing on bus.
func NewSource(loader Loader, bus *Bus, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Source{loader: loader, bus: bus, logger: logger}
}

// Prime records the current project as the baseline for the next diff and
// publishes a RootsChanged event for the initial pass.
func (s *Source) Prime(ctx context.Context) error {
	proj, cfg, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last = proj
	s.mu.Unlock()
	return s.bus.Publish(ctx, Event{Kind: RootsChanged, Project: proj, Config: cfg})
}

// Changed handles one batch of changed paths. Content under a root can
// change without the descriptor changing, so a batch always publishes at
// least a RootsChanged event.
func (s *Source) Changed(ctx context.Context, paths []string) error {
	proj, cfg, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Warn("reload failed, keeping previous artifacts", "err", err)
		return err
	}

	s.mu.Lock()
	prev := s.last
	s.last = proj
	s.mu.Unlock()

	events := Diff(prev, proj)
	if len(events) == 0 {
		events = []Event{{Kind: RootsChanged}}
	}
	// One pass covers every module, so only the first event is published.
	ev := events[0]
	ev.Project, ev.Config, ev.Paths = proj, cfg, paths
	s.logger.Debug("project changed", "trigger", ev.Kind, "modules", ev.Modules, "paths", len(paths))
	return s.bus.Publish(ctx, ev)
}

// Watcher builds a watcher over dir whose change batches feed Changed.
func (s *Source) Watcher(dir string, cfg watch.Config) (*watch.Watcher, error) {
	cfg.BaseDir = dir
	cfg.OnChange = s.Changed
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	return watch.New(cfg)
}
