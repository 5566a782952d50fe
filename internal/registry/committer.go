// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/artifactgen/artifactgen/pkg/packaging"

	"github.com/charmbracelet/log"
)

// ErrCommitterClosed is returned by Submit after Close.
var ErrCommitterClosed = errors.New("committer closed")

type (
	// Mutation replaces one artifact: the old artifact of the same name is
	// removed, the new one added with build-on-make set, its output directory
	// created and assigned, and the preprocessing property attached.
	Mutation struct {
		Name          string
		Module        string
		Root          *packaging.Element
		OutputPath    string
		Preprocessing *Preprocessing
	}

	// Committer is the registry's single writer. Mutations are applied in
	// submission order on one goroutine, after the caller has moved on.
	Committer struct {
		registry *Registry
		logger   *log.Logger
		jobs     chan job
		done     chan struct{}

		mu     sync.Mutex // guards closed and sends on jobs
		closed bool

		errMu sync.Mutex
		errs  []error
	}

	job struct {
		mutation *Mutation
		barrier  chan struct{}
	}
)

// NewCommitter starts a committer for registry. A nil logger discards output.
func NewCommitter(registry *Registry, logger *log.Logger) *Committer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Committer{
		registry: registry,
		logger:   logger,
		jobs:     make(chan job, 64),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Submit queues m. It returns once the mutation is queued, not applied.
func (c *Committer) Submit(ctx context.Context, m Mutation) error {
	return c.enqueue(ctx, job{mutation: &m})
}

// Flush blocks until every mutation submitted before it has been applied and
// returns the errors those mutations produced.
func (c *Committer) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := c.enqueue(ctx, job{barrier: barrier}); err != nil {
		return err
	}
	select {
	case <-barrier:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.takeErrors()
}

// Close applies the queued mutations, stops the committer and returns any
// errors not yet reported by Flush.
func (c *Committer) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()
	<-c.done
	return c.takeErrors()
}

func (c *Committer) enqueue(ctx context.Context, j job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCommitterClosed
	}
	select {
	case c.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Committer) run() {
	defer close(c.done)
	for j := range c.jobs {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		if err := c.apply(j.mutation); err != nil {
			c.logger.Error("commit failed", "artifact", j.mutation.Name, "err", err)
			c.errMu.Lock()
			c.errs = append(c.errs, err)
			c.errMu.Unlock()
			continue
		}
		c.logger.Debug("artifact committed", "artifact", j.mutation.Name, "output", j.mutation.OutputPath)
	}
}

func (c *Committer) apply(m *Mutation) error {
	if err := os.MkdirAll(m.OutputPath, 0o755); err != nil {
		return fmt.Errorf("artifact %s: failed to create output directory: %w", m.Name, err)
	}

	model := c.registry.ModifiableModel()
	model.Remove(m.Name)
	a, err := model.Add(m.Name, TypePlain, m.Root)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", m.Name, err)
	}
	a.Module = m.Module
	a.BuildOnMake = true
	a.OutputPath = m.OutputPath
	if m.Preprocessing != nil {
		p := *m.Preprocessing
		a.Preprocessing = &p
	}

	if err := model.Commit(); err != nil {
		return fmt.Errorf("artifact %s: %w", m.Name, err)
	}
	return nil
}

func (c *Committer) takeErrors() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	err := errors.Join(c.errs...)
	c.errs = nil
	return err
}
