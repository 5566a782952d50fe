// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"context"
	"errors"
	"sync"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/pkg/project"
)

const (
	// ModuleAdded is published when modules appear in the project.
	ModuleAdded Kind = iota + 1
	// RootsChanged is published for any other project change.
	RootsChanged
)

type (
	// Kind identifies a trigger event.
	Kind int

	// Event describes one project change. Project and Config carry the
	// snapshot that was loaded when the change was detected; a nil
	// snapshot tells handlers to load their own.
	Event struct {
		Kind Kind
		// Modules lists the added module names (ModuleAdded only).
		Modules []string
		// Paths lists the changed files relative to the watched directory.
		Paths   []string
		Project *project.Project
		Config  *config.Config
	}

	// Handler reacts to trigger events.
	Handler interface {
		Handle(ctx context.Context, ev Event) error
	}

	// HandlerFunc adapts a function to Handler.
	HandlerFunc func(ctx context.Context, ev Event) error

	// Bus fans events out to subscribed handlers in subscription order.
	Bus struct {
		mu       sync.RWMutex
		handlers []Handler
	}
)

// String returns the event name.
func (k Kind) String() string {
	switch k {
	case ModuleAdded:
		return "module-added"
	case RootsChanged:
		return "roots-changed"
	default:
		return "unknown"
	}
}

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers h for every subsequent event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every handler, even after one fails, and returns
// the joined handler errors.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Handle(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
