// SPDX-License-Identifier: MPL-2.0

// Package registry holds the project's artifacts. Readers get copies; writers
// take a modifiable snapshot, edit it and commit it back in one step. All
// commits made by assembly passes go through a Committer, which applies them
// one at a time on its own goroutine.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/artifactgen/artifactgen/pkg/packaging"
)

// TypePlain is the type of every generated artifact.
const TypePlain = "plain"

var (
	// ErrDuplicateArtifact is returned when a snapshot already holds the name.
	ErrDuplicateArtifact = errors.New("artifact already exists")
	// ErrStaleSnapshot is returned when committing a snapshot taken before
	// another commit landed.
	ErrStaleSnapshot = errors.New("registry changed since snapshot was taken")
	// ErrArtifactNotFound is returned for unknown artifact names.
	ErrArtifactNotFound = errors.New("artifact not found")
)

type (
	// Preprocessing is the build-time property attached to an artifact: the
	// command to run before packaging and where to run it.
	Preprocessing struct {
		Name string `toml:"name"`
		Cmd  string `toml:"cmd"`
		Dir  string `toml:"dir,omitempty"`
	}

	// Artifact is a registered packaging tree plus its output directory.
	Artifact struct {
		Name          string             `toml:"name"`
		Type          string             `toml:"type"`
		Module        string             `toml:"module"`
		OutputPath    string             `toml:"output_path,omitempty"`
		BuildOnMake   bool               `toml:"build_on_make"`
		Preprocessing *Preprocessing     `toml:"preprocessing,omitempty"`
		Root          *packaging.Element `toml:"root"`
	}

	// Registry is the project-wide artifact registry.
	Registry struct {
		mu        sync.RWMutex
		artifacts []*Artifact
		version   uint64
		store     Store
	}

	// Model is a modifiable snapshot of a Registry. It is not safe for
	// concurrent use.
	Model struct {
		registry  *Registry
		version   uint64
		artifacts []*Artifact
	}
)

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	c := *a
	if a.Preprocessing != nil {
		p := *a.Preprocessing
		c.Preprocessing = &p
	}
	if a.Root != nil {
		c.Root = a.Root.Clone()
	}
	return &c
}

// New returns an empty registry persisting to store. A nil store keeps the
// registry in memory.
func New(store Store) *Registry {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Registry{store: store}
}

// Open returns a registry initialized from store.
func Open(store Store) (*Registry, error) {
	r := New(store)
	artifacts, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact registry: %w", err)
	}
	r.artifacts = artifacts
	return r, nil
}

// Artifacts returns copies of all artifacts in registration order.
func (r *Registry) Artifacts() []*Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.artifacts)
}

// Get returns a copy of the named artifact.
func (r *Registry) Get(name string) (*Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.artifacts, name); i >= 0 {
		return r.artifacts[i].Clone(), true
	}
	return nil, false
}

// ModifiableModel returns a snapshot that can be edited and committed.
func (r *Registry) ModifiableModel() *Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Model{registry: r, version: r.version, artifacts: cloneAll(r.artifacts)}
}

// Artifacts returns the snapshot's artifacts. Mutating them mutates the snapshot.
func (m *Model) Artifacts() []*Artifact { return m.artifacts }

// FindByName returns the snapshot's artifact with the given name.
func (m *Model) FindByName(name string) *Artifact {
	if i := indexOf(m.artifacts, name); i >= 0 {
		return m.artifacts[i]
	}
	return nil
}

// Remove drops the named artifact and reports whether it existed.
func (m *Model) Remove(name string) bool {
	i := indexOf(m.artifacts, name)
	if i < 0 {
		return false
	}
	m.artifacts = slices.Delete(m.artifacts, i, i+1)
	return true
}

// Add registers a new artifact in the snapshot and returns it for further
// configuration. Names are unique; remove the old artifact first to replace it.
func (m *Model) Add(name, artifactType string, root *packaging.Element) (*Artifact, error) {
	if indexOf(m.artifacts, name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateArtifact, name)
	}
	a := &Artifact{Name: name, Type: artifactType, Root: root}
	m.artifacts = append(m.artifacts, a)
	return a, nil
}

// Commit atomically replaces the registry contents with the snapshot and
// persists them. A snapshot can only be committed against the version it was
// taken from.
func (m *Model) Commit() error {
	r := m.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.version != m.version {
		return ErrStaleSnapshot
	}
	if err := r.store.Save(m.artifacts); err != nil {
		return fmt.Errorf("failed to persist artifact registry: %w", err)
	}
	r.artifacts = cloneAll(m.artifacts)
	r.version++
	m.version = r.version
	return nil
}

func indexOf(artifacts []*Artifact, name string) int {
	return slices.IndexFunc(artifacts, func(a *Artifact) bool { return a.Name == name })
}

func cloneAll(artifacts []*Artifact) []*Artifact {
	out := make([]*Artifact, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Clone()
	}
	return out
}
