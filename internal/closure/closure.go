// SPDX-License-Identifier: MPL-2.0

// Package closure computes the transitive runtime dependency closure of a
// module: the libraries and dependency modules whose output must be packaged
// alongside it.
package closure

import (
	"github.com/artifactgen/artifactgen/pkg/project"
)

type (
	// Graph is the read-only view of the module graph the collector walks.
	// *project.Project satisfies it.
	Graph interface {
		Module(name string) (*project.Module, bool)
		Library(name string) (*project.Library, bool)
	}

	// Closure is the deduplicated result of one collection. Both slices are in
	// first-encounter order of a depth-first walk over declared edges, so the
	// same graph always yields the same slices.
	Closure struct {
		Libraries []*project.Library
		Modules   []*project.Module
	}

	// Collector walks module graphs. It holds no state between calls and is
	// safe for concurrent use as long as the Graph is.
	Collector struct {
		graph Graph
	}

	walk struct {
		graph     Graph
		seed      string
		exclude   map[string]struct{}
		visited   map[string]bool
		libraries map[string]bool
		modules   map[string]bool
		out       *Closure
	}
)

// NewCollector returns a Collector over graph.
func NewCollector(graph Graph) *Collector {
	return &Collector{graph: graph}
}

// Collect returns the runtime closure of module. Only production, runtime
// visible edges are followed; SDK edges are ignored. Names in exclude are
// omitted from the result but excluded modules are still traversed, so their
// own dependencies can appear. The seed module never appears in its own
// module set.
func (c *Collector) Collect(module *project.Module, exclude []string) *Closure {
	w := &walk{
		graph:     c.graph,
		seed:      module.Name,
		exclude:   make(map[string]struct{}, len(exclude)),
		visited:   map[string]bool{module.Name: true},
		libraries: make(map[string]bool),
		modules:   make(map[string]bool),
		out:       &Closure{},
	}
	for _, name := range exclude {
		w.exclude[name] = struct{}{}
	}
	w.visit(module)
	return w.out
}

func (w *walk) visit(m *project.Module) {
	for _, dep := range m.Dependencies {
		if !Follows(dep) {
			continue
		}

		switch dep.Kind() {
		case project.DependencyLibrary:
			w.addLibrary(dep.Library)
		case project.DependencyModule:
			if w.visited[dep.Module] {
				continue
			}
			w.visited[dep.Module] = true

			next, ok := w.graph.Module(dep.Module)
			if !ok {
				continue
			}
			w.addModule(next)
			w.visit(next)
		}
	}
}

func (w *walk) addLibrary(name string) {
	if w.libraries[name] || w.excluded(name) {
		return
	}
	lib, ok := w.graph.Library(name)
	if !ok {
		return
	}
	w.libraries[name] = true
	w.out.Libraries = append(w.out.Libraries, lib)
}

func (w *walk) addModule(m *project.Module) {
	if m.Name == w.seed || w.modules[m.Name] || w.excluded(m.Name) || !m.ContributesOutput() {
		return
	}
	w.modules[m.Name] = true
	w.out.Modules = append(w.out.Modules, m)
}

func (w *walk) excluded(name string) bool {
	_, ok := w.exclude[name]
	return ok
}

// Follows reports whether the collector traverses dep: production scope,
// runtime visible and not the SDK classpath.
func Follows(dep project.Dependency) bool {
	if dep.Kind() == project.DependencySDK || dep.Kind() == "" {
		return false
	}
	scope := dep.EffectiveScope()
	return scope.IsProduction() && scope.IsRuntime()
}

// ModuleNames returns the names of the closure's modules.
func (c *Closure) ModuleNames() []string {
	names := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		names[i] = m.Name
	}
	return names
}

// LibraryNames returns the names of the closure's libraries.
func (c *Closure) LibraryNames() []string {
	names := make([]string, len(c.Libraries))
	for i, l := range c.Libraries {
		names[i] = l.Name
	}
	return names
}

// HasModule reports whether name is in the module set.
func (c *Closure) HasModule(name string) bool {
	for _, m := range c.Modules {
		if m.Name == name {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the closure holds nothing.
func (c *Closure) IsEmpty() bool {
	return len(c.Modules) == 0 && len(c.Libraries) == 0
}
