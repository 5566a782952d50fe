// SPDX-License-Identifier: MPL-2.0

package project

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/artifactgen/artifactgen/pkg/cueutil"
)

// DefaultFileName is the descriptor looked up in the project directory.
const DefaultFileName = "project.cue"

var (
	//go:embed project_schema.cue
	projectSchema string

	// ErrModuleNotFound is returned when a module name has no registered module.
	ErrModuleNotFound = errors.New("module not found")

	// ErrInvalidProject is the sentinel wrapped by InvalidProjectError.
	ErrInvalidProject = errors.New("invalid project")
)

type (
	// Project is the registry of modules and libraries. It is immutable.
	Project struct {
		// Path is the descriptor the project was loaded from, if any.
		Path string
		// Dir is the project base directory.
		Dir string

		modules   []*Module
		libraries []*Library
		byModule  map[string]*Module
		byLibrary map[string]*Library
	}

	// InvalidProjectError collects every structural problem found in a descriptor.
	InvalidProjectError struct {
		Problems []string
	}

	descriptor struct {
		Modules   []*Module  `json:"modules"`
		Libraries []*Library `json:"libraries"`
	}
)

// Error implements the error interface.
func (e *InvalidProjectError) Error() string {
	return fmt.Sprintf("invalid project: %s", strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidProject for errors.Is() compatibility.
func (e *InvalidProjectError) Unwrap() error { return ErrInvalidProject }

// Schema returns the embedded CUE schema for project descriptors.
func Schema() string { return projectSchema }

// New validates the given modules and libraries and builds a Project.
// Declaration order is preserved and drives every ordered traversal.
func New(dir string, modules []*Module, libraries []*Library) (*Project, error) {
	p := &Project{
		Dir:       dir,
		modules:   modules,
		libraries: libraries,
		byModule:  make(map[string]*Module, len(modules)),
		byLibrary: make(map[string]*Library, len(libraries)),
	}

	var problems []string
	for _, lib := range libraries {
		if lib.Name == "" {
			problems = append(problems, "library with empty name")
			continue
		}
		if _, dup := p.byLibrary[lib.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate library %q", lib.Name))
			continue
		}
		p.byLibrary[lib.Name] = lib
	}
	for _, m := range modules {
		if m.Name == "" {
			problems = append(problems, "module with empty name")
			continue
		}
		if _, dup := p.byModule[m.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate module %q", m.Name))
			continue
		}
		p.byModule[m.Name] = m
	}
	for _, m := range modules {
		for i, dep := range m.Dependencies {
			if err := dep.validate(); err != nil {
				problems = append(problems, fmt.Sprintf("module %q dependency #%d: %v", m.Name, i, err))
				continue
			}
			switch dep.Kind() {
			case DependencyModule:
				if _, ok := p.byModule[dep.Module]; !ok {
					problems = append(problems, fmt.Sprintf("module %q depends on unknown module %q", m.Name, dep.Module))
				}
			case DependencyLibrary:
				if _, ok := p.byLibrary[dep.Library]; !ok {
					problems = append(problems, fmt.Sprintf("module %q depends on unknown library %q", m.Name, dep.Library))
				}
			}
		}
	}

	if len(problems) > 0 {
		return nil, &InvalidProjectError{Problems: problems}
	}
	return p, nil
}

// Load reads and validates a project descriptor.
func Load(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	desc, err := cueutil.DecodeFile[descriptor]([]byte(projectSchema), abs, "#Project")
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(abs)
	for _, m := range desc.Modules {
		m.Dir = resolvePath(dir, m.Dir)
		m.Output = resolvePath(dir, m.Output)
	}
	for _, lib := range desc.Libraries {
		for i := range lib.Roots {
			lib.Roots[i].Path = resolvePath(dir, lib.Roots[i].Path)
		}
	}

	p, err := New(dir, desc.Modules, desc.Libraries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	p.Path = abs
	return p, nil
}

// Module returns the module registered under name.
func (p *Project) Module(name string) (*Module, bool) {
	m, ok := p.byModule[name]
	return m, ok
}

// Library returns the library registered under name.
func (p *Project) Library(name string) (*Library, bool) {
	l, ok := p.byLibrary[name]
	return l, ok
}

// Modules returns all modules in declaration order.
func (p *Project) Modules() []*Module { return p.modules }

// Libraries returns all libraries in declaration order.
func (p *Project) Libraries() []*Library { return p.libraries }

// ModuleNames returns module names in declaration order.
func (p *Project) ModuleNames() []string {
	names := make([]string, 0, len(p.modules))
	for _, m := range p.modules {
		names = append(names, m.Name)
	}
	return names
}

// ModuleOutputDir returns the production output directory of a module.
// The second result is false when the module is unknown or has no output.
func (p *Project) ModuleOutputDir(name string) (string, bool) {
	m, ok := p.byModule[name]
	if !ok || m.Output == "" {
		return "", false
	}
	return m.Output, true
}

// RequireModule is Module with an error for unknown names.
func (p *Project) RequireModule(name string) (*Module, error) {
	m, ok := p.byModule[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	return m, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
