// SPDX-License-Identifier: MPL-2.0

package project

import (
	"fmt"
	"strings"
)

const (
	// ScopeCompile edges are visible at compile time and at runtime.
	ScopeCompile Scope = "compile"
	// ScopeRuntime edges are only needed at runtime.
	ScopeRuntime Scope = "runtime"
	// ScopeProvided edges are compile-only; the runtime supplies them.
	ScopeProvided Scope = "provided"
	// ScopeTest edges belong to test sources and never reach production output.
	ScopeTest Scope = "test"

	// RootClasses is a directory of compiled classes on the local filesystem.
	RootClasses RootKind = "classes"
	// RootArchive is a single packaged file (a jar) copied as-is.
	RootArchive RootKind = "archive"

	// DependencyModule points at another module of the project.
	DependencyModule DependencyKind = "module"
	// DependencyLibrary points at a project-wide library.
	DependencyLibrary DependencyKind = "library"
	// DependencySDK points at the SDK classpath.
	DependencySDK DependencyKind = "sdk"
)

type (
	// Scope is the visibility of a dependency edge.
	Scope string

	// RootKind tags a library content root.
	RootKind string

	// DependencyKind identifies what a dependency edge points at.
	DependencyKind string

	// Coordinates are build-tool coordinates (group:artifact:version[:classifier]).
	Coordinates struct {
		Group      string `json:"group"`
		Artifact   string `json:"artifact"`
		Version    string `json:"version"`
		Classifier string `json:"classifier,omitempty"`
	}

	// Dependency is one outgoing edge of a module. Exactly one of Module,
	// Library or SDK is set.
	Dependency struct {
		Module  string `json:"module,omitempty"`
		Library string `json:"library,omitempty"`
		SDK     string `json:"sdk,omitempty"`
		Scope   Scope  `json:"scope"`
	}

	// Module is a compilable unit with ordered dependency edges.
	Module struct {
		Name string `json:"name"`
		// Dir is the module root directory.
		Dir string `json:"dir,omitempty"`
		// Output is the production compiler output directory.
		Output string `json:"output,omitempty"`
		// RuntimeOutput reports whether the module contributes packaged output.
		RuntimeOutput bool         `json:"runtime_output"`
		Coordinates   *Coordinates `json:"coordinates,omitempty"`
		Dependencies  []Dependency `json:"dependencies"`
	}

	// ContentRoot is one root of a library.
	ContentRoot struct {
		Path string   `json:"path"`
		Kind RootKind `json:"kind"`
	}

	// Library is a named set of content roots shared by modules.
	Library struct {
		Name  string        `json:"name"`
		Roots []ContentRoot `json:"roots"`
	}
)

// IsProduction reports whether the scope contributes to production code.
func (s Scope) IsProduction() bool { return s != ScopeTest }

// IsRuntime reports whether the scope is visible at runtime.
func (s Scope) IsRuntime() bool { return s != ScopeProvided }

// Validate returns an error for unknown scopes. The empty scope means compile.
func (s Scope) Validate() error {
	switch s {
	case "", ScopeCompile, ScopeRuntime, ScopeProvided, ScopeTest:
		return nil
	default:
		return fmt.Errorf("unknown scope %q", s)
	}
}

// IsZero reports whether no coordinates were declared.
func (c *Coordinates) IsZero() bool {
	return c == nil || (c.Group == "" && c.Artifact == "" && c.Version == "")
}

// String renders group:artifact:version[:classifier].
func (c *Coordinates) String() string {
	if c.IsZero() {
		return ""
	}
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s
}

// Kind reports what the edge points at, or "" when no target is set.
func (d Dependency) Kind() DependencyKind {
	switch {
	case d.Module != "":
		return DependencyModule
	case d.Library != "":
		return DependencyLibrary
	case d.SDK != "":
		return DependencySDK
	default:
		return ""
	}
}

// Target returns the name the edge points at.
func (d Dependency) Target() string {
	switch d.Kind() {
	case DependencyModule:
		return d.Module
	case DependencyLibrary:
		return d.Library
	default:
		return d.SDK
	}
}

// EffectiveScope returns the declared scope, defaulting to compile.
func (d Dependency) EffectiveScope() Scope {
	if d.Scope == "" {
		return ScopeCompile
	}
	return d.Scope
}

func (d Dependency) validate() error {
	set := 0
	for _, v := range []string{d.Module, d.Library, d.SDK} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("dependency must name exactly one of module, library or sdk")
	}
	return d.Scope.Validate()
}

// ContributesOutput reports whether the module produces packaged output: it
// must have a production output directory and not opt out of runtime output.
func (m *Module) ContributesOutput() bool { return m.RuntimeOutput && m.Output != "" }

// HasClassesDirectories reports whether any root is a directory of classes.
func (l *Library) HasClassesDirectories() bool {
	for _, r := range l.Roots {
		if r.Kind != RootArchive {
			return true
		}
	}
	return false
}

// ArchiveRoots returns the roots that are packaged files.
func (l *Library) ArchiveRoots() []ContentRoot {
	var out []ContentRoot
	for _, r := range l.Roots {
		if r.Kind == RootArchive {
			out = append(out, r)
		}
	}
	return out
}

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with '_'.
func SanitizeFileName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
