// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `
modules: [
	{
		name:   "app"
		dir:    "app"
		output: "out/production/app"
		coordinates: {group: "com.example", artifact: "app", version: "2.1.0"}
		dependencies: [
			{module: "core"},
			{library: "guava", scope: "runtime"},
			{sdk: "jdk17"},
		]
	},
	{name: "core", output: "/abs/core", runtime_output: false},
]
libraries: [
	{name: "guava", roots: [{path: "lib/guava.jar", kind: "archive"}]},
]
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	base := filepath.Dir(path)

	if p.Path != path || p.Dir != base {
		t.Errorf("Path/Dir = %q/%q, want %q/%q", p.Path, p.Dir, path, base)
	}
	if got := p.ModuleNames(); !slices.Equal(got, []string{"app", "core"}) {
		t.Errorf("ModuleNames() = %v", got)
	}

	app, ok := p.Module("app")
	if !ok {
		t.Fatal("Module(app) not found")
	}
	if app.Dir != filepath.Join(base, "app") {
		t.Errorf("app.Dir = %q", app.Dir)
	}
	if !app.ContributesOutput() {
		t.Error("runtime_output should default to true")
	}
	if app.Coordinates.String() != "com.example:app:2.1.0" {
		t.Errorf("Coordinates = %q", app.Coordinates.String())
	}
	if len(app.Dependencies) != 3 {
		t.Fatalf("len(Dependencies) = %d, want 3", len(app.Dependencies))
	}
	if app.Dependencies[0].Scope != ScopeCompile {
		t.Errorf("default scope = %q, want compile", app.Dependencies[0].Scope)
	}
	if app.Dependencies[2].Kind() != DependencySDK {
		t.Errorf("third edge kind = %q, want sdk", app.Dependencies[2].Kind())
	}

	core, _ := p.Module("core")
	if core.ContributesOutput() {
		t.Error("core declares runtime_output: false")
	}
	if dir, ok := p.ModuleOutputDir("core"); !ok || dir != "/abs/core" {
		t.Errorf("ModuleOutputDir(core) = %q, %v", dir, ok)
	}

	lib, ok := p.Library("guava")
	if !ok {
		t.Fatal("Library(guava) not found")
	}
	if lib.HasClassesDirectories() {
		t.Error("guava only has an archive root")
	}
	if lib.Roots[0].Path != filepath.Join(base, "lib", "guava.jar") {
		t.Errorf("root path = %q", lib.Roots[0].Path)
	}
}

func TestLoadSchemaViolation(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `modules: [{name: "app", dependencies: [{module: "x", scope: "bogus"}]}]`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected schema error for unknown scope")
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		modules   []*Module
		libraries []*Library
		wantSub   string
	}{
		{
			name:    "duplicate module",
			modules: []*Module{{Name: "a"}, {Name: "a"}},
			wantSub: `duplicate module "a"`,
		},
		{
			name:      "duplicate library",
			libraries: []*Library{{Name: "l"}, {Name: "l"}},
			wantSub:   `duplicate library "l"`,
		},
		{
			name:    "unknown module target",
			modules: []*Module{{Name: "a", Dependencies: []Dependency{{Module: "ghost"}}}},
			wantSub: `unknown module "ghost"`,
		},
		{
			name:    "unknown library target",
			modules: []*Module{{Name: "a", Dependencies: []Dependency{{Library: "ghost"}}}},
			wantSub: `unknown library "ghost"`,
		},
		{
			name:    "two targets",
			modules: []*Module{{Name: "a"}, {Name: "b", Dependencies: []Dependency{{Module: "a", SDK: "jdk"}}}},
			wantSub: "exactly one",
		},
		{
			name:    "no target",
			modules: []*Module{{Name: "a", Dependencies: []Dependency{{Scope: ScopeRuntime}}}},
			wantSub: "exactly one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New("/p", tt.modules, tt.libraries)
			if err == nil {
				t.Fatal("New() expected error")
			}
			if !errors.Is(err, ErrInvalidProject) {
				t.Errorf("errors.Is(err, ErrInvalidProject) = false for %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestRequireModule(t *testing.T) {
	t.Parallel()

	p, err := New("/p", []*Module{{Name: "a"}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.RequireModule("a"); err != nil {
		t.Errorf("RequireModule(a) error = %v", err)
	}
	if _, err := p.RequireModule("b"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("RequireModule(b) error = %v, want ErrModuleNotFound", err)
	}
	if _, ok := p.ModuleOutputDir("a"); ok {
		t.Error("module without output reported an output dir")
	}
}

func TestScopeAndNames(t *testing.T) {
	t.Parallel()

	if ScopeTest.IsProduction() || !ScopeProvided.IsProduction() {
		t.Error("IsProduction mismatch")
	}
	if ScopeProvided.IsRuntime() || !ScopeRuntime.IsRuntime() || !ScopeCompile.IsRuntime() {
		t.Error("IsRuntime mismatch")
	}
	if got := (Dependency{}).EffectiveScope(); got != ScopeCompile {
		t.Errorf("EffectiveScope() = %q", got)
	}
	if got := SanitizeFileName("my app/core:x"); got != "my_app_core_x" {
		t.Errorf("SanitizeFileName() = %q", got)
	}
	c := &Coordinates{Group: "g", Artifact: "a", Version: "1", Classifier: "all"}
	if c.String() != "g:a:1:all" {
		t.Errorf("String() = %q", c.String())
	}
	var nilCoords *Coordinates
	if !nilCoords.IsZero() || nilCoords.String() != "" {
		t.Error("nil coordinates should be zero")
	}
}
