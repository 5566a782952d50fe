// SPDX-License-Identifier: MPL-2.0

package trigger

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/internal/testutil"
	"github.com/artifactgen/artifactgen/pkg/project"
)

func newProject(t *testing.T, dir string, names ...string) *project.Project {
	t.Helper()
	modules := make([]*project.Module, 0, len(names))
	for _, n := range names {
		modules = append(modules, &project.Module{
			Name:          n,
			Output:        filepath.Join(dir, "out", "production", n),
			RuntimeOutput: true,
		})
	}
	p, err := project.New(dir, modules, nil)
	if err != nil {
		t.Fatalf("project.New() error = %v", err)
	}
	return p
}

func enabledConfig(dir string, modules ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseDir = dir
	cfg.Enabled = true
	for _, m := range modules {
		cfg.Modules = append(cfg.Modules, config.ModuleConfig{Name: m})
	}
	return cfg
}

func TestDiff(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := newProject(t, dir, "app", "core")

	moved := newProject(t, dir, "app", "core")
	moved.Modules()[1].Output = filepath.Join(dir, "elsewhere")

	tests := []struct {
		name  string
		prev  *project.Project
		next  *project.Project
		kinds []Kind
		added []string
	}{
		{name: "first snapshot", prev: nil, next: base, kinds: []Kind{ModuleAdded}, added: []string{"app", "core"}},
		{name: "unchanged", prev: base, next: newProject(t, dir, "app", "core"), kinds: nil},
		{name: "module added", prev: base, next: newProject(t, dir, "app", "core", "web"), kinds: []Kind{ModuleAdded}, added: []string{"web"}},
		{name: "module removed", prev: base, next: newProject(t, dir, "app"), kinds: []Kind{RootsChanged}},
		{name: "output moved", prev: base, next: moved, kinds: []Kind{RootsChanged}},
		{name: "added and removed", prev: base, next: newProject(t, dir, "app", "web"), kinds: []Kind{ModuleAdded, RootsChanged}, added: []string{"web"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			events := Diff(tt.prev, tt.next)
			var kinds []Kind
			for _, ev := range events {
				kinds = append(kinds, ev.Kind)
			}
			if !slices.Equal(kinds, tt.kinds) {
				t.Fatalf("kinds = %v, want %v", kinds, tt.kinds)
			}
			if tt.added != nil && !slices.Equal(events[0].Modules, tt.added) {
				t.Errorf("added = %v, want %v", events[0].Modules, tt.added)
			}
		})
	}
}

func TestBus_Publish_AllHandlersRun(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var calls []string
	errBoom := errors.New("boom")
	bus.Subscribe(HandlerFunc(func(context.Context, Event) error {
		calls = append(calls, "first")
		return errBoom
	}))
	bus.Subscribe(HandlerFunc(func(_ context.Context, ev Event) error {
		calls = append(calls, "second:"+ev.Kind.String())
		return nil
	}))

	err := bus.Publish(context.Background(), Event{Kind: ModuleAdded})
	if !errors.Is(err, errBoom) {
		t.Errorf("Publish() error = %v, want errBoom", err)
	}
	if !slices.Equal(calls, []string{"first", "second:module-added"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestListener_Handle_ReassemblesAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New(nil)
	committer := registry.NewCommitter(reg, nil)
	t.Cleanup(func() { testutil.MustClose(t, committer) })

	proj := newProject(t, dir, "app", "core")
	cfg := enabledConfig(dir, "app", "core", "ghost")
	loads := 0
	loader := LoaderFunc(func(context.Context) (*project.Project, *config.Config, error) {
		loads++
		return proj, cfg, nil
	})

	l := NewListener(loader, committer, nil)
	if err := l.Handle(context.Background(), Event{Kind: ModuleAdded, Modules: []string{"core"}}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}

	runs, report := l.Runs()
	if runs != 1 || len(report.Submitted) != 2 || len(report.Skipped) != 1 {
		t.Fatalf("runs=%d report=%+v", runs, report)
	}
	for _, name := range []string{"app:jar", "core:jar"} {
		a, ok := reg.Get(name)
		if !ok || !a.BuildOnMake {
			t.Errorf("artifact %s not committed: %+v", name, a)
		}
	}

	// An event carrying its snapshot skips the loader and replaces the artifacts.
	if err := l.Handle(context.Background(), Event{Kind: RootsChanged, Project: proj, Config: cfg}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
	if got := len(reg.Artifacts()); got != 2 {
		t.Errorf("artifacts after second pass = %d, want 2", got)
	}
}

func TestListener_Handle_LoadError(t *testing.T) {
	t.Parallel()

	committer := registry.NewCommitter(registry.New(nil), nil)
	t.Cleanup(func() { testutil.MustClose(t, committer) })

	errLoad := errors.New("descriptor unreadable")
	l := NewListener(LoaderFunc(func(context.Context) (*project.Project, *config.Config, error) {
		return nil, nil, errLoad
	}), committer, nil)

	if err := l.Handle(context.Background(), Event{Kind: RootsChanged}); !errors.Is(err, errLoad) {
		t.Errorf("Handle() error = %v, want errLoad", err)
	}
	if runs, _ := l.Runs(); runs != 0 {
		t.Errorf("runs = %d, want 0", runs)
	}
}

func TestSource_Changed_PublishesDiff(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu   sync.Mutex
		proj = newProject(t, dir, "app")
	)
	cfg := enabledConfig(dir, "app")
	loader := LoaderFunc(func(context.Context) (*project.Project, *config.Config, error) {
		mu.Lock()
		defer mu.Unlock()
		return proj, cfg, nil
	})

	bus := NewBus()
	var got []Event
	bus.Subscribe(HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, ev)
		return nil
	}))

	src := NewSource(loader, bus, nil)
	ctx := context.Background()
	if err := src.Prime(ctx); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}

	mu.Lock()
	proj = newProject(t, dir, "app", "web")
	mu.Unlock()
	if err := src.Changed(ctx, []string{"project.cue"}); err != nil {
		t.Fatalf("Changed() error = %v", err)
	}
	if err := src.Changed(ctx, []string{"app/src/Main.java"}); err != nil {
		t.Fatalf("Changed() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("published %d events, want 3", len(got))
	}
	if got[0].Kind != RootsChanged || got[0].Project == nil {
		t.Errorf("prime event = %+v", got[0])
	}
	if got[1].Kind != ModuleAdded || !slices.Equal(got[1].Modules, []string{"web"}) {
		t.Errorf("second event = %+v", got[1])
	}
	if got[2].Kind != RootsChanged || !slices.Equal(got[2].Paths, []string{"app/src/Main.java"}) {
		t.Errorf("third event = %+v", got[2])
	}
	if got[2].Config != cfg {
		t.Error("event does not carry the loaded config")
	}
}

func TestFileLoader_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, config.FilePath(dir), "enabled: true\nmodules: [{name: \"app\"}]\n")
	testutil.WriteFile(t, filepath.Join(dir, project.DefaultFileName), `modules: [{name: "app", output: "out/app"}]`+"\n")

	proj, cfg, err := NewFileLoader(nil, config.LoadOptions{BaseDir: dir}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Enabled {
		t.Error("config not loaded from artifactgen.cue")
	}
	if out, ok := proj.ModuleOutputDir("app"); !ok || out != filepath.Join(dir, "out", "app") {
		t.Errorf("ModuleOutputDir(app) = %q, %v", out, ok)
	}
}

func TestFileLoader_MissingDescriptor(t *testing.T) {
	t.Parallel()

	_, _, err := NewFileLoader(nil, config.LoadOptions{BaseDir: t.TempDir()}).Load(context.Background())
	if err == nil {
		t.Fatal("expected an error for a missing project descriptor")
	}
}
