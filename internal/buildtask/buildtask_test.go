// SPDX-License-Identifier: MPL-2.0

package buildtask

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/pkg/packaging"
	"github.com/artifactgen/artifactgen/pkg/project"
)

type outputs map[string]string

func (o outputs) ModuleOutputDir(name string) (string, bool) {
	d, ok := o[name]
	return d, ok
}

func (outputs) Library(string) (*project.Library, bool) { return nil, false }

func artifact(t *testing.T, pre *registry.Preprocessing) (*registry.Artifact, outputs) {
	t.Helper()
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "Main.class"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := packaging.NewRoot()
	root.AddOrFind(packaging.NewArchive("app.jar")).AddOrFind(packaging.ModuleOutput("app"))
	return &registry.Artifact{
		Name:          "app:jar",
		Type:          registry.TypePlain,
		Module:        "app",
		OutputPath:    filepath.Join(t.TempDir(), "dependency"),
		BuildOnMake:   true,
		Preprocessing: pre,
		Root:          root,
	}, outputs{"app": src}
}

func TestProvider_Gating(t *testing.T) {
	t.Parallel()

	p := NewProvider(preprocess.VirtualShell{}, nil, nil)
	tests := []struct {
		name  string
		phase Phase
		pre   *registry.Preprocessing
		want  int
	}{
		{"no property", PhasePreProcessing, nil, 0},
		{"empty cmd", PhasePreProcessing, &registry.Preprocessing{Name: "app"}, 0},
		{"empty name", PhasePreProcessing, &registry.Preprocessing{Cmd: "make"}, 0},
		{"whitespace command is non-empty", PhasePreProcessing, &registry.Preprocessing{Name: "app", Cmd: "  "}, 1},
		{"wrong phase", PhasePackaging, &registry.Preprocessing{Name: "app", Cmd: "make"}, 0},
		{"runnable", PhasePreProcessing, &registry.Preprocessing{Name: "app", Cmd: "make"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.CreateTasks(tt.phase, &registry.Artifact{Name: "app:jar", Preprocessing: tt.pre})
			if len(got) != tt.want {
				t.Errorf("CreateTasks() = %d tasks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestPipeline_Order(t *testing.T) {
	t.Parallel()

	a, res := artifact(t, &registry.Preprocessing{Name: "gen", Cmd: "true"})
	tasks, err := NewPipeline(NewProvider(preprocess.VirtualShell{}, nil, nil), res, nil).Tasks(a)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 2 || tasks[0].Phase() != PhasePreProcessing || tasks[1].Phase() != PhasePackaging {
		t.Fatalf("tasks out of order: %v", tasks)
	}
	if tasks[0].ID() != "preprocess:gen" || tasks[1].ID() != "package:app:jar" {
		t.Errorf("task IDs = %s, %s", tasks[0].ID(), tasks[1].ID())
	}
}

func TestPipeline_BuildSuccess(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	a, res := artifact(t, &registry.Preprocessing{Name: "gen", Cmd: "echo generated > marker.txt", Dir: workDir})
	sink := &preprocess.Collector{}

	report, err := NewPipeline(NewProvider(preprocess.VirtualShell{}, sink, nil), res, nil).Build(context.Background(), a)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report.Stopped || len(report.Tasks) != 2 {
		t.Errorf("report = %+v", report)
	}
	if _, err := os.Stat(filepath.Join(workDir, "marker.txt")); err != nil {
		t.Errorf("preprocessing did not run in the module directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(a.OutputPath, "app.jar")); err != nil {
		t.Errorf("packaging did not run: %v", err)
	}
	if report.Packaged == nil || len(report.Packaged.Archives) != 1 {
		t.Errorf("Packaged = %+v", report.Packaged)
	}
	if len(sink.Messages()) != 0 {
		t.Errorf("unexpected diagnostics: %v", sink.Messages())
	}
}

func TestPipeline_StopSkipsPackaging(t *testing.T) {
	t.Parallel()

	a, res := artifact(t, &registry.Preprocessing{Name: "gen", Cmd: "echo bad >&2; exit 1"})
	sink := &preprocess.Collector{}

	report, err := NewPipeline(NewProvider(preprocess.VirtualShell{}, sink, nil), res, nil).Build(context.Background(), a)
	if !errors.Is(err, preprocess.ErrStopBuild) {
		t.Fatalf("Build() error = %v, want stop-build", err)
	}
	if !report.Stopped || len(report.Tasks) != 1 {
		t.Errorf("report = %+v, want stopped after one task", report)
	}
	if _, err := os.Stat(filepath.Join(a.OutputPath, "app.jar")); !errors.Is(err, os.ErrNotExist) {
		t.Error("packaging ran after a stop-build")
	}
	if len(sink.Messages()) != 3 {
		t.Errorf("got %d diagnostics, want 3", len(sink.Messages()))
	}
}

func TestPipeline_NoPreprocessing(t *testing.T) {
	t.Parallel()

	a, res := artifact(t, nil)
	report, err := NewPipeline(NewProvider(preprocess.VirtualShell{}, nil, nil), res, nil).Build(context.Background(), a)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(report.Tasks) != 1 || report.Tasks[0].Phase != PhasePackaging {
		t.Errorf("report = %+v", report)
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	if PhasePreProcessing.String() != "pre-processing" || Phase(9).String() != "Phase(9)" {
		t.Error("Phase.String mismatch")
	}
}
