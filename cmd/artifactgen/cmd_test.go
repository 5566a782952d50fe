// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artifactgen/artifactgen/internal/buildtask"
	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/internal/testutil"
	"github.com/artifactgen/artifactgen/pkg/packaging"
	"github.com/artifactgen/artifactgen/pkg/types"
)

const testProject = `modules: [
	{name: "app", dir: "app", output: "out/app", dependencies: [{module: "core"}]},
	{name: "core", dir: "core", output: "out/core"},
]
`

func writeProject(t *testing.T, configBody string) string {
	t.Helper()
	return testutil.WriteTree(t, t.TempDir(), map[string]string{
		"project.cue":         testProject,
		"artifactgen.cue":     configBody,
		"app/README":          "app",
		"core/README":         "core",
		"out/app/App.class":   "a",
		"out/core/Core.class": "c",
	})
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	app, err := NewApp(Dependencies{Stdout: &out, Stderr: &errOut})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	code = run(context.Background(), app, args)
	return code, out.String(), errOut.String()
}

func TestRun_Build_StopExitCode(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, `enabled: true
modules: [{name: "app"}]
preprocessing: [{name: "core", cmd: "echo failing >&2; exit 7"}]
shell: {runtime: "virtual"}
`)

	code, _, stderr := runCLI(t, "-C", dir, "build")
	if code != int(types.ExitStopped) {
		t.Fatalf("exit code = %d, want %d; stderr:\n%s", code, types.ExitStopped, stderr)
	}
	if !strings.Contains(stderr, "Cannot run 'echo failing >&2; exit 7'") {
		t.Errorf("stderr does not carry the stop message:\n%s", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "dependency", "app-1.0.0-SNAPSHOT.jar")); !os.IsNotExist(err) {
		t.Errorf("archive written despite stopped build (stat err = %v)", err)
	}
}

func TestRun_Build_Success(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, `enabled: true
modules: [{name: "app"}]
shell: {runtime: "virtual"}
`)

	code, stdout, stderr := runCLI(t, "-C", dir, "build")
	if code != int(types.ExitSuccess) {
		t.Fatalf("exit code = %d; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "app:jar") {
		t.Errorf("stdout = %q", stdout)
	}
	for _, name := range []string{"app-1.0.0-SNAPSHOT.jar", "core-1.0.0-SNAPSHOT.jar"} {
		if _, err := os.Stat(filepath.Join(dir, "out", "dependency", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRun_Preprocess(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, `enabled: true
modules: [{name: "app"}]
preprocessing: [{name: "core", cmd: "pwd"}]
shell: {runtime: "virtual"}
`)

	code, stdout, stderr := runCLI(t, "-C", dir, "preprocess", "core")
	if code != 0 {
		t.Fatalf("exit code = %d; stderr:\n%s", code, stderr)
	}
	if strings.TrimSpace(stdout) != filepath.Join(dir, "core") {
		t.Errorf("command ran in %q, want the module directory", strings.TrimSpace(stdout))
	}

	code, _, stderr = runCLI(t, "-C", dir, "preprocess", "app")
	if code != int(types.ExitFailure) || !strings.Contains(stderr, "no pre-processing command") {
		t.Errorf("preprocess app: code=%d stderr=%q", code, stderr)
	}
}

func TestRun_UnknownModule(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, "enabled: true\n")
	code, _, stderr := runCLI(t, "-C", dir, "closure", "nope")
	if code != int(types.ExitFailure) {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "failed to resolve module: nope") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	stop := &preprocess.StopBuildError{Command: "false", ExitCode: 1}
	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{name: "stop build", err: stop, want: types.ExitStopped},
		{name: "wrapped stop build", err: fmt.Errorf("artifact: %w", stop), want: types.ExitStopped},
		{name: "launch failure", err: &preprocess.ProjectBuildError{Command: "x", Err: errors.New("no shell")}, want: types.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := exitCodeFor(tt.err)
			var exitErr *ExitError
			got := types.ExitFailure
			if errors.As(err, &exitErr) {
				got = exitErr.Code
			}
			if got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("original error lost")
			}
		})
	}

	if exitCodeFor(nil) != nil {
		t.Error("exitCodeFor(nil) != nil")
	}
}

func TestRenderTree(t *testing.T) {
	t.Parallel()

	root := packaging.NewRoot()
	jar := root.AddOrFind(packaging.NewArchive("app.jar"))
	jar.AddOrFind(packaging.ModuleOutput("app"))
	root.AddOrFind(packaging.LibraryFiles("guava"))

	out := renderTree(root)
	for _, want := range []string{"<output root>", "app.jar", "'app' compile output", "library guava"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered tree is missing %q:\n%s", want, out)
		}
	}
}

func TestStderrSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stderrSink(&buf).Add(preprocess.Message{Source: preprocess.Source, Severity: preprocess.SeverityError, Text: "exit code 3"})
	out := buf.String()
	for _, want := range []string{"ERROR", "[artifactgen]", "exit code 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("sink output %q is missing %q", out, want)
		}
	}
}

func TestPrintBuildReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printBuildReport(&buf, &registry.Artifact{Name: "app:jar", OutputPath: "out/dependency"}, &buildtask.Report{
		Artifact: "app:jar",
		Packaged: &packaging.Result{
			Archives:  []string{"app.jar"},
			Files:     2,
			Missing:   []string{"/gone"},
			Conflicts: []string{"x.jar <- /b/x.jar"},
		},
	})
	out := buf.String()
	for _, want := range []string{"1 archive(s), 2 file(s) in out/dependency", "missing source:", "/gone", "skipped duplicate:", "x.jar <- /b/x.jar"} {
		if !strings.Contains(out, want) {
			t.Errorf("report is missing %q:\n%s", want, out)
		}
	}
}
