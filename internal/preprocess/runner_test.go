// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no POSIX shell on PATH")
	}
}

func shells(t *testing.T) map[string]Shell {
	t.Helper()
	requireSh(t)
	return map[string]Shell{
		"native":  &NativeShell{},
		"virtual": VirtualShell{},
	}
}

func TestRunner_Success(t *testing.T) {
	t.Parallel()

	for name, shell := range shells(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sink := &Collector{}
			r := NewRunner(shell, sink)
			if r.State() != NotStarted {
				t.Fatalf("initial State() = %v", r.State())
			}

			res, err := r.Run(context.Background(), `x=gen; echo "$x-ok" | cat`, t.TempDir())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Stdout != "gen-ok\n" || !res.ExitCode.IsSuccess() {
				t.Errorf("Run() = %+v", res)
			}
			if r.State() != Succeeded {
				t.Errorf("State() = %v, want Succeeded", r.State())
			}
			if msgs := sink.Messages(); len(msgs) != 0 {
				t.Errorf("success produced messages: %v", msgs)
			}
		})
	}
}

func TestRunner_NonZeroExit(t *testing.T) {
	t.Parallel()

	const cmd = `echo out; echo err >&2; exit 3`
	for name, shell := range shells(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sink := &Collector{}
			r := NewRunner(shell, sink)
			res, err := r.Run(context.Background(), cmd, "")

			var stop *StopBuildError
			if !errors.As(err, &stop) {
				t.Fatalf("Run() error = %v, want *StopBuildError", err)
			}
			if !IsStopBuild(err) || errors.Is(err, ErrProjectBuild) {
				t.Errorf("error classification wrong: %v", err)
			}
			if stop.ExitCode != 3 || res.ExitCode != 3 {
				t.Errorf("exit code = %d/%d, want 3", stop.ExitCode, res.ExitCode)
			}
			if r.State() != Failed {
				t.Errorf("State() = %v, want Failed", r.State())
			}

			msgs := sink.Messages()
			if len(msgs) != 3 {
				t.Fatalf("got %d messages, want 3: %v", len(msgs), msgs)
			}
			want := []string{"out\n", "err\n", "Cannot run '" + cmd + "'"}
			for i, m := range msgs {
				if m.Source != Source || m.Severity != SeverityError {
					t.Errorf("message %d tagged %s/%s", i, m.Source, m.Severity)
				}
				if m.Text != want[i] {
					t.Errorf("message %d = %q, want %q", i, m.Text, want[i])
				}
			}
		})
	}
}

func TestRunner_LaunchFailure(t *testing.T) {
	t.Parallel()

	sink := &Collector{}
	r := NewRunner(&NativeShell{Path: "/definitely/not/a/shell"}, sink)
	_, err := r.Run(context.Background(), "true", "")

	var pbe *ProjectBuildError
	if !errors.As(err, &pbe) {
		t.Fatalf("Run() error = %v, want *ProjectBuildError", err)
	}
	if !errors.Is(err, ErrProjectBuild) || !errors.Is(err, ErrShellNotFound) {
		t.Errorf("error should match ErrProjectBuild and ErrShellNotFound: %v", err)
	}
	if IsStopBuild(err) {
		t.Error("launch failure is not a stop-build")
	}
	if len(sink.Messages()) != 0 {
		t.Error("launch failure should not emit diagnostics")
	}
	if r.State() != Failed {
		t.Errorf("State() = %v, want Failed", r.State())
	}
}

func TestRunner_SingleUse(t *testing.T) {
	t.Parallel()

	r := NewRunner(VirtualShell{}, nil)
	if _, err := r.Run(context.Background(), "true", ""); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := r.Run(context.Background(), "true", ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()
	requireSh(t)
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	sink := &Collector{}
	r := NewRunner(&NativeShell{}, sink, WithTimeout(100*time.Millisecond))
	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 10", "")

	var stop *StopBuildError
	if !errors.As(err, &stop) || !stop.TimedOut {
		t.Fatalf("Run() error = %v, want timed-out StopBuildError", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not interrupt the command")
	}
	if res.ExitCode != timeoutExitCode {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, timeoutExitCode)
	}
	if len(sink.Messages()) != 3 {
		t.Errorf("timeout should emit 3 messages, got %d", len(sink.Messages()))
	}
}

func TestRunner_MaxOutput(t *testing.T) {
	t.Parallel()

	r := NewRunner(VirtualShell{}, nil, WithMaxOutput(4))
	res, err := r.Run(context.Background(), "echo abcdefghij", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := "abcd\n[output truncated after 4 bytes]"; res.Stdout != want {
		t.Errorf("Stdout = %q, want %q", res.Stdout, want)
	}
}

func TestRunner_DirAndEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRunner(VirtualShell{}, nil, WithEnv("GEN_TARGET=proto"))
	res, err := r.Run(context.Background(), `pwd; echo "$GEN_TARGET"`, dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasPrefix(res.Stdout, dir+"\n") || !strings.HasSuffix(res.Stdout, "proto\n") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestVirtualShell_ParseError(t *testing.T) {
	t.Parallel()

	sink := &Collector{}
	_, err := NewRunner(VirtualShell{}, sink).Run(context.Background(), "if then fi (", "")
	var stop *StopBuildError
	if !errors.As(err, &stop) || stop.ExitCode != 2 {
		t.Fatalf("Run() error = %v, want StopBuildError with code 2", err)
	}
	if len(sink.Messages()) != 3 {
		t.Errorf("parse failure should emit 3 messages")
	}
}

func TestNewShell(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		runtime string
		want    string
		wantErr bool
	}{
		{"", "native", false},
		{"native", "native", false},
		{"virtual", "virtual", false},
		{"container", "", true},
	} {
		s, err := NewShell(tt.runtime, "")
		if (err != nil) != tt.wantErr {
			t.Errorf("NewShell(%q) error = %v", tt.runtime, err)
			continue
		}
		if err == nil && s.Name() != tt.want {
			t.Errorf("NewShell(%q).Name() = %q", tt.runtime, s.Name())
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if Running.String() != "Running" || State(42).String() != "State(42)" {
		t.Error("State.String mismatch")
	}
}

func TestTee(t *testing.T) {
	t.Parallel()

	a, b := &Collector{}, &Collector{}
	Tee(a, b, LogSink{}).Add(Message{Text: "x"})
	if len(a.Messages()) != 1 || len(b.Messages()) != 1 {
		t.Error("Tee did not fan out")
	}
}
