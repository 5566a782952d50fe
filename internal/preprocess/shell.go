// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const waitDelay = 2 * time.Second

type (
	// Shell runs a command string. A non-nil error means the command could
	// not be started; a finished command reports its status as exitCode.
	Shell interface {
		Name() string
		Run(ctx context.Context, command, dir string, env []string, stdout, stderr io.Writer) (exitCode int, err error)
	}

	// NativeShell runs commands as "<shell> -c <command>" on the host.
	NativeShell struct {
		// Path forces a shell binary. Empty means bash, then sh, from PATH.
		Path string
	}

	// VirtualShell runs commands in the embedded mvdan/sh POSIX interpreter.
	// External programs are still executed from PATH.
	VirtualShell struct{}
)

// Name returns "native".
func (s *NativeShell) Name() string { return "native" }

// Resolve returns the shell binary that Run would use.
func (s *NativeShell) Resolve() (string, error) {
	if s.Path != "" {
		if _, err := exec.LookPath(s.Path); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrShellNotFound, s.Path, err)
		}
		return s.Path, nil
	}
	for _, candidate := range []string{"bash", "sh"} {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", ErrShellNotFound
}

// Run implements Shell.
func (s *NativeShell) Run(ctx context.Context, command, dir string, env []string, stdout, stderr io.Writer) (int, error) {
	shell, err := s.Resolve()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Background children may keep the pipes open after the shell is killed.
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}

// Name returns "virtual".
func (VirtualShell) Name() string { return "virtual" }

// Run implements Shell. A command that does not parse finishes with status 2
// and the parse error on stderr, the way a POSIX shell reports syntax errors.
func (VirtualShell) Run(ctx context.Context, command, dir string, env []string, stdout, stderr io.Writer) (int, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2, nil
	}

	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return 0, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), env...)...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return int(exitStatus), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 1, nil
		}
		return 0, err
	}
	return 0, nil
}

// NewShell returns the shell for a runtime name ("native" or "virtual").
func NewShell(runtime, path string) (Shell, error) {
	switch runtime {
	case "", "native":
		return &NativeShell{Path: path}, nil
	case "virtual":
		return VirtualShell{}, nil
	default:
		return nil, fmt.Errorf("unknown shell runtime %q", runtime)
	}
}
