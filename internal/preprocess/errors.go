// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"errors"
	"fmt"

	"github.com/artifactgen/artifactgen/pkg/types"
)

var (
	// ErrStopBuild signals a controlled stop of the current build task.
	ErrStopBuild = errors.New("build stopped")
	// ErrProjectBuild signals a failure to run the build task at all.
	ErrProjectBuild = errors.New("project build failed")
	// ErrShellNotFound is returned when no shell binary can be located.
	ErrShellNotFound = errors.New("no shell found")
	// ErrAlreadyStarted is returned when a Runner is run twice.
	ErrAlreadyStarted = errors.New("runner already started")
)

type (
	// StopBuildError is returned when the command exits non-zero or times out.
	// It wraps ErrStopBuild for errors.Is() compatibility.
	StopBuildError struct {
		Command  string
		ExitCode types.ExitCode
		TimedOut bool
	}

	// ProjectBuildError is returned when the command cannot be launched.
	// errors.Is matches both ErrProjectBuild and the launch cause.
	ProjectBuildError struct {
		Command string
		Err     error
	}
)

// Error implements the error interface.
func (e *StopBuildError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("preprocessing command %q timed out", e.Command)
	}
	return fmt.Sprintf("preprocessing command %q exited with code %d", e.Command, e.ExitCode)
}

// Unwrap returns ErrStopBuild.
func (e *StopBuildError) Unwrap() error { return ErrStopBuild }

// Error implements the error interface.
func (e *ProjectBuildError) Error() string {
	return fmt.Sprintf("cannot start preprocessing command %q: %v", e.Command, e.Err)
}

// Unwrap returns ErrProjectBuild and the launch cause.
func (e *ProjectBuildError) Unwrap() []error { return []error{ErrProjectBuild, e.Err} }

// IsStopBuild reports whether err is a controlled build stop.
func IsStopBuild(err error) bool { return errors.Is(err, ErrStopBuild) }
