// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/pkg/types"
)

// ExitError carries a specific exit code out of a RunE handler.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a stopped build to ExitStopped and everything else to
// ExitFailure.
func exitCodeFor(err error) error {
	if err == nil {
		return nil
	}
	if preprocess.IsStopBuild(err) {
		return &ExitError{Code: types.ExitStopped, Err: err}
	}
	return err
}
