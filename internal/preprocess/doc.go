// SPDX-License-Identifier: MPL-2.0

// Package preprocess runs the shell command registered for a module before its
// artifact is packaged.
//
// A Runner executes one command through a Shell (the host shell via "bash -c",
// or the embedded mvdan/sh interpreter), buffers stdout and stderr separately
// and moves through NotStarted, Running and then Succeeded or Failed. A
// non-zero exit reports three ERROR messages to the build message Sink
// (captured stdout, captured stderr and "Cannot run '<cmd>'") and returns a
// StopBuildError. A command that cannot be launched at all returns a
// ProjectBuildError instead.
package preprocess
