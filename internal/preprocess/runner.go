// SPDX-License-Identifier: MPL-2.0

package preprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/artifactgen/artifactgen/pkg/types"

	"github.com/charmbracelet/log"
)

const (
	NotStarted State = iota
	Running
	Succeeded
	Failed
)

// timeoutExitCode is reported for commands killed by the timeout, as timeout(1) does.
const timeoutExitCode types.ExitCode = 124

type (
	// State is the lifecycle position of a Runner.
	State int

	// Result is the outcome of a finished command.
	Result struct {
		ExitCode types.ExitCode
		Stdout   string
		Stderr   string
		Duration time.Duration
	}

	// Option configures a Runner.
	Option func(*Runner)

	// Runner executes one preprocessing command. It is single use.
	Runner struct {
		shell     Shell
		sink      Sink
		logger    *log.Logger
		timeout   time.Duration
		maxOutput int
		env       []string

		mu    sync.Mutex
		state State
	}

	cappedBuffer struct {
		buf       bytes.Buffer
		limit     int
		truncated bool
	}
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds the command's run time. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithMaxOutput caps each captured stream at n bytes. Zero means unbounded.
func WithMaxOutput(n int) Option {
	return func(r *Runner) { r.maxOutput = n }
}

// WithEnv adds KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.env = append(r.env, env...) }
}

// NewRunner returns a Runner that reports to sink. A nil sink drops messages.
func NewRunner(shell Shell, sink Sink, opts ...Option) *Runner {
	if sink == nil {
		sink = SinkFunc(func(Message) {})
	}
	r := &Runner{shell: shell, sink: sink, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes command in dir and blocks until it exits.
//
// Exit code 0 returns the result and a nil error. A non-zero exit, or expiry
// of the configured timeout, emits three ERROR messages to the sink and
// returns the result with a *StopBuildError. A launch failure returns a
// *ProjectBuildError and no messages.
func (r *Runner) Run(ctx context.Context, command, dir string) (*Result, error) {
	r.mu.Lock()
	if r.state != NotStarted {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	r.state = Running
	r.mu.Unlock()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stdout := &cappedBuffer{limit: r.maxOutput}
	stderr := &cappedBuffer{limit: r.maxOutput}

	r.logger.Debug("running preprocessing command", "cmd", command, "dir", dir, "shell", r.shell.Name())
	start := time.Now()
	code, err := r.shell.Run(runCtx, command, dir, r.env, stdout, stderr)
	elapsed := time.Since(start)

	if err != nil {
		r.setState(Failed)
		return nil, &ProjectBuildError{Command: command, Err: err}
	}

	res := &Result{
		ExitCode: types.Normalize(code),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	timedOut := r.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		res.ExitCode = timeoutExitCode
		res.Stderr += fmt.Sprintf("\ncommand timed out after %s", r.timeout)
	}

	if code == 0 && !timedOut {
		r.setState(Succeeded)
		r.logger.Debug("preprocessing command finished", "cmd", command, "duration", elapsed)
		return res, nil
	}

	r.setState(Failed)
	r.sink.Add(Message{Source: Source, Severity: SeverityError, Text: res.Stdout})
	r.sink.Add(Message{Source: Source, Severity: SeverityError, Text: res.Stderr})
	r.sink.Add(Message{Source: Source, Severity: SeverityError, Text: fmt.Sprintf("Cannot run '%s'", command)})
	return res, &StopBuildError{Command: command, ExitCode: res.ExitCode, TimedOut: timedOut}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return n, nil
	}
	b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + fmt.Sprintf("\n[output truncated after %d bytes]", b.limit)
	}
	return b.buf.String()
}
