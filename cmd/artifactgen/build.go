// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/artifactgen/artifactgen/internal/buildtask"
	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/internal/registry"

	"github.com/spf13/cobra"
)

func newBuildCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "build [artifact...]",
		Short: "Assemble, run pre-processing and package artifacts",
		Long: `Assemble the configured artifacts, then build them.

For each artifact the pre-processing command (if any) runs first, in the
declaring module's directory. A command that exits non-zero stops the build
with exit code 2. Otherwise the artifact is written to its output directory.
Without arguments every artifact marked build-on-make is built.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx, flags)
			if err != nil {
				return err
			}
			report, err := assemble(ctx, s)
			if err != nil {
				return err
			}
			if report.Disabled {
				printPassReport(app.stdout, report)
				return nil
			}

			artifacts, err := selectArtifacts(s.registry, args)
			if err != nil {
				return err
			}
			provider, err := newTaskProvider(s, stderrSink(app.stderr))
			if err != nil {
				return err
			}
			pipeline := buildtask.NewPipeline(provider, s.proj, s.logger.WithPrefix("build"))
			for _, a := range artifacts {
				r, err := pipeline.Build(ctx, a)
				if err != nil {
					return exitCodeFor(classifyBuildError(err))
				}
				printBuildReport(app.stdout, a, r)
			}
			return nil
		},
	}
}

func selectArtifacts(reg *registry.Registry, names []string) ([]*registry.Artifact, error) {
	if len(names) == 0 {
		var out []*registry.Artifact
		for _, a := range reg.Artifacts() {
			if a.BuildOnMake {
				out = append(out, a)
			}
		}
		return out, nil
	}
	out := make([]*registry.Artifact, 0, len(names))
	for _, name := range names {
		a, ok := reg.Get(name)
		if !ok {
			return nil, issue.NewErrorContext().
				WithOperation("select artifact").
				WithResource(name).
				WithSuggestion("List the registered artifacts with 'artifactgen artifacts list'").
				WithIssue(issue.ArtifactNotFoundId).
				Wrap(registry.ErrArtifactNotFound).
				BuildError()
		}
		out = append(out, a)
	}
	return out, nil
}

// stderrSink prints build messages the way a build tool window would.
func stderrSink(w io.Writer) preprocess.Sink {
	return preprocess.SinkFunc(func(m preprocess.Message) {
		fmt.Fprintf(w, "%s [%s] %s\n", ErrorStyle.Render(string(m.Severity)), m.Source, m.Text)
	})
}

func newTaskProvider(s *session, sink preprocess.Sink) (*buildtask.Provider, error) {
	shell, err := preprocess.NewShell(string(s.cfg.Shell.Runtime), s.cfg.Shell.Path)
	if err != nil {
		return nil, err
	}
	timeout, err := s.cfg.Preprocess.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return buildtask.NewProvider(shell, sink, s.logger.WithPrefix("preprocess"),
		preprocess.WithTimeout(timeout),
		preprocess.WithMaxOutput(s.cfg.Preprocess.MaxOutput),
	), nil
}

func classifyBuildError(err error) error {
	if errors.Is(err, preprocess.ErrShellNotFound) {
		return issue.NewErrorContext().
			WithOperation("run pre-processing").
			WithSuggestion("Install bash or sh, or set shell.runtime to \"virtual\"").
			WithIssue(issue.ShellNotFoundId).
			Wrap(err).
			BuildError()
	}
	return err
}

func printBuildReport(w io.Writer, a *registry.Artifact, r *buildtask.Report) {
	for _, t := range r.Tasks {
		fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("✓"), t.ID, SubtitleStyle.Render(t.Duration.Round(time.Millisecond).String()))
	}
	if r.Packaged == nil {
		return
	}
	fmt.Fprintf(w, "%s %s: %d archive(s), %d file(s) in %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(a.Name), len(r.Packaged.Archives), r.Packaged.Files, a.OutputPath)
	for _, missing := range r.Packaged.Missing {
		fmt.Fprintln(w, WarningStyle.Render("! missing source: ")+missing)
	}
	for _, clash := range r.Packaged.Conflicts {
		fmt.Fprintln(w, WarningStyle.Render("! skipped duplicate: ")+clash)
	}
}
