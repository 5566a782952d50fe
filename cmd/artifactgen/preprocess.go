// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/internal/preprocess"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/spf13/cobra"
)

var errNoPreprocessing = errors.New("no pre-processing command configured")

func newPreprocessCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess <module>",
		Short: "Run the pre-processing command configured for <module>",
		Long: `Run the pre-processing command configured for <module> in the module's
directory. Its output is printed; a non-zero exit stops with exit code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx, flags)
			if err != nil {
				return err
			}
			m, err := s.proj.RequireModule(args[0])
			if err != nil {
				return moduleNotFound(args[0], err)
			}
			spec, ok := s.cfg.PreprocessingFor(m.Name)
			if !ok || !spec.IsRunnable() {
				return fmt.Errorf("%s: %w", m.Name, errNoPreprocessing)
			}

			shell, err := preprocess.NewShell(string(s.cfg.Shell.Runtime), s.cfg.Shell.Path)
			if err != nil {
				return err
			}
			timeout, err := s.cfg.Preprocess.TimeoutDuration()
			if err != nil {
				return err
			}
			runner := preprocess.NewRunner(shell, stderrSink(app.stderr),
				preprocess.WithLogger(s.logger.WithPrefix("preprocess")),
				preprocess.WithTimeout(timeout),
				preprocess.WithMaxOutput(s.cfg.Preprocess.MaxOutput),
			)

			result, err := runner.Run(ctx, spec.Cmd, moduleDir(s.proj, m))
			if err != nil {
				return exitCodeFor(classifyBuildError(wrapPreprocessing(err, spec.Cmd)))
			}
			fmt.Fprint(app.stdout, result.Stdout)
			fmt.Fprint(app.stderr, result.Stderr)
			return nil
		},
	}
}

func moduleDir(p *project.Project, m *project.Module) string {
	if m.Dir != "" {
		return m.Dir
	}
	return p.Dir
}

func wrapPreprocessing(err error, command string) error {
	if preprocess.IsStopBuild(err) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("run pre-processing").
		WithResource(command).
		WithIssue(issue.PreprocessingFailedId).
		Wrap(err).
		BuildError()
}
