// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/artifactgen/artifactgen/internal/assembly"
	"github.com/artifactgen/artifactgen/internal/registry"

	"github.com/spf13/cobra"
)

func newAssembleCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble",
		Short: "Re-derive the artifact of every configured module",
		Long: `Re-derive the artifact of every configured module.

Each module listed in artifactgen.cue gets a '<module>:jar' artifact whose
layout follows the module's production dependency closure. Existing
artifacts with the same name are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			report, err := assemble(cmd.Context(), s)
			if err != nil {
				return err
			}
			printPassReport(app.stdout, report)
			return nil
		},
	}
}

// assemble runs one pass and waits until its commits are persisted.
func assemble(ctx context.Context, s *session) (report *assembly.PassReport, err error) {
	committer := registry.NewCommitter(s.registry, s.logger.WithPrefix("registry"))
	defer func() {
		err = errors.Join(err, committer.Close())
	}()

	report, err = assembly.NewPass(committer, s.logger.WithPrefix("assembly")).Run(ctx, s.proj, s.cfg)
	if err != nil {
		return nil, err
	}
	if err := committer.Flush(ctx); err != nil {
		return nil, fmt.Errorf("commit artifacts: %w", err)
	}
	return report, nil
}

func printPassReport(w io.Writer, report *assembly.PassReport) {
	if report.Disabled {
		fmt.Fprintln(w, WarningStyle.Render("!")+" artifact generation is disabled (set 'enabled: true' in artifactgen.cue)")
		return
	}
	for _, ac := range report.Submitted {
		line := fmt.Sprintf("%s %s -> %s", SuccessStyle.Render("✓"), CmdStyle.Render(ac.Name), ac.OutputDir)
		if ac.Preprocessing != nil {
			line += SubtitleStyle.Render(fmt.Sprintf(" (pre-processing: %s)", ac.Preprocessing.Name))
		}
		fmt.Fprintln(w, line)
	}
	for _, sk := range report.Skipped {
		fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("- skipped %s: %v", sk.Module, sk.Reason)))
	}
	if len(report.Submitted) == 0 && len(report.Skipped) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no modules configured"))
	}
}
