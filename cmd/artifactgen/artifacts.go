// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/internal/registry"

	"github.com/spf13/cobra"
)

func newArtifactsCommand(app *App, flags *rootFlagValues) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect the artifact registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var showTree bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			artifacts := s.registry.Artifacts()
			if len(artifacts) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("no artifacts registered (run 'artifactgen assemble')"))
				return nil
			}
			for _, a := range artifacts {
				fmt.Fprintf(app.stdout, "%s %s %s\n", CmdStyle.Render(a.Name), SubtitleStyle.Render(a.Type), a.OutputPath)
				if a.Preprocessing != nil {
					fmt.Fprintf(app.stdout, "  pre-processing: %s (%s)\n", a.Preprocessing.Name, a.Preprocessing.Cmd)
				}
				if showTree && a.Root != nil {
					fmt.Fprintln(app.stdout, renderTree(a.Root))
				}
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&showTree, "tree", false, "show each artifact's layout")

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an artifact from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			model := s.registry.ModifiableModel()
			if !model.Remove(args[0]) {
				return issue.NewErrorContext().
					WithOperation("remove artifact").
					WithResource(args[0]).
					WithSuggestion("List the registered artifacts with 'artifactgen artifacts list'").
					WithIssue(issue.ArtifactNotFoundId).
					Wrap(registry.ErrArtifactNotFound).
					BuildError()
			}
			if err := model.Commit(); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s removed %s\n", SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}

	artifactsCmd.AddCommand(listCmd, removeCmd)
	return artifactsCmd
}
