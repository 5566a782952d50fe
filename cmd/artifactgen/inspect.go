// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/artifactgen/artifactgen/internal/assembly"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/spf13/cobra"
)

func newClosureCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "closure <module>",
		Short: "List the modules and libraries an artifact of <module> would contain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			_, cl, err := assembly.NewBuilder(s.proj, s.cfg, s.logger).Closure(args[0])
			if err != nil {
				if errors.Is(err, project.ErrModuleNotFound) {
					return moduleNotFound(args[0], err)
				}
				return err
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render("Closure of "+args[0]))
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("modules:"))
			for _, name := range cl.ModuleNames() {
				fmt.Fprintln(app.stdout, "  "+CmdStyle.Render(name))
			}
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("libraries:"))
			for _, name := range cl.LibraryNames() {
				fmt.Fprintln(app.stdout, "  "+CmdStyle.Render(name))
			}
			return nil
		},
	}
}

func newTreeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <module>",
		Short: "Show the packaging layout of <module>'s artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd.Context(), flags)
			if err != nil {
				return err
			}
			m, cl, err := assembly.NewBuilder(s.proj, s.cfg, s.logger).Closure(args[0])
			if err != nil {
				if errors.Is(err, project.ErrModuleNotFound) {
					return moduleNotFound(args[0], err)
				}
				return err
			}
			fmt.Fprintln(app.stdout, TitleStyle.Render(assembly.ArtifactName(m.Name)))
			fmt.Fprintln(app.stdout, renderTree(assembly.Tree(m, cl)))
			return nil
		},
	}
}
