// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `artifactgen config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage artifactgen configuration",
		Long: `Manage artifactgen configuration.

Configuration is read from artifactgen.cue in the project directory, or from
the file given with --config. ARTIFACTGEN_* environment variables override
individual settings (for example ARTIFACTGEN_ENABLED=true).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("notty"); renderErr == nil {
					fmt.Fprint(app.stderr, rendered)
				}
				return err
			}
			showConfig(app, s)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default artifactgen.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.loadOptions()
			if err != nil {
				return err
			}
			path := opts.ConfigFilePath
			if path == "" {
				path = config.FilePath(opts.BaseDir)
			}
			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(app.stdout, WarningStyle.Render("!")+" config already exists: "+path)
				return nil
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" created "+path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.loadOptions()
			if err != nil {
				return err
			}
			if path := configFilePath(opts); path != "" {
				fmt.Fprintln(app.stdout, path)
				return nil
			}
			fmt.Fprintln(app.stdout, config.FilePath(opts.BaseDir)+" "+SubtitleStyle.Render("(not created)"))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, s *session) {
	key := CmdStyle.Render
	val := SuccessStyle.Render
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if s.cfgPath != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), s.cfgPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("enabled"), val(fmt.Sprint(s.cfg.Enabled)))
	fmt.Fprintf(w, "%s: %s\n", key("project"), val(s.cfg.ProjectPath()))
	fmt.Fprintf(w, "%s: %s\n", key("log_level"), val(string(s.cfg.LogLevel)))
	fmt.Fprintf(w, "%s: %s\n", key("state_file"), val(s.cfg.StatePath()))
	fmt.Fprintf(w, "%s: %s\n", key("shell.runtime"), val(string(s.cfg.Shell.Runtime)))

	names := make([]string, 0, len(s.cfg.Modules))
	for _, m := range s.cfg.Modules {
		names = append(names, m.Name)
	}
	fmt.Fprintf(w, "%s: %s\n", key("modules"), val(strings.Join(names, ", ")))
	for _, p := range s.cfg.Preprocessing {
		fmt.Fprintf(w, "%s: %s %s\n", key("preprocessing"), p.Name, SubtitleStyle.Render(p.Cmd))
	}
}
