// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the artifactgen command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artifactgen/artifactgen/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type rootFlagValues struct {
	projectDir string
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "artifactgen",
		Short: "Generate packaging artifacts from a module dependency graph",
		Long: TitleStyle.Render("artifactgen") + SubtitleStyle.Render(" - packaging artifacts from a module graph") + `

artifactgen reads a project descriptor (project.cue) and a configuration file
(artifactgen.cue). For every configured module it collects the transitive
production dependencies, lays them out as a jar artifact, and records the
artifact so it is rebuilt with the project. A configured pre-processing
command runs before packaging; a failing command stops the build.

` + SubtitleStyle.Render("Examples:") + `
  artifactgen assemble          Re-derive every configured artifact
  artifactgen build             Run pre-processing and package all artifacts
  artifactgen tree app          Show the artifact layout for module 'app'
  artifactgen watch             Re-assemble whenever the project changes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			app.verbose = flags.verbose
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.projectDir, "project-dir", "C", "", "project directory (default is the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <project-dir>/artifactgen.cue)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newAssembleCommand(app, flags),
		newBuildCommand(app, flags),
		newWatchCommand(app, flags),
		newClosureCommand(app, flags),
		newTreeCommand(app, flags),
		newArtifactsCommand(app, flags),
		newPreprocessCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Run())
}

// Run executes the CLI against the process arguments and returns the exit code.
func Run() int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(types.ExitFailure)
	}
	return run(context.Background(), app, os.Args[1:])
}

func run(ctx context.Context, app *App, args []string) int {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.verbose)
		}),
	)
	if err == nil {
		return int(types.ExitSuccess)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return int(types.ExitFailure)
}
