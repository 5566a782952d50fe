// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artifactgen/artifactgen/internal/config"
	"github.com/artifactgen/artifactgen/internal/registry"
	"github.com/artifactgen/artifactgen/internal/trigger"
	"github.com/artifactgen/artifactgen/internal/watch"
	"github.com/artifactgen/artifactgen/pkg/project"

	"github.com/spf13/cobra"
)

type watchFlagValues struct {
	debounce time.Duration
	ignore   []string
}

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	wf := &watchFlagValues{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-assemble artifacts whenever the project changes",
		Long: `Run an assembly pass, then watch the project directory.

Every batch of file changes reloads artifactgen.cue and the project
descriptor. New modules are reported as 'module-added', everything else as
'roots-changed'; both re-run the pass for all configured modules.
Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), app, flags, wf)
		},
	}
	cmd.Flags().DurationVar(&wf.debounce, "debounce", watch.DefaultDebounce, "quiet period before re-assembling")
	cmd.Flags().StringSliceVar(&wf.ignore, "ignore", nil, "additional glob patterns to ignore")
	return cmd
}

func runWatch(ctx context.Context, app *App, flags *rootFlagValues, wf *watchFlagValues) (err error) {
	s, err := app.open(ctx, flags)
	if err != nil {
		return err
	}
	opts, err := flags.loadOptions()
	if err != nil {
		return err
	}

	committer := registry.NewCommitter(s.registry, s.logger.WithPrefix("registry"))
	defer func() {
		err = errors.Join(err, committer.Close())
	}()

	loader := trigger.NewFileLoader(app.Config, opts)
	bus := trigger.NewBus()
	listener := trigger.NewListener(loader, committer, s.logger.WithPrefix("assembly"))
	bus.Subscribe(listener)
	bus.Subscribe(trigger.HandlerFunc(func(_ context.Context, ev trigger.Event) error {
		_, report := listener.Runs()
		if report != nil {
			fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render("→"), ev.Kind)
			printPassReport(app.stdout, report)
		}
		return nil
	}))

	src := trigger.NewSource(primedLoader(loader, s), bus, s.logger.WithPrefix("trigger"))
	if err := src.Prime(ctx); err != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("!")+" initial assembly failed: "+err.Error())
	}

	w, err := src.Watcher(opts.BaseDir, watch.Config{
		Debounce: wf.debounce,
		Ignore:   wf.ignore,
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"), w.BaseDir())
	return w.Run(ctx)
}

// primedLoader serves the already opened session once, then reads from disk.
func primedLoader(next trigger.Loader, s *session) trigger.Loader {
	served := false
	return trigger.LoaderFunc(func(ctx context.Context) (*project.Project, *config.Config, error) {
		if !served {
			served = true
			return s.proj, s.cfg, nil
		}
		return next.Load(ctx)
	})
}
