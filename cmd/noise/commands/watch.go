package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/project"
	"git.home.luguber.info/inful/noise/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Project  string        `arg:"" help:"Project directory" type:"path"`
	Debounce time.Duration `help:"Quiet period after the last change before rebuilding" default:"300ms"`
	Every    time.Duration `help:"Also rebuild on this interval (0 disables)" default:"0s"`
}

func (w *WatchCmd) Run(_ *Global, _ *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := paths.New(w.Project)
	if err != nil {
		return nerrors.ValidationFailed("project", err.Error())
	}
	// Fail fast on a broken project instead of logging the same error forever.
	prj, err := project.Load(p.Root)
	if err != nil {
		return err
	}
	if err := prj.Close(); err != nil {
		return err
	}

	watcher, err := watch.New(rebuild(p.Root), watch.Options{
		Trees:    []string{p.Static, p.Template, p.Content},
		Files:    []string{p.Config, p.Local(".env"), p.Local(".env.local")},
		Debounce: w.Debounce,
		Every:    w.Every,
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// rebuild reloads the project on every run so config and template changes
// take effect.
func rebuild(dir string) watch.BuildFunc {
	return func(ctx context.Context) error {
		prj, err := project.Load(dir)
		if err != nil {
			return err
		}
		defer func() { _ = prj.Close() }()
		report, err := prj.Build(ctx)
		if report != nil {
			slog.Info(report.Summary())
		}
		return err
	}
}
