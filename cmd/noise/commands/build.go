package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/metrics"
	"git.home.luguber.info/inful/noise/internal/project"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Project     string `arg:"" help:"Project directory" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write build metrics in Prometheus textfile format to this path"`
	NoHistory   bool   `name:"no-history" help:"Do not record this build in the project history"`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []project.Option
	var rec *metrics.PrometheusRecorder
	if b.MetricsFile != "" {
		rec = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, project.WithRecorder(rec))
	}
	if b.NoHistory {
		opts = append(opts, project.WithHistory(false))
	}

	prj, err := project.Load(b.Project, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := prj.Close(); err != nil {
			slog.Warn("Closing project", logfields.Error(err))
		}
	}()

	report, err := prj.Build(ctx)
	if report != nil {
		_, _ = fmt.Fprintln(g.out(), report.Summary())
	}
	if rec != nil {
		if werr := rec.WriteTextfile(b.MetricsFile); werr != nil {
			slog.Warn("Failed to write metrics", logfields.Path(b.MetricsFile), logfields.Error(werr))
		}
	}
	return err
}
