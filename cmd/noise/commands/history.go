package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/project"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Project string `arg:"" help:"Project directory" type:"path"`
	Limit   int    `short:"n" help:"Number of builds to show" default:"10"`
	JSON    bool   `name:"json" help:"Print summaries as JSON"`
}

func (h *HistoryCmd) Run(g *Global, _ *CLI) error {
	p, err := paths.New(h.Project)
	if err != nil {
		return nerrors.ValidationFailed("project", err.Error())
	}
	summaries, err := project.History(context.Background(), p, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tFILES\tPAGES\tDURATION\tFAILED")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			s.BuildID, s.StartedAt.Local().Format(time.DateTime), s.Status,
			s.Files, s.Pages, s.Duration.Truncate(time.Millisecond), s.FailedPhase)
	}
	return tw.Flush()
}
