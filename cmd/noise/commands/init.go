package commands

import (
	"fmt"

	"git.home.luguber.info/inful/noise/internal/project"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Project string `arg:"" help:"Project directory to create" type:"path"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	p, err := project.Init(i.Project)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Initialized project in %s\n", p.Root)
	return nil
}
