package main

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/noise/cmd/noise/commands"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
)

func main() {
	var cli commands.CLI
	parser, err := commands.NewParser(&cli)
	if err != nil {
		os.Exit(nerrors.NewCLIErrorAdapter(false, nil).Report(err))
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, &cli)
	os.Exit(nerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
}
