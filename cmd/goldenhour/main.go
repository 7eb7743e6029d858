package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/goldenhour/cmd/goldenhour/commands"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("goldenhour"),
		kong.Description("Switch assets at the morning and evening golden hours."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(commands.NewGlobal(), cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
}
