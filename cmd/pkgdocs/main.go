package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pkgdocs/cmd/pkgdocs/commands"
	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("pkgdocs"),
		kong.Description("Build package documentation in a sandbox from a durable queue."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, &cli)
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
