package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
	"git.home.luguber.info/inful/pkgdocs/internal/toolchain"
)

// VersionsCmd implements the 'versions' command.
type VersionsCmd struct{}

func (v *VersionsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, err := openServices(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer svc.Close()

	rustc, docTool, err := svc.builder.Versions(ctx)
	if err != nil {
		return err
	}
	tag, err := toolchain.Tag(rustc)
	if err != nil {
		tag = "unparseable: " + err.Error()
	}
	_, err = fmt.Fprintf(g.out(), "compiler: %s\ntag:      %s\ndoc tool: %s\n", rustc, tag, docTool)
	return err
}
