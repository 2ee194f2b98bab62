package commands

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"git.home.luguber.info/inful/pkgdocs/internal/docbuilder"
	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Name    string `arg:"" optional:"" help:"Package name"`
	Version string `arg:"" optional:"" help:"Exact package version"`
	List    string `short:"l" help:"File of \"name version\" lines to build in order" type:"existingfile"`
}

// Validate enforces that exactly one of a package or a list is given.
func (b *BuildCmd) Validate() error {
	switch {
	case b.List != "" && b.Name != "":
		return derrors.ValidationFailed("build", "give either a package or --list, not both")
	case b.List == "" && (b.Name == "" || b.Version == ""):
		return derrors.ValidationFailed("build", "a package name and version are required")
	}
	return nil
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := openServices(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer svc.Close()

	return b.run(ctx, g, svc.builder)
}

func (b *BuildCmd) run(ctx context.Context, g *Global, builder *docbuilder.Builder) error {
	if b.List == "" {
		outcome, err := builder.BuildPackage(ctx, b.Name, b.Version)
		if err != nil {
			return err
		}
		return printOutcome(g.out(), b.Name, b.Version, outcome)
	}

	f, err := os.Open(b.List)
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityError, "failed to open package list")
	}
	defer f.Close()
	ids, err := docbuilder.ParsePackageList(f)
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryValidation, derrors.SeverityError, "invalid package list").
			WithContext("path", b.List)
	}

	sum, err := builder.BuildWorld(ctx, slices.Values(ids))
	if err != nil {
		return err
	}
	return printSummary(g.out(), sum)
}
