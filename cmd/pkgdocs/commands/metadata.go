package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/manifest"
)

// MetadataCmd implements the 'metadata' command.
type MetadataCmd struct {
	Path string `arg:"" help:"Package source directory or manifest file" type:"existingpath"`
}

func (m *MetadataCmd) Run(g *Global, _ *CLI) error {
	md, err := readMetadata(m.Path)
	if err != nil {
		return derrors.ManifestError(m.Path, err)
	}
	return printPlan(g.out(), md.Plan())
}

func readMetadata(path string) (*manifest.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return manifest.FromCrateRoot(path)
	}
	return manifest.FromManifest(path)
}

func printPlan(w io.Writer, plan manifest.BuildPlan) error {
	var b strings.Builder
	fmt.Fprintf(&b, "default target: %s\n", plan.DefaultTarget)
	fmt.Fprintf(&b, "other targets:  %s\n", strings.Join(plan.OtherTargets, " "))
	fmt.Fprintf(&b, "cargo args:     %s\n", strings.Join(plan.CargoArgs, " "))
	b.WriteString("environment:\n")
	for _, k := range slices.Sorted(maps.Keys(plan.Env)) {
		fmt.Fprintf(&b, "  %s=%q\n", k, plan.Env[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
