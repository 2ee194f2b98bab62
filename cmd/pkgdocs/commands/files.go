package commands

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

// FilesCmd implements the 'files' command.
type FilesCmd struct {
	Name    string `arg:"" help:"Package name"`
	Version string `arg:"" help:"Exact package version"`
	Sources bool   `help:"Read the stored sources instead of the documentation"`
	Cat     string `help:"Print one stored file, given relative to the tree"`
}

func (f *FilesCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := openStore(ctx, cfg.Storage.Objects, cfg.Storage.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	return f.run(ctx, g, store)
}

func (f *FilesCmd) prefix() string {
	id := storage.PackageID{Name: f.Name, Version: f.Version}
	if f.Sources {
		return storage.SourcesKey(id)
	}
	return storage.DocsKey(id)
}

func (f *FilesCmd) run(ctx context.Context, g *Global, store *storage.Store) error {
	prefix := f.prefix()
	if f.Cat != "" {
		_, data, err := store.ReadFile(ctx, prefix+strings.TrimPrefix(f.Cat, "/"))
		if err != nil {
			return err
		}
		_, err = g.out().Write(data)
		return err
	}

	id := storage.PackageID{Name: f.Name, Version: f.Version}
	builds, err := store.Builds(ctx, id)
	if err != nil {
		return err
	}
	files, err := store.Files(ctx, prefix)
	if err != nil {
		return err
	}
	w := g.out()
	if _, err := fmt.Fprintf(w, "%s: %d builds, %d files under %s\n", id, builds, len(files), prefix); err != nil {
		return err
	}
	for _, sf := range files {
		if _, err := fmt.Fprintf(w, "  %s %d %s\n", strings.TrimPrefix(sf.Path, prefix), sf.Size, sf.MIME); err != nil {
			return err
		}
	}
	return nil
}
