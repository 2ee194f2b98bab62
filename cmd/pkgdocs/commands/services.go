package commands

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/pkgdocs/internal/config"
	"git.home.luguber.info/inful/pkgdocs/internal/docbuilder"
	"git.home.luguber.info/inful/pkgdocs/internal/fetcher"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
	"git.home.luguber.info/inful/pkgdocs/internal/notify"
	"git.home.luguber.info/inful/pkgdocs/internal/retry"
	"git.home.luguber.info/inful/pkgdocs/internal/sandbox"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

// services is the builder and everything it owns.
type services struct {
	store    *storage.Store
	notifier notify.Notifier
	builder  *docbuilder.Builder
}

// sandboxFactory is replaced in tests.
var sandboxFactory = sandbox.New

func openServices(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (*services, error) {
	store, err := openStore(ctx, cfg.Storage.Objects, cfg.Storage.Database)
	if err != nil {
		return nil, err
	}

	exec, err := sandboxFactory(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	notifier, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := fetcher.NewRegistry(cfg.Registry.DownloadURL, cfg.Paths.Sources, retry.FromConfig(cfg.Registry.Retry))
	reg.TempRoot = cfg.Paths.TempRoot

	builder := docbuilder.New(docbuilder.Options{
		Destination:  cfg.Paths.Destination,
		ChrootPath:   cfg.Sandbox.ChrootPath,
		User:         cfg.Sandbox.User,
		DocTool:      cfg.Sandbox.DocTool,
		Compiler:     cfg.Sandbox.Compiler,
		SkipIfLogged: cfg.Build.SkipIfLogged,
		SkipIfExists: cfg.Build.SkipIfExists,
		Recorder:     recorder,
		Notifier:     notifier,
	}, store, exec, reg)

	slog.Debug("Services ready",
		logfields.Backend(string(cfg.Sandbox.Backend)),
		logfields.Path(cfg.Storage.Database))
	return &services{store: store, notifier: notifier, builder: builder}, nil
}

// openStore opens the records database backed by the object store at objectsDir.
func openStore(ctx context.Context, objectsDir, dbPath string) (*storage.Store, error) {
	objects, err := storage.NewFSStore(objectsDir)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, dbPath, objects)
	if err != nil {
		_ = objects.Close()
		return nil, err
	}
	return store, nil
}

func (s *services) Close() error {
	return errors.Join(s.notifier.Close(), s.store.Close())
}
