package queuebuilder

import (
	"context"

	"git.home.luguber.info/inful/pkgdocs/internal/docbuilder"
	"git.home.luguber.info/inful/pkgdocs/internal/queue"
)

// OutcomeBuilder is satisfied by *docbuilder.Builder.
type OutcomeBuilder interface {
	BuildPackage(ctx context.Context, name, version string) (docbuilder.Outcome, error)
}

// ForQueue adapts b to the queue. A recorded build failure completes the item;
// only an aborted attempt counts against its retry budget.
func ForQueue(b OutcomeBuilder) queue.PackageBuilder {
	return queue.PackageBuilderFunc(func(ctx context.Context, name, version string) error {
		_, err := b.BuildPackage(ctx, name, version)
		return err
	})
}
