// Package queue holds the durable build backlog and the cooperative lock flag
// shared by every queue worker.
//
// Items are claimed atomically, so several workers may share one backend.
// A failed build increments the item's attempt counter; once an item reaches
// MaxAttempts it is no longer pending.
package queue

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// Item is one queued build request.
type Item struct {
	Name     string
	Version  string
	Priority int
	Attempts int
}

// PackageBuilder builds a single package version.
type PackageBuilder interface {
	BuildPackage(ctx context.Context, name, version string) error
}

// PackageBuilderFunc adapts a function to PackageBuilder.
type PackageBuilderFunc func(ctx context.Context, name, version string) error

// BuildPackage calls f.
func (f PackageBuilderFunc) BuildPackage(ctx context.Context, name, version string) error {
	return f(ctx, name, version)
}

// Queue is the backlog and lock collaborator of the queue worker.
type Queue interface {
	// IsLocked reports whether processing has been suspended.
	IsLocked(ctx context.Context) (bool, error)
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	// PendingCount returns the number of items still eligible for a build.
	PendingCount(ctx context.Context) (int, error)
	// Add enqueues name at version; lower priority values build first.
	Add(ctx context.Context, name, version string, priority int) error
	// BuildNextQueued claims the next pending item and passes it to b.
	// It returns nil without building when no item could be claimed.
	BuildNextQueued(ctx context.Context, b PackageBuilder) error
	Close() error
}

// DefaultMaxAttempts is used when a backend is created with a non-positive limit.
const DefaultMaxAttempts = 5

func maxAttemptsOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxAttempts
	}
	return n
}

// logFailure reports a failed attempt, at warn level once the item is dropped.
func logFailure(ctx context.Context, backend string, it Item, attempts, maxAttempts int, err error) {
	attrs := []any{
		logfields.Backend(backend),
		logfields.Package(it.Name),
		logfields.Version(it.Version),
		logfields.Attempt(attempts),
		logfields.Error(err),
	}
	if attempts >= maxAttempts {
		slog.WarnContext(ctx, "Build attempts exhausted, dropping from queue", attrs...)
		return
	}
	slog.InfoContext(ctx, "Build failed, will retry", attrs...)
}
