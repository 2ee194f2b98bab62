package queuebuilder

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// Reporter receives errors the worker recovers from by itself.
type Reporter interface {
	Report(ctx context.Context, err error)
}

// LogReporter reports through the default slog logger.
type LogReporter struct{}

// Report logs err at error level.
func (LogReporter) Report(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "Queue worker error", logfields.Error(err))
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, err error)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, err error) { f(ctx, err) }
