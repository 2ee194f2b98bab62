package queuebuilder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
	"git.home.luguber.info/inful/pkgdocs/internal/queue"
	"git.home.luguber.info/inful/pkgdocs/internal/workspace"
)

// DefaultInterval is the idle sleep between iterations.
const DefaultInterval = 60 * time.Second

// Options configures a Worker.
type Options struct {
	// Interval is slept before every iteration not following a build.
	Interval time.Duration
	// TempRoot is scanned for stale workspaces; empty means the system temp dir.
	TempRoot string
	Reporter Reporter
	Recorder metrics.Recorder
}

// Worker processes the queue. One Worker serves one queue; run a single Run
// loop per Worker.
type Worker struct {
	queue    queue.Queue
	builder  queue.PackageBuilder
	opts     Options
	reporter Reporter
	recorder metrics.Recorder
	state    State

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWorker returns a Worker in the Fresh state.
func NewWorker(q queue.Queue, b queue.PackageBuilder, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	w := &Worker{
		queue:    q,
		builder:  b,
		opts:     opts,
		reporter: opts.Reporter,
		recorder: opts.Recorder,
		state:    Fresh,
		sleep:    sleepContext,
	}
	if w.reporter == nil {
		w.reporter = LogReporter{}
	}
	if w.recorder == nil {
		w.recorder = metrics.NoopRecorder{}
	}
	return w
}

// State returns the state reached by the last Step.
func (w *Worker) State() State {
	return w.state
}

// Run steps the worker until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Queue worker started", logfields.State(w.state.String()), slog.Duration("interval", w.opts.Interval))
	for {
		w.Step(ctx)
		if err := ctx.Err(); err != nil {
			slog.Info("Queue worker stopped", logfields.State(w.state.String()))
			return err
		}
	}
}

// Step runs one iteration and returns the resulting state.
func (w *Worker) Step(ctx context.Context) State {
	w.reclaim(ctx)

	if sleepsBefore(w.state) {
		if err := w.sleep(ctx, w.opts.Interval); err != nil {
			return w.state
		}
	}

	locked, err := w.queue.IsLocked(ctx)
	if err != nil {
		w.reporter.Report(ctx, err)
		return w.advance(ObsLockError)
	}
	if locked {
		return w.advance(ObsLocked)
	}

	n, err := w.queue.PendingCount(ctx)
	if err != nil {
		w.reporter.Report(ctx, err)
		return w.advance(ObsQueueError)
	}
	w.recorder.SetQueueLength(n)
	if n == 0 {
		return w.advance(ObsEmpty)
	}

	state := w.advance(ObsPending)
	err = runIsolated(ctx, func(ctx context.Context) error {
		return w.queue.BuildNextQueued(ctx, w.builder)
	})
	var fault *Fault
	switch {
	case err == nil:
	case errors.As(err, &fault):
		w.escalate(ctx, fault)
	case errors.Is(err, context.Canceled):
	default:
		w.reporter.Report(ctx, err)
	}
	return state
}

func (w *Worker) advance(o Observation) State {
	next := Next(w.state, o)
	if next != w.state {
		slog.Debug("Queue worker state changed",
			slog.String("from", w.state.String()),
			logfields.State(next.String()),
			slog.String("observation", o.String()))
	}
	w.state = next
	w.recorder.SetWorkerState(next.String())
	return next
}

// escalate suspends the queue after a fault.
func (w *Worker) escalate(ctx context.Context, f *Fault) {
	w.recorder.IncWorkerFault()
	slog.ErrorContext(ctx, "GRAVE ERROR building package from queue, locking queue",
		logfields.Error(derrors.InternalError("panic while building", f)),
		slog.String("stack", string(f.Stack)))
	if err := w.queue.Lock(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "GRAVE ERROR failed to lock queue",
			logfields.Error(derrors.QueueError("lock", err)))
	}
}

// reclaim removes workspaces left behind by crashed processes.
func (w *Worker) reclaim(ctx context.Context) {
	removed, err := workspace.RemoveStale(w.opts.TempRoot, workspace.TempDirPrefix)
	for _, p := range removed {
		slog.DebugContext(ctx, "Removed stale workspace", logfields.Path(p))
	}
	if err != nil {
		w.reporter.Report(ctx, derrors.CleanupError(w.opts.TempRoot, err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
