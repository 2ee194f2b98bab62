package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pkgdocs/internal/config"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
	"git.home.luguber.info/inful/pkgdocs/internal/queue"
	"git.home.luguber.info/inful/pkgdocs/internal/queuebuilder"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct{}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDaemon(ctx, cfg)
}

// RunDaemon processes the queue until ctx is cancelled.
func RunDaemon(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting daemon mode",
		slog.String("queue_backend", string(cfg.Queue.Backend)),
		slog.String("sandbox_backend", string(cfg.Sandbox.Backend)))

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var srv *http.Server
	if cfg.Metrics.Listen != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		srv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", slog.String("listen", cfg.Metrics.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	q, err := queue.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := q.Close(); err != nil {
			slog.Warn("Failed to close queue", logfields.Error(err))
		}
	}()

	svc, err := openServices(ctx, cfg, recorder)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("Failed to close services", logfields.Error(err))
		}
	}()

	sched, err := startQueueSampler(ctx, q, recorder, cfg.MetricsSampleInterval())
	if err != nil {
		return err
	}

	worker := queuebuilder.NewWorker(q, queuebuilder.ForQueue(svc.builder), queuebuilder.Options{
		Interval: cfg.QueueInterval(),
		TempRoot: cfg.Paths.TempRoot,
		Recorder: recorder,
	})
	runErr := worker.Run(ctx)

	slog.Info("Shutdown signal received, stopping daemon...")
	if err := sched.Shutdown(); err != nil {
		slog.Warn("Failed to stop scheduler", logfields.Error(err))
	}
	if srv != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			slog.Warn("Failed to stop metrics server", logfields.Error(err))
		}
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	slog.Info("Daemon stopped successfully")
	return nil
}

func metricsMux(reg *prom.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	return mux
}

// startQueueSampler periodically copies the backlog length into the
// queue-length gauge, independently of the worker's idle interval.
func startQueueSampler(ctx context.Context, q queue.Queue, recorder metrics.Recorder, every time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(sampleQueue, ctx, q, recorder),
		gocron.WithName("queue-length"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create queue sampling job: %w", err)
	}
	s.Start()
	return s, nil
}

func sampleQueue(ctx context.Context, q queue.Queue, recorder metrics.Recorder) {
	n, err := q.PendingCount(ctx)
	if err != nil {
		slog.Warn("Failed to sample queue length", logfields.Error(err))
		return
	}
	recorder.SetQueueLength(n)
	slog.Debug("Sampled queue length", logfields.QueueLength(n))
}
