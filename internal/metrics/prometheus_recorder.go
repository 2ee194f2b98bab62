package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pkgdocs"

// workerStates lists every state label so SetWorkerState can zero the others.
var workerStates = []string{"fresh", "empty_queue", "locked", "in_progress"}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	targetResults *prom.CounterVec
	queueLength   prom.Gauge
	workerState   *prom.GaugeVec
	workerFaults  prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual package build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total package build duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Package build outcomes",
		}, []string{"outcome"}),
		targetResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "target_results_total",
			Help:      "Per-target documentation build results",
		}, []string{"target", "result"}),
		queueLength: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Pending build requests last observed",
		}),
		workerState: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_state",
			Help:      "Current queue worker state (1 for the active state)",
		}, []string{"state"}),
		workerFaults: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "worker_faults_total",
			Help:      "Unexpected faults caught while processing a queue item",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.targetResults, pr.queueLength, pr.workerState, pr.workerFaults)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncTargetResult(target string, success bool) {
	if p == nil {
		return
	}
	res := ResultFailed
	if success {
		res = ResultSuccess
	}
	p.targetResults.WithLabelValues(target, string(res)).Inc()
}

func (p *PrometheusRecorder) SetQueueLength(n int) {
	if p == nil {
		return
	}
	p.queueLength.Set(float64(n))
}

func (p *PrometheusRecorder) SetWorkerState(state string) {
	if p == nil {
		return
	}
	for _, s := range workerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.workerState.WithLabelValues(s).Set(v)
	}
}

func (p *PrometheusRecorder) IncWorkerFault() {
	if p == nil {
		return
	}
	p.workerFaults.Inc()
}
