package metrics

import "time"

// testRecorder counts calls; it also guards that Recorder stays implementable outside Prometheus.
type testRecorder struct {
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	buildDurations int
	buildOutcomes  map[string]int
	targets        map[string]bool
	queueLength    int
	state          string
	faults         int
}

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	t.stageDurations[stage]++
}
func (t *testRecorder) ObserveBuildDuration(_ time.Duration) { t.buildDurations++ }
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) IncBuildOutcome(outcome string)              { t.buildOutcomes[outcome]++ }
func (t *testRecorder) IncTargetResult(target string, success bool) { t.targets[target] = success }
func (t *testRecorder) SetQueueLength(n int)                        { t.queueLength = n }
func (t *testRecorder) SetWorkerState(state string)                 { t.state = state }
func (t *testRecorder) IncWorkerFault()                             { t.faults++ }
