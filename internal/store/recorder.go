package store

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxharness/internal/results"
)

// recorderChannelBuffer is how many completed runs can queue before the
// background drain goroutine writes them to the store.
const recorderChannelBuffer = 32

// Recorder writes scenario run history asynchronously via a buffered
// channel, so a slow database never blocks the orchestrator's dispatch
// loop. All methods are nil-safe (no-op on a nil receiver), matching the
// harness's other optional instrumentation seams.
type Recorder struct {
	store *Store
	ch    chan ScenarioRun
	done  chan struct{}
}

// NewRecorder creates a recorder writing to store in the background.
// Callers must call Close to flush pending writes and stop the goroutine.
func NewRecorder(s *Store) *Recorder {
	r := &Recorder{
		store: s,
		ch:    make(chan ScenarioRun, recorderChannelBuffer),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for run := range r.ch {
		if err := r.store.RecordRun(run); err != nil {
			slog.Default().Warn("store: record run failed", "scenario", run.ScenarioName, "error", err)
		}
	}
}

// Record enqueues a completed run for persistence, summarizing res and the
// scenario's scored report into a ScenarioRun row.
func (r *Recorder) Record(scenarioName string, startedAt time.Time, durationMS float64, res *results.TestResults, report map[string]any, tags []string) {
	if r == nil {
		return
	}
	metricsJSON, err := json.Marshal(report)
	if err != nil {
		metricsJSON = []byte("{}")
	}

	passed := res.AllPassed()
	passRate := passRateOf(res)

	r.ch <- ScenarioRun{
		ID:           uuid.NewString(),
		ScenarioName: scenarioName,
		StartedAt:    startedAt,
		DurationMs:   durationMS,
		Passed:       passed,
		PassRate:     passRate,
		MetricsJSON:  string(metricsJSON),
		Tags:         strings.Join(tags, ","),
	}
}

// Close drains pending writes and shuts down the background goroutine.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	close(r.ch)
	<-r.done
}

// passRateOf computes the fraction of passed assertions in res (1.0 when
// there are none). The regression detector's "pass_rate" differs: it is the
// fraction of scenarios whose assertions all passed.
func passRateOf(res *results.TestResults) float64 {
	if len(res.Assertions) == 0 {
		return 1.0
	}
	passed := 0
	for _, a := range res.Assertions {
		if a.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(res.Assertions))
}
