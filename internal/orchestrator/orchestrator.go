// Package orchestrator is the scenario scheduler: it loads a declarative
// timeline, drains it in (timestamp, sequence) order against the registered
// simulation layers and the system under test, and concurrently collects
// the SUT's streaming responses into a TestResults accumulator.
package orchestrator

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"voxharness/internal/adapter"
	"voxharness/internal/metrics"
	"voxharness/internal/results"
	"voxharness/internal/simulation/audio"
	"voxharness/internal/simulation/bargein"
	"voxharness/internal/simulation/network"
	"voxharness/internal/simulation/noise"
	"voxharness/internal/simulation/physicalworld"
	"voxharness/internal/simulation/video"
	"voxharness/internal/tools"

	"voxharness/internal/clock"
)

// responseInactivityTimeout bounds how long the response collector waits
// for the next event before it stops draining, guaranteeing the orchestrator
// can always make progress even against a SUT that stops emitting.
const responseInactivityTimeout = 30 * time.Second

// clockAware is implemented by layers that want the orchestrator's clock
// wired in via RegisterLayer, mirroring the original's duck-typed
// "hasattr(layer, 'set_clock')" check.
type clockAware interface {
	SetClock(c interface{ Now() time.Duration })
}

// Orchestrator is the central scheduler described in the design as
// ScenarioOrchestrator: a priority-queue timeline, a registry of named
// simulation layers, and the shared clock they're driven against.
type Orchestrator struct {
	clock  *clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	layers   map[string]any
	timeline timelineHeap
	seq      int
}

// New creates an orchestrator driven by clk. Pass nil to use a default
// non-realtime clock started at t=0.
func New(clk *clock.Clock) *Orchestrator {
	if clk == nil {
		clk = clock.New(false, 1.0)
	}
	return &Orchestrator{
		clock:  clk,
		logger: slog.Default(),
		layers: map[string]any{},
	}
}

// Clock returns the orchestrator's shared simulated clock.
func (o *Orchestrator) Clock() *clock.Clock { return o.clock }

// RegisterLayer installs a named simulation layer. If the layer implements
// clockAware, the orchestrator's clock is wired into it immediately.
func (o *Orchestrator) RegisterLayer(name string, layer any) {
	o.mu.Lock()
	o.layers[name] = layer
	o.mu.Unlock()
	if ca, ok := layer.(clockAware); ok {
		ca.SetClock(o.clock)
	}
}

func (o *Orchestrator) audioLayer() *audio.Stream {
	if l, ok := o.layers["audio"].(*audio.Stream); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) environmentLayer() *noise.Engine {
	if l, ok := o.layers["environment"].(*noise.Engine); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) networkLayer() *network.Simulator {
	if l, ok := o.layers["network"].(*network.Simulator); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) videoLayer() *video.Stream {
	if l, ok := o.layers["video"].(*video.Stream); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) bargeInLayer() *bargein.Simulator {
	if l, ok := o.layers["barge_in"].(*bargein.Simulator); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) toolsLayer() *tools.Registry {
	if l, ok := o.layers["tools"].(*tools.Registry); ok {
		return l
	}
	return nil
}

func (o *Orchestrator) physicalWorldLayer() *physicalworld.Simulator {
	if l, ok := o.layers["physical_world"].(*physicalworld.Simulator); ok {
		return l
	}
	return nil
}

// Run loads scenario (already-decoded YAML, e.g. from LoadScenarioFile) and
// drives it against system, returning the accumulated TestResults. system
// may be nil, in which case the timeline still executes but nothing is
// pushed to (or collected from) a SUT — useful for dry-running a scenario's
// simulation layers alone.
func (o *Orchestrator) Run(ctx context.Context, scenario map[string]any, system adapter.VoiceSystem) (*results.TestResults, error) {
	metrics.ScenariosActive.Inc()
	defer metrics.ScenariosActive.Dec()

	res := results.New()
	if name, ok := scenario["name"].(string); ok {
		res.Metadata["scenario_name"] = name
	}

	o.applyEnvironment(asMap(scenario["environment"]))
	o.runPhysicalWorld(ctx, scenario, res)
	o.enqueue(asMapSlice(scenario["timeline"]), 0)

	var collectorDone chan struct{}
	var cancelCollector context.CancelFunc
	if system != nil {
		var collectorCtx context.Context
		collectorCtx, cancelCollector = context.WithCancel(ctx)
		collectorDone = make(chan struct{})
		go func() {
			defer close(collectorDone)
			o.collectResponses(collectorCtx, system, res)
		}()
	}

	for o.timeline.Len() > 0 {
		event := heap.Pop(&o.timeline).(*timelineEvent)
		o.clock.AdvanceTo(event.timestamp)

		start := time.Now()
		err := o.dispatch(ctx, event, system, res)
		metrics.DispatchDuration.WithLabelValues(event.action).Observe(time.Since(start).Seconds())

		if err != nil {
			o.logger.Error("dispatch failed", "action", event.action, "error", err)
			metrics.DispatchErrors.WithLabelValues(event.action).Inc()
			metrics.AssertionsTotal.WithLabelValues("fail").Inc()
			res.Add(results.AssertionResult{
				Timestamp:   event.timestamp,
				Passed:      false,
				Description: fmt.Sprintf("Exception in %s: %v", event.action, err),
			})
		}
	}

	if cancelCollector != nil {
		cancelCollector()
		<-collectorDone
	}

	if res.AllPassed() {
		metrics.ScenariosTotal.WithLabelValues("pass").Inc()
	} else {
		metrics.ScenariosTotal.WithLabelValues("fail").Inc()
	}

	return res, nil
}

// enqueue parses raw YAML timeline entries and pushes them into the
// priority queue. base is added to any "+"-prefixed relative timestamp
// (used by conditional branches) and is the floor for absolute ones.
func (o *Orchestrator) enqueue(entries []map[string]any, base time.Duration) {
	for _, entry := range entries {
		ts := parseTimeRelative(entry["at"], base)
		action, _ := entry["action"].(string)
		params := map[string]any{}
		for k, v := range entry {
			if k == "at" || k == "action" {
				continue
			}
			params[k] = v
		}
		o.seq++
		heap.Push(&o.timeline, &timelineEvent{timestamp: ts, seq: o.seq, action: action, params: params})
	}
}

func (o *Orchestrator) applyEnvironment(env map[string]any) {
	if env == nil {
		return
	}

	if noiseLayer := o.environmentLayer(); noiseLayer != nil {
		if profile, ok := env["noise_profile"].(string); ok && profile != "" {
			var snrOverride *float64
			if snr, ok := toFloatPtr(env["noise_snr_db"]); ok {
				snrOverride = snr
			}
			noiseLayer.SetProfile(profile, snrOverride)
		}
	}

	if netLayer := o.networkLayer(); netLayer != nil {
		if netCfg := asMap(env["network"]); netCfg != nil {
			latency, _ := toFloatPtr(netCfg["latency_ms"])
			jitter, _ := toFloatPtr(netCfg["jitter_ms"])
			loss, _ := toFloatPtr(netCfg["loss"])
			netLayer.Configure(latency, jitter, loss)
		}
	}
}

// runPhysicalWorld dispatches the scenario's optional top-level
// "physical_world" scenario name (multitasking, device_events,
// environment_change) against the registered physical-world and
// environment layers before the timeline starts draining, recording its
// action log onto the result metadata.
func (o *Orchestrator) runPhysicalWorld(ctx context.Context, scenario map[string]any, res *results.TestResults) {
	name, ok := scenario["physical_world"].(string)
	if !ok || name == "" {
		return
	}
	pw := o.physicalWorldLayer()
	if pw == nil {
		return
	}
	log := pw.SimulateScenario(ctx, name, o.environmentLayer())
	res.Metadata["physical_world_log"] = log
}

func toFloatPtr(v any) (*float64, bool) {
	switch n := v.(type) {
	case float64:
		return &n, true
	case int:
		f := float64(n)
		return &f, true
	default:
		return nil, false
	}
}

// parseTimeRelative resolves a timeline entry's "at" value against base: a
// "+"-prefixed string is an offset added to base (used by conditional
// branches scheduling relative to the branching event); anything else is an
// absolute time, floored at base so branch entries can never be scheduled
// before the event that spawned them.
func parseTimeRelative(value any, base time.Duration) time.Duration {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "+") {
			return base + parseTime(strings.TrimPrefix(trimmed, "+"))
		}
	}
	t := parseTime(value)
	if t < base {
		t = base
	}
	return t
}
