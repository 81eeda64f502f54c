// Package results collects everything a scenario run produces: assertions,
// latency/accuracy metrics, tool call records, barge-in outcomes, and
// captured responses. TestResults is written from multiple goroutines (the
// dispatch loop and the response collector; the tool registry keeps its own
// call log and does not write here) so every method takes its internal
// mutex before mutating shared state.
package results

import (
	"sort"
	"sync"
	"time"
)

// AssertionResult is the outcome of a single assertion at a point in time.
type AssertionResult struct {
	Timestamp   time.Duration  `json:"timestamp"`
	Passed      bool           `json:"passed"`
	Description string         `json:"description"`
	Expected    any            `json:"expected,omitempty"`
	Actual      any            `json:"actual,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// BargeInResult captures metrics from a barge-in event.
type BargeInResult struct {
	WasHandled           bool           `json:"was_handled"`
	ResponseLatencyMS    float64        `json:"response_latency_ms"`
	SystemStoppedSpeaking bool          `json:"system_stopped_speaking"`
	Details              map[string]any `json:"details,omitempty"`
}

// LatencyMetrics aggregates first-byte and turn-gap latency samples.
type LatencyMetrics struct {
	mu                 sync.Mutex
	FirstByteLatencies []float64 `json:"first_byte_latencies_ms"`
	TurnGaps           []float64 `json:"turn_gaps_ms"`
}

// RecordFirstByte appends a first-byte latency sample (ms).
func (m *LatencyMetrics) RecordFirstByte(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FirstByteLatencies = append(m.FirstByteLatencies, ms)
}

// RecordTurnGap appends a turn-gap sample (ms).
func (m *LatencyMetrics) RecordTurnGap(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnGaps = append(m.TurnGaps, ms)
}

// P50FirstByte returns the median first-byte latency, or 0 if no samples.
func (m *LatencyMetrics) P50FirstByte() float64 { return percentile(m.snapshot(), 0.50) }

// P99FirstByte returns the 99th-percentile first-byte latency, or 0 if no samples.
func (m *LatencyMetrics) P99FirstByte() float64 { return percentile(m.snapshot(), 0.99) }

func (m *LatencyMetrics) snapshot() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.FirstByteLatencies))
	copy(out, m.FirstByteLatencies)
	return out
}

func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	idx := int(float64(len(vals)) * p)
	if idx >= len(vals) {
		idx = len(vals) - 1
	}
	return vals[idx]
}

// TurnGapAvg returns the mean turn gap, or 0 if no samples.
func (m *LatencyMetrics) TurnGapAvg() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.TurnGaps) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.TurnGaps {
		sum += v
	}
	return sum / float64(len(m.TurnGaps))
}

// AccuracyMetrics holds accuracy scores across sub-dimensions.
type AccuracyMetrics struct {
	IntentRecognition float64 `json:"intent_recognition"`
	EntityExtraction  float64 `json:"entity_extraction"`
	VisualGrounding   float64 `json:"visual_grounding"`
	Overall           float64 `json:"overall"`
}

// ToolCallRecord is a single recorded tool invocation.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Timestamp time.Duration  `json:"timestamp"`
	Success   bool           `json:"success"`
	LatencyMS float64        `json:"latency_ms"`
}

// ToolCallResults aggregates tool-call records for assertion convenience.
type ToolCallResults struct {
	mu    sync.Mutex
	Calls []ToolCallRecord `json:"calls"`
}

// Snapshot returns a copy of every tool call recorded so far.
func (r *ToolCallResults) Snapshot() []ToolCallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ToolCallRecord, len(r.Calls))
	copy(out, r.Calls)
	return out
}

// AssertCalled reports whether toolName was called at least once.
func (r *ToolCallResults) AssertCalled(toolName string) bool {
	for _, c := range r.Snapshot() {
		if c.Tool == toolName {
			return true
		}
	}
	return false
}

// AssertNotCalled reports whether toolName was never called.
func (r *ToolCallResults) AssertNotCalled(toolName string) bool {
	return !r.AssertCalled(toolName)
}

// AssertCallOrder reports whether toolNames occur, in order (not
// necessarily contiguously), within the recorded calls.
func (r *ToolCallResults) AssertCallOrder(toolNames ...string) bool {
	calls := r.Snapshot()
	idx := 0
	for _, expected := range toolNames {
		found := false
		for idx < len(calls) {
			if calls[idx].Tool == expected {
				found = true
				idx++
				break
			}
			idx++
		}
		if !found {
			return false
		}
	}
	return true
}

// ResponseRecord is a single captured response from the system under test.
type ResponseRecord struct {
	Text      string        `json:"text"`
	Audio     []int16       `json:"-"`
	Timestamp time.Duration `json:"timestamp"`
}

// TestResults is the append-only, multi-writer accumulator for a single
// scenario run.
type TestResults struct {
	mu         sync.Mutex
	Assertions []AssertionResult `json:"assertions"`
	Latency    *LatencyMetrics   `json:"latency"`
	Accuracy   AccuracyMetrics   `json:"accuracy"`
	ToolCalls  *ToolCallResults  `json:"tool_calls"`
	BargeIn    BargeInResult     `json:"barge_in"`
	Responses  []ResponseRecord  `json:"responses"`
	Tags       []string          `json:"tags"`
	Metadata   map[string]any    `json:"metadata"`
}

// New creates an empty TestResults container.
func New() *TestResults {
	return &TestResults{
		Latency:   &LatencyMetrics{},
		ToolCalls: &ToolCallResults{},
		Metadata:  map[string]any{},
	}
}

// Add appends an assertion result.
func (r *TestResults) Add(a AssertionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Assertions = append(r.Assertions, a)
}

// AllPassed reports whether every recorded assertion passed.
func (r *TestResults) AllPassed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.Assertions {
		if !a.Passed {
			return false
		}
	}
	return true
}

// LastResponse returns the most recently recorded response, or the zero
// value if none have been recorded.
func (r *TestResults) LastResponse() ResponseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return ResponseRecord{}
	}
	return r.Responses[len(r.Responses)-1]
}

// Tag appends a free-form label to the run.
func (r *TestResults) Tag(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tags = append(r.Tags, label)
}

// RecordResponse appends a captured response.
func (r *TestResults) RecordResponse(text string, audio []int16, timestamp time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, ResponseRecord{Text: text, Audio: audio, Timestamp: timestamp})
}

// RecordToolCall appends a tool call record.
func (r *TestResults) RecordToolCall(tool string, args map[string]any, timestamp time.Duration, success bool, latencyMS float64) {
	r.ToolCalls.mu.Lock()
	r.ToolCalls.Calls = append(r.ToolCalls.Calls, ToolCallRecord{
		Tool: tool, Args: args, Timestamp: timestamp, Success: success, LatencyMS: latencyMS,
	})
	r.ToolCalls.mu.Unlock()
}
