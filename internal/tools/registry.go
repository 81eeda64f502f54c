// Package tools provides the mock tool registry the harness uses to stand
// in for external services a voice system might call: simulated latency
// and failure rates (a call returns its handler's full result or a failure;
// there are no partial results), plus assertion helpers for verifying call
// behavior.
package tools

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"voxharness/internal/clock"
	"voxharness/internal/harnesserr"
	"voxharness/internal/metrics"
	"voxharness/internal/model"
	"voxharness/internal/results"
)

// Handler is the function a mocked tool invokes to produce its result.
type Handler func(args map[string]any) (map[string]any, error)

// Mock configures a single mocked tool.
type Mock struct {
	Handler      Handler
	MinLatencyMS float64
	MaxLatencyMS float64
	FailureRate  float64
	FailureError string
}

type callRecord struct {
	tool      string
	args      map[string]any
	timestamp time.Duration
}

type expectation struct {
	toolName string
	received chan struct{}
}

// Registry mocks every external tool a voice system might call.
type Registry struct {
	mu           sync.Mutex
	tools        map[string]Mock
	callLog      []callRecord
	pending      []*expectation
	clock        *clock.Clock
	rng          *rand.Rand
}

// New creates an empty tool registry paced against clk (may be nil).
func New(clk *clock.Clock) *Registry {
	return &Registry{
		tools: map[string]Mock{},
		clock: clk,
		rng:   rand.New(rand.NewSource(1)),
	}
}

func (r *Registry) now() time.Duration {
	if r.clock == nil {
		return 0
	}
	return r.clock.Now()
}

// Register adds or replaces the mock for name.
func (r *Registry) Register(name string, m Mock) {
	if m.MinLatencyMS == 0 && m.MaxLatencyMS == 0 {
		m.MinLatencyMS, m.MaxLatencyMS = 100, 500
	}
	if m.FailureError == "" {
		m.FailureError = "ServiceUnavailable"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = m
}

// HandleCall handles an incoming tool call from the system under test.
// The call is appended to the call log and any pending wait_for_call
// expectations are signaled BEFORE the simulated latency sleep, so
// WaitForCall unblocks on arrival, not completion.
func (r *Registry) HandleCall(ctx context.Context, toolName string, args map[string]any) model.ToolResult {
	ts := r.now()

	r.mu.Lock()
	r.callLog = append(r.callLog, callRecord{tool: toolName, args: args, timestamp: ts})
	for _, exp := range r.pending {
		if exp.toolName == toolName {
			select {
			case <-exp.received:
			default:
				close(exp.received)
			}
		}
	}
	mock, ok := r.tools[toolName]
	r.mu.Unlock()

	if !ok {
		err := fmt.Errorf("%w: unknown tool: %s", harnesserr.ErrTool, toolName)
		return model.ToolResult{Name: toolName, Success: false, Err: err.Error()}
	}

	latencyMS := mock.MinLatencyMS + r.rng.Float64()*(mock.MaxLatencyMS-mock.MinLatencyMS)
	metrics.ToolCallLatency.WithLabelValues(toolName).Observe(latencyMS / 1000)
	select {
	case <-time.After(time.Duration(latencyMS * float64(time.Millisecond))):
	case <-ctx.Done():
		err := fmt.Errorf("%w: %w", harnesserr.ErrTool, ctx.Err())
		return model.ToolResult{Name: toolName, Success: false, Err: err.Error()}
	}

	if r.rng.Float64() < mock.FailureRate {
		err := fmt.Errorf("%w: %s", harnesserr.ErrTool, mock.FailureError)
		return model.ToolResult{Name: toolName, Success: false, Err: err.Error()}
	}

	result, err := mock.Handler(args)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", harnesserr.ErrTool, err)
		return model.ToolResult{Name: toolName, Success: false, Err: wrapped.Error()}
	}

	return model.ToolResult{Name: toolName, Success: true, Result: result}
}

// WaitForCall blocks until toolName is called, or timeout elapses.
// expectedArgs, when non-nil, requires every (key, value) pair to be
// present with an equal value in the matched call's args.
func (r *Registry) WaitForCall(ctx context.Context, toolName string, expectedArgs map[string]any, timeout time.Duration) results.AssertionResult {
	exp := &expectation{toolName: toolName, received: make(chan struct{})}

	r.mu.Lock()
	r.pending = append(r.pending, exp)
	r.mu.Unlock()

	defer r.removeExpectation(exp)

	select {
	case <-exp.received:
	case <-time.After(timeout):
		err := fmt.Errorf("%w: waiting for tool '%s'", harnesserr.ErrTimeout, toolName)
		return results.AssertionResult{
			Timestamp:   r.now(),
			Passed:      false,
			Description: fmt.Sprintf("Timeout waiting for tool '%s'", toolName),
			Expected:    map[string]any{"tool": toolName, "args": expectedArgs, "error": err.Error()},
		}
	case <-ctx.Done():
		return results.AssertionResult{
			Timestamp:   r.now(),
			Passed:      false,
			Description: fmt.Sprintf("Cancelled waiting for tool '%s'", toolName),
		}
	}

	r.mu.Lock()
	var lastCall *callRecord
	for i := range r.callLog {
		if r.callLog[i].tool == toolName {
			lastCall = &r.callLog[i]
		}
	}
	r.mu.Unlock()

	if lastCall == nil {
		return results.AssertionResult{
			Timestamp:   r.now(),
			Passed:      false,
			Description: fmt.Sprintf("Tool '%s' was never called", toolName),
		}
	}

	if expectedArgs != nil {
		for key, value := range expectedArgs {
			actual, present := lastCall.args[key]
			if !present || actual != value {
				return results.AssertionResult{
					Timestamp:   r.now(),
					Passed:      false,
					Description: fmt.Sprintf("Arg '%s' mismatch for tool '%s'", key, toolName),
					Expected:    expectedArgs,
					Actual:      lastCall.args,
				}
			}
		}
	}

	return results.AssertionResult{
		Timestamp:   r.now(),
		Passed:      true,
		Description: fmt.Sprintf("Tool '%s' called successfully", toolName),
		Actual:      lastCall.args,
	}
}

func (r *Registry) removeExpectation(target *expectation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, exp := range r.pending {
		if exp == target {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

// Reset clears the recorded call log.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callLog = nil
}

// Names returns the names of every tool currently registered, in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// CallLog returns a snapshot of every call recorded so far.
func (r *Registry) CallLog() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.callLog))
	for i, c := range r.callLog {
		out[i] = map[string]any{"tool": c.tool, "args": c.args, "timestamp": c.timestamp}
	}
	return out
}
