package tools

import "fmt"

// Asserter is a convenience wrapper around a Registry for writing
// expressive assertions in tests.
type Asserter struct {
	registry *Registry
}

// NewAsserter wraps registry for assertion-style access.
func NewAsserter(registry *Registry) *Asserter {
	return &Asserter{registry: registry}
}

// AssertCalled returns an error unless toolName was called (optionally
// requiring argsContain to match the last matching call's args, by value).
func (a *Asserter) AssertCalled(toolName string, argsContain map[string]any) error {
	calls := a.callsFor(toolName)
	if len(calls) == 0 {
		return fmt.Errorf("expected %q to be called, but it wasn't. call log: %v", toolName, a.registry.CallLog())
	}
	if argsContain == nil {
		return nil
	}
	last := calls[len(calls)-1]
	for key, want := range argsContain {
		got, ok := last["args"].(map[string]any)[key]
		if !ok {
			return fmt.Errorf("missing arg %q in %s call, got: %v", key, toolName, last["args"])
		}
		if got != want {
			return fmt.Errorf("arg %q mismatch: expected %v, got %v", key, want, got)
		}
	}
	return nil
}

// AssertNotCalled returns an error if toolName was called.
func (a *Asserter) AssertNotCalled(toolName string) error {
	calls := a.callsFor(toolName)
	if len(calls) > 0 {
		return fmt.Errorf("expected %q NOT to be called, but it was called %d time(s)", toolName, len(calls))
	}
	return nil
}

// AssertCallOrder returns an error unless toolNames occurred, in order.
func (a *Asserter) AssertCallOrder(toolNames ...string) error {
	log := a.registry.CallLog()
	actual := make([]string, len(log))
	for i, c := range log {
		actual[i] = c["tool"].(string)
	}
	idx := 0
	for _, expected := range toolNames {
		found := false
		for idx < len(actual) {
			if actual[idx] == expected {
				found = true
				idx++
				break
			}
			idx++
		}
		if !found {
			return fmt.Errorf("expected call order %v, but actual order was %v", toolNames, actual)
		}
	}
	return nil
}

// AssertRetryOnFailure returns an error unless toolName was called between
// 2 and maxRetries+1 times.
func (a *Asserter) AssertRetryOnFailure(toolName string, maxRetries int) error {
	calls := a.callsFor(toolName)
	if len(calls) < 2 {
		return fmt.Errorf("expected %q to be retried, but it was only called %d time(s)", toolName, len(calls))
	}
	if len(calls) > maxRetries+1 {
		return fmt.Errorf("%q was called %d times, exceeding max retries (%d)", toolName, len(calls), maxRetries)
	}
	return nil
}

// AssertCalledTimes returns an error unless toolName was called exactly times.
func (a *Asserter) AssertCalledTimes(toolName string, times int) error {
	calls := a.callsFor(toolName)
	if len(calls) != times {
		return fmt.Errorf("expected %q to be called %d time(s), but it was called %d time(s)", toolName, times, len(calls))
	}
	return nil
}

func (a *Asserter) callsFor(toolName string) []map[string]any {
	var out []map[string]any
	for _, c := range a.registry.CallLog() {
		if c["tool"] == toolName {
			out = append(out, c)
		}
	}
	return out
}
