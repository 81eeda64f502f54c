package tools

import (
	"context"
	"testing"
	"time"
)

func TestWaitForCallUnblocksOnArrivalNotCompletion(t *testing.T) {
	r := New(nil)
	r.Register("slow_tool", Mock{
		MinLatencyMS: 200, MaxLatencyMS: 200,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	})

	start := time.Now()
	waitDone := make(chan time.Duration, 1)

	go func() {
		r.WaitForCall(context.Background(), "slow_tool", nil, time.Second)
		waitDone <- time.Since(start)
	}()

	time.Sleep(10 * time.Millisecond)
	go r.HandleCall(context.Background(), "slow_tool", map[string]any{"x": 1})

	select {
	case elapsed := <-waitDone:
		if elapsed >= 150*time.Millisecond {
			t.Fatalf("WaitForCall took %v, should unblock on arrival (~10ms) not completion (~200ms)", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForCall never unblocked")
	}
}

func TestWaitForCallTimesOut(t *testing.T) {
	r := New(nil)
	res := r.WaitForCall(context.Background(), "never_called", nil, 30*time.Millisecond)
	if res.Passed {
		t.Fatal("expected WaitForCall to time out and report a failed assertion")
	}
}

func TestWaitForCallMatchesArgsByValue(t *testing.T) {
	r := New(nil)
	r.Register("book", Mock{
		Handler: func(args map[string]any) (map[string]any, error) { return nil, nil },
	})

	go r.HandleCall(context.Background(), "book", map[string]any{"room": "suite", "nights": 2})

	res := r.WaitForCall(context.Background(), "book", map[string]any{"room": "suite"}, time.Second)
	if !res.Passed {
		t.Fatalf("expected matching args to pass, got: %+v", res)
	}

	r.Reset()
	go r.HandleCall(context.Background(), "book", map[string]any{"room": "standard"})
	res = r.WaitForCall(context.Background(), "book", map[string]any{"room": "suite"}, time.Second)
	if res.Passed {
		t.Fatal("expected mismatched arg value to fail the assertion")
	}
}

func TestHandleCallReturnsErrorForUnknownTool(t *testing.T) {
	r := New(nil)
	result := r.HandleCall(context.Background(), "nonexistent", nil)
	if result.Success {
		t.Fatal("expected unknown tool call to fail")
	}
}
