package clock

import (
	"context"
	"testing"
	"time"
)

func TestWaitUntilReleasesOnAdvance(t *testing.T) {
	c := New(false, 1.0)
	done := make(chan error, 1)

	go func() {
		done <- c.WaitUntil(context.Background(), 500*time.Millisecond)
	}()

	c.AdvanceTo(500 * time.Millisecond)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitUntil returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not released after AdvanceTo reached its deadline")
	}
}

func TestAdvanceToNeverMovesBackward(t *testing.T) {
	c := New(false, 1.0)
	c.AdvanceTo(2 * time.Second)
	c.AdvanceTo(1 * time.Second)

	if got := c.Now(); got != 2*time.Second {
		t.Fatalf("Now() = %v, want 2s (advance to earlier time must be a no-op)", got)
	}
}

func TestAdvanceByIsRelative(t *testing.T) {
	c := New(false, 1.0)
	c.AdvanceBy(300 * time.Millisecond)
	c.AdvanceBy(200 * time.Millisecond)

	if got := c.Now(); got != 500*time.Millisecond {
		t.Fatalf("Now() = %v, want 500ms", got)
	}
}

func TestWaitUntilReturnsImmediatelyIfAlreadyPast(t *testing.T) {
	c := New(false, 1.0)
	c.AdvanceTo(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.WaitUntil(ctx, 500*time.Millisecond); err != nil {
		t.Fatalf("WaitUntil on a past deadline should return immediately, got err: %v", err)
	}
}

func TestMultipleWaitersReleasedInOneAdvance(t *testing.T) {
	c := New(false, 1.0)
	results := make(chan int, 3)

	for i, d := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond} {
		i, d := i, d
		go func() {
			c.WaitUntil(context.Background(), d)
			results <- i
		}()
	}

	time.Sleep(20 * time.Millisecond) // let goroutines register as waiters
	c.AdvanceTo(300 * time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-results:
		case <-time.After(time.Second):
			t.Fatal("not all eligible waiters were released by a single AdvanceTo call")
		}
	}
}

func TestWaitUntilRespectsContextCancellation(t *testing.T) {
	c := New(false, 1.0)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.WaitUntil(ctx, time.Hour)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitUntil did not return after context cancellation")
	}
}
