// Package clock implements a simulated, optionally real-time-paced clock
// that the rest of the harness schedules against instead of wall time. It
// never moves backward, and advancing it releases every waiter whose
// deadline has been reached before the advance call returns.
package clock

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Clock is a simulated timeline. Zero value is not usable; use New.
type Clock struct {
	mu       sync.Mutex
	now      time.Duration
	waiters  waiterHeap
	seq      int
	realtime bool
	speed    float64 // realtime pacing multiplier; 1.0 == wall-clock speed
}

type waiter struct {
	deadline time.Duration
	seq      int
	release  chan struct{}
	index    int
}

type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }
func (h waiterHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *waiterHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}
func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}

// New creates a clock starting at t=0. When realtime is true, AdvanceTo (and
// Pump) pace advancement against wall-clock time scaled by speed (speed=1.0 is
// real-time, >1.0 runs faster than real time).
func New(realtime bool, speed float64) *Clock {
	if speed <= 0 {
		speed = 1.0
	}
	return &Clock{realtime: realtime, speed: speed}
}

// Now returns the clock's current simulated time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// WaitUntil blocks until the clock reaches deadline, the context is
// cancelled, or (in realtime mode) until wall time catches up. Returns
// immediately if the clock is already at or past deadline.
func (c *Clock) WaitUntil(ctx context.Context, deadline time.Duration) error {
	c.mu.Lock()
	if c.now >= deadline {
		c.mu.Unlock()
		return nil
	}
	w := &waiter{deadline: deadline, seq: c.seq, release: make(chan struct{})}
	c.seq++
	heap.Push(&c.waiters, w)
	c.mu.Unlock()

	select {
	case <-w.release:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		if w.index >= 0 && w.index < len(c.waiters) && c.waiters[w.index] == w {
			heap.Remove(&c.waiters, w.index)
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

// AdvanceTo moves the clock forward to t, releasing every waiter whose
// deadline is now reached. No-op if t is before the current time. In
// realtime mode, sleeps (scaled by speed) before releasing waiters so
// elapsed wall time tracks simulated time.
func (c *Clock) AdvanceTo(t time.Duration) {
	c.mu.Lock()
	if t <= c.now {
		c.mu.Unlock()
		return
	}
	delta := t - c.now
	c.mu.Unlock()

	if c.realtime && delta > 0 {
		time.Sleep(time.Duration(float64(delta) / c.speed))
	}

	c.mu.Lock()
	c.now = t
	var toRelease []*waiter
	for c.waiters.Len() > 0 && c.waiters[0].deadline <= c.now {
		w := heap.Pop(&c.waiters).(*waiter)
		toRelease = append(toRelease, w)
	}
	c.mu.Unlock()

	for _, w := range toRelease {
		close(w.release)
	}
}

// AdvanceBy advances the clock by d relative to its current time.
func (c *Clock) AdvanceBy(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// Pump continuously advances a realtime-paced clock in step increments
// until ctx is cancelled. No-op (returns immediately) for a non-realtime
// clock, whose advancement is instead driven explicitly by the timeline
// dispatcher.
func (c *Clock) Pump(ctx context.Context, step time.Duration) {
	if !c.realtime {
		return
	}
	ticker := time.NewTicker(time.Duration(float64(step) / c.speed))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.now += step
			var toRelease []*waiter
			for c.waiters.Len() > 0 && c.waiters[0].deadline <= c.now {
				w := heap.Pop(&c.waiters).(*waiter)
				toRelease = append(toRelease, w)
			}
			c.mu.Unlock()
			for _, w := range toRelease {
				close(w.release)
			}
		}
	}
}
