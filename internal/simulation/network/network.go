// Package network simulates the transport conditions between the harness
// and the system under test: latency, jitter, packet loss, bandwidth
// limiting, and disconnects.
package network

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"voxharness/internal/model"
)

// Profile is a named network condition preset.
type Profile struct {
	LatencyMS float64
	JitterMS  float64
	LossRate  float64
}

var profiles = map[string]Profile{
	"perfect":  {10, 2, 0.0},
	"good_4g":  {50, 15, 0.01},
	"poor_4g":  {150, 50, 0.05},
	"bad_wifi": {200, 100, 0.10},
	"elevator": {500, 200, 0.30},
}

// Simulator applies network conditions to individual audio chunks.
type Simulator struct {
	mu              sync.Mutex
	baseLatency     float64
	jitter          float64
	lossRate        float64
	bandwidthLimit  int
	connected       bool
	buffered        []model.AudioChunk
	rng             *rand.Rand
}

// New creates a simulator seeded from a named profile; any of latencyMS,
// jitterMS, lossRate may be nil to take the profile's default.
func New(profile string, latencyMS, jitterMS, lossRate *float64, bandwidthLimit int) *Simulator {
	p, ok := profiles[profile]
	if !ok {
		p = profiles["perfect"]
	}
	s := &Simulator{
		baseLatency:    p.LatencyMS,
		jitter:         p.JitterMS,
		lossRate:       p.LossRate,
		bandwidthLimit: bandwidthLimit,
		connected:      true,
		rng:            rand.New(rand.NewSource(1)),
	}
	if latencyMS != nil {
		s.baseLatency = *latencyMS
	}
	if jitterMS != nil {
		s.jitter = *jitterMS
	}
	if lossRate != nil {
		s.lossRate = *lossRate
	}
	return s
}

// SetProfile resets latency/jitter/loss to a named profile's defaults.
func (s *Simulator) SetProfile(profile string) {
	p, ok := profiles[profile]
	if !ok {
		p = profiles["perfect"]
	}
	s.Configure(&p.LatencyMS, &p.JitterMS, &p.LossRate)
}

// Configure overrides individual network parameters; nil leaves a
// parameter unchanged.
func (s *Simulator) Configure(latencyMS, jitterMS, lossRate *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if latencyMS != nil {
		s.baseLatency = *latencyMS
	}
	if jitterMS != nil {
		s.jitter = *jitterMS
	}
	if lossRate != nil {
		s.lossRate = *lossRate
	}
}

// Apply simulates latency, jitter, and packet loss for a single chunk. It
// returns (nil, nil) when the chunk is lost — not an error, an expected
// outcome the caller must handle by skipping the chunk.
func (s *Simulator) Apply(ctx context.Context, chunk model.AudioChunk) (*model.AudioChunk, error) {
	s.mu.Lock()
	if !s.connected {
		s.buffered = append(s.buffered, chunk)
		s.mu.Unlock()
		return nil, nil
	}
	lossRate := s.lossRate
	baseLatency := s.baseLatency
	jitter := s.jitter
	bandwidthLimit := s.bandwidthLimit
	s.mu.Unlock()

	if s.rng.Float64() < lossRate {
		return nil, nil
	}

	delay := baseLatency + s.rng.NormFloat64()*jitter
	if delay < 0 {
		delay = 0
	}

	select {
	case <-time.After(time.Duration(delay * float64(time.Millisecond))):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if bandwidthLimit > 0 {
		chunk = compressAudio(chunk, bandwidthLimit)
	}

	return &chunk, nil
}

// SimulateDisconnect marks the link down for duration, buffering any chunks
// offered during the outage, then reconnects and discards the buffer.
func (s *Simulator) SimulateDisconnect(ctx context.Context, duration time.Duration) error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.connected = true
	s.buffered = nil
	s.mu.Unlock()
	return nil
}

// compressAudio degrades audio quality to simulate a bandwidth-limited
// link: it keeps every other sample and duplicates it to preserve length.
func compressAudio(chunk model.AudioChunk, bandwidthLimit int) model.AudioChunk {
	if bandwidthLimit >= 64000 {
		return chunk
	}
	n := len(chunk.Samples)
	reduced := make([]int16, 0, n)
	for i := 0; i < n; i += 2 {
		reduced = append(reduced, chunk.Samples[i], chunk.Samples[i])
	}
	if len(reduced) > n {
		reduced = reduced[:n]
	}
	return model.AudioChunk{
		Samples:    reduced,
		SampleRate: chunk.SampleRate,
		Timestamp:  chunk.Timestamp,
	}
}
