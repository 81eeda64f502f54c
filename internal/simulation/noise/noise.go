// Package noise implements the three-layer additive noise model: a
// continuous ambient bed, short transient events, and competing speech,
// mixed into speech audio in float32 and clipped back to int16.
package noise

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"voxharness/internal/model"
)

// AmbientProfile is a named continuous background noise level expressed as
// an SNR in dB relative to full scale.
type AmbientProfile struct {
	Name  string
	SNRdB float64
}

// ambientProfiles is the named catalogue of ambient environments, grounded
// on the original simulator's profile table.
var ambientProfiles = map[string]float64{
	"quiet_room":   40,
	"office":       25,
	"cafe":         15,
	"street":       10,
	"construction": 5,
	"car_driving":  18,
}

// transientEvent describes a named transient noise source: its duration
// range in seconds and peak level in dB.
type transientEvent struct {
	minDur, maxDur float64
	peakDB         float64
}

var transientEvents = map[string]transientEvent{
	"phone_ring":   {2, 5, -10},
	"door_knock":   {1, 3, -15},
	"dog_bark":     {1, 4, -8},
	"baby_cry":     {3, 10, -5},
	"notification": {0.5, 1, -20},
	"keyboard":     {0.2, 1, -25},
	"siren":        {5, 15, -3},
}

// transientNoise is an active transient noise event.
type transientNoise struct {
	source   string
	duration time.Duration
	peakDB   float64
	elapsed  time.Duration
	sr       int
}

func (t *transientNoise) isActive() bool { return t.elapsed < t.duration }

func (t *transientNoise) nextChunk(n int) []float32 {
	out := make([]float32, n)
	if !t.isActive() {
		return out
	}
	amplitude := math.Pow(10, t.peakDB/20) * 32767
	freq := 800 + float64(fnvHash(t.source)%400)
	startT := t.elapsed.Seconds()
	for i := 0; i < n; i++ {
		ti := startT + float64(i)/float64(t.sr)
		out[i] = float32(math.Sin(2*math.Pi*freq*ti) * amplitude)
	}
	t.elapsed += time.Duration(float64(n) / float64(t.sr) * float64(time.Second))
	return out
}

func fnvHash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}

// Engine mixes ambient, transient, and competing-speech noise into speech
// audio chunks.
type Engine struct {
	mu          sync.Mutex
	sampleRate  int
	ambient     AmbientProfile
	transients  []*transientNoise
	rng         *rand.Rand
	crossfading *crossfadeState
	clock       interface {
		Now() time.Duration
	}
}

type crossfadeState struct {
	fromSNR, toSNR float64
	toName         string
	start, end     time.Duration
}

// New creates a noise engine. profile selects the starting ambient
// environment; snrDB, when non-nil, overrides that profile's default SNR.
func New(profile string, snrDB *float64, sampleRate int) *Engine {
	e := &Engine{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(1)),
	}
	e.ambient = resolveProfile(profile, snrDB)
	return e
}

func resolveProfile(profile string, snrOverride *float64) AmbientProfile {
	snr, ok := ambientProfiles[profile]
	if !ok {
		snr = 40
	}
	if snrOverride != nil {
		snr = *snrOverride
	}
	return AmbientProfile{Name: profile, SNRdB: snr}
}

// SetClock attaches the clock the engine consults for crossfade timing.
func (e *Engine) SetClock(c interface{ Now() time.Duration }) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
}

// SetProfile switches the ambient bed to profile, optionally overriding its SNR.
func (e *Engine) SetProfile(profile string, snrOverride *float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.crossfading = nil
	e.ambient = resolveProfile(profile, snrOverride)
}

// SetSNR adjusts the current ambient profile's SNR without changing its name.
func (e *Engine) SetSNR(snrDB float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ambient.SNRdB = snrDB
}

// MixWithSpeech mixes the current noise layers into a speech chunk,
// returning a new chunk with the same timestamp and sample rate.
func (e *Engine) MixWithSpeech(speech model.AudioChunk) model.AudioChunk {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(speech.Samples)
	e.resolveCrossfadeLocked()

	mixed := make([]float32, n)
	for i, s := range speech.Samples {
		mixed[i] = float32(s)
	}

	ambient := e.ambientChunkLocked(n)
	for i := range mixed {
		mixed[i] += ambient[i]
	}

	alive := e.transients[:0]
	for _, t := range e.transients {
		if t.isActive() {
			alive = append(alive, t)
		}
	}
	e.transients = alive
	for _, t := range e.transients {
		chunk := t.nextChunk(n)
		for i := range mixed {
			mixed[i] += chunk[i]
		}
	}

	out := make([]int16, n)
	for i, v := range mixed {
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}

	return model.AudioChunk{
		Samples:    out,
		SampleRate: speech.SampleRate,
		Timestamp:  speech.Timestamp,
	}
}

func (e *Engine) ambientChunkLocked(n int) []float32 {
	amplitude := math.Pow(10, -math.Abs(e.ambient.SNRdB)/20) * 32767
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((e.rng.Float64()*2 - 1) * amplitude)
	}
	return out
}

func (e *Engine) resolveCrossfadeLocked() {
	if e.crossfading == nil || e.clock == nil {
		return
	}
	now := e.clock.Now()
	cf := e.crossfading
	if now >= cf.end {
		e.ambient = AmbientProfile{Name: cf.toName, SNRdB: cf.toSNR}
		e.crossfading = nil
		return
	}
	frac := float64(now-cf.start) / float64(cf.end-cf.start)
	e.ambient.SNRdB = cf.fromSNR + (cf.toSNR-cf.fromSNR)*frac
}

// Inject starts a transient noise event (noiseType "transient", source one
// of the named transientEvents) or a competing-speech event (noiseType
// "competing_speech").
func (e *Engine) Inject(noiseType, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch noiseType {
	case "transient":
		cfg, ok := transientEvents[source]
		if !ok {
			cfg = transientEvent{1, 3, -15}
		}
		dur := cfg.minDur + e.rng.Float64()*(cfg.maxDur-cfg.minDur)
		e.transients = append(e.transients, &transientNoise{
			source:   source,
			duration: time.Duration(dur * float64(time.Second)),
			peakDB:   cfg.peakDB,
			sr:       e.sampleRate,
		})
	case "competing_speech":
		if source == "" {
			source = "background_speaker"
		}
		dur := 3 + e.rng.Float64()*5
		e.transients = append(e.transients, &transientNoise{
			source:   source,
			duration: time.Duration(dur * float64(time.Second)),
			peakDB:   -10,
			sr:       e.sampleRate,
		})
	}
}

// CrossfadeProfile linearly interpolates the ambient SNR from the current
// profile to toProfile over duration, evaluated against the attached clock
// on each MixWithSpeech call.
func (e *Engine) CrossfadeProfile(toProfile string, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	toSNR, ok := ambientProfiles[toProfile]
	if !ok {
		toSNR = 40
	}
	start := time.Duration(0)
	if e.clock != nil {
		start = e.clock.Now()
	}
	e.crossfading = &crossfadeState{
		fromSNR: e.ambient.SNRdB,
		toSNR:   toSNR,
		toName:  toProfile,
		start:   start,
		end:     start + duration,
	}
}
