// Package audio simulates a real microphone input stream: synthetic TTS
// (deterministic sine synthesis, no external TTS credentials required),
// pre-recorded WAV fixture playback, speech-style transforms (speed,
// hesitation, interruption, volume), and clock-paced chunked streaming.
package audio

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"voxharness/internal/clock"
	"voxharness/internal/model"
)

// Config configures the audio stream simulator.
type Config struct {
	SampleRate   int
	ChunkMS      int
	VoiceProfile string
}

// DefaultConfig returns the simulator's standard 16kHz/20ms configuration.
func DefaultConfig() Config {
	return Config{SampleRate: 16000, ChunkMS: 20}
}

// Style describes the speech-style transforms to apply to synthesized or
// loaded audio before it is streamed.
type Style struct {
	Voice       string
	Speed       float64
	Emotion     string
	Hesitation  bool
	Interrupted bool
	Volume      float64 // 0 means "unset", leave untouched
}

// TTSEngine stands in for a real text-to-speech provider, generating a
// deterministic sine-wave tone whose duration and pitch are derived from
// the input text.
type TTSEngine struct{}

// Synthesize generates PCM16 samples for text at the given speed and
// sample rate. Duration is proportional to text length, approximating
// natural speech cadence (~80ms per character).
func (TTSEngine) Synthesize(text string, speed float64, sampleRate int) []int16 {
	if speed <= 0 {
		speed = 1.0
	}
	chars := float64(len(text))
	duration := math.Max(0.5, chars*0.08/speed)
	numSamples := int(float64(sampleRate) * duration)
	freq := 200 + float64(textHash(text)%300)

	out := make([]int16, numSamples)
	for i := range out {
		t := duration * float64(i) / float64(numSamples)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 16000)
	}
	return out
}

func textHash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}

// Stream simulates microphone input: synthesizing or loading audio, styling
// it, and yielding it in clock-paced chunks.
type Stream struct {
	cfg   Config
	tts   TTSEngine
	clock *clock.Clock
}

// NewStream creates a stream simulator paced against clk.
func NewStream(cfg Config, clk *clock.Clock) *Stream {
	return &Stream{cfg: cfg, tts: TTSEngine{}, clock: clk}
}

// Generate produces a channel of AudioChunks for the given text (optionally
// prefixed "tts://", which is stripped) or, if text is empty, for the
// samples loaded from audioFile. The channel is closed once the material is
// exhausted or ctx is cancelled.
func (s *Stream) Generate(ctx context.Context, text, audioFile string, style Style) (<-chan model.AudioChunk, error) {
	var raw []int16
	var err error

	switch {
	case strings.HasPrefix(text, "tts://"):
		raw = s.tts.Synthesize(strings.TrimPrefix(text, "tts://"), styleSpeed(style), s.cfg.SampleRate)
	case text != "":
		raw = s.tts.Synthesize(text, styleSpeed(style), s.cfg.SampleRate)
	case audioFile != "":
		raw, err = loadAudioFile(audioFile)
		if err != nil {
			return nil, err
		}
	default:
		ch := make(chan model.AudioChunk)
		close(ch)
		return ch, nil
	}

	raw = applySpeechStyle(raw, style, s.cfg.SampleRate)

	chunkSamples := s.cfg.SampleRate * s.cfg.ChunkMS / 1000
	out := make(chan model.AudioChunk)

	go func() {
		defer close(out)
		for i := 0; i < len(raw); i += chunkSamples {
			end := i + chunkSamples
			if end > len(raw) {
				end = len(raw)
			}
			chunk := model.AudioChunk{
				Samples:    raw[i:end],
				SampleRate: s.cfg.SampleRate,
				Timestamp:  time.Time{}.Add(s.now()),
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if s.clock != nil {
				s.clock.AdvanceBy(time.Duration(s.cfg.ChunkMS) * time.Millisecond)
			}
		}
	}()

	return out, nil
}

func (s *Stream) now() time.Duration {
	if s.clock == nil {
		return 0
	}
	return s.clock.Now()
}

func styleSpeed(style Style) float64 {
	if style.Speed == 0 {
		return 1.0
	}
	return style.Speed
}

func loadAudioFile(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int16(v)
	}
	return out, nil
}

// applySpeechStyle applies the speed/hesitation/interruption/volume
// transforms in sequence, matching the original simulator's ordering.
func applySpeechStyle(samples []int16, style Style, sampleRate int) []int16 {
	if style.Speed != 0 && style.Speed != 1.0 {
		samples = resample(samples, style.Speed)
	}
	if style.Hesitation {
		samples = insertFillers(samples, sampleRate)
	}
	if style.Interrupted {
		samples = trimLeadingSilence(samples, 50, sampleRate)
	}
	if style.Volume != 0 {
		samples = scaleVolume(samples, style.Volume)
	}
	return samples
}

// resample crudely changes speech speed by sub/super-sampling.
func resample(samples []int16, speed float64) []int16 {
	if speed <= 0 {
		speed = 1.0
	}
	var out []int16
	for f := 0.0; f < float64(len(samples)); f += speed {
		i := int(f + 0.5)
		if i >= len(samples) {
			break
		}
		out = append(out, samples[i])
	}
	return out
}

// insertFillers inserts 150ms silence gaps roughly every 2 seconds of audio
// to simulate hesitation.
func insertFillers(samples []int16, sampleRate int) []int16 {
	fillerLen := int(float64(sampleRate) * 0.15)
	filler := make([]int16, fillerLen)
	chunkSize := sampleRate * 2

	var out []int16
	for i := 0; i < len(samples); i += chunkSize {
		end := i + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		out = append(out, samples[i:end]...)
		out = append(out, filler...)
	}
	return out
}

// trimLeadingSilence removes up to maxMS of leading near-silence so
// interrupted speech starts immediately.
func trimLeadingSilence(samples []int16, maxMS, sampleRate int) []int16 {
	const threshold = 500
	maxSamples := sampleRate * maxMS / 1000
	if maxSamples > len(samples) {
		maxSamples = len(samples)
	}
	for i := 0; i < maxSamples; i++ {
		if abs16(samples[i]) > threshold {
			return samples[i:]
		}
	}
	return samples[maxSamples:]
}

func abs16(v int16) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

func scaleVolume(samples []int16, factor float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * factor
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
