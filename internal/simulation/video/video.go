// Package video simulates visual input channels: a synthetic camera feed,
// screen-share frames, and static image-file playback. There is no separate
// document-scan source.
package video

import (
	"context"
	"hash/fnv"
	"os"
	"time"

	"voxharness/internal/clock"
	"voxharness/internal/model"
)

// Config configures the video stream simulator.
type Config struct {
	FPS    int
	Width  int
	Height int
}

// DefaultConfig returns the simulator's standard 30fps/720p configuration.
func DefaultConfig() Config {
	return Config{FPS: 30, Width: 1280, Height: 720}
}

// Event describes a single video-injection timeline action.
type Event struct {
	Source   string // "camera", "screen", "image_file"
	Duration time.Duration
	Scene    string // camera
	App      string // screen
	Path     string // image_file
}

// Stream generates clock-paced video frames for injected events.
type Stream struct {
	cfg   Config
	clock *clock.Clock
}

// NewStream creates a video stream simulator paced against clk.
func NewStream(cfg Config, clk *clock.Clock) *Stream {
	return &Stream{cfg: cfg, clock: clk}
}

// Generate yields frames for event on a channel, closed once the event's
// duration is exhausted or ctx is cancelled.
func (s *Stream) Generate(ctx context.Context, ev Event) <-chan model.VideoFrame {
	out := make(chan model.VideoFrame)
	numFrames := int(float64(s.cfg.FPS) * ev.Duration.Seconds())
	if numFrames <= 0 {
		numFrames = 1
	}

	raw := s.renderFrames(ev, numFrames)

	go func() {
		defer close(out)
		frameInterval := time.Second / time.Duration(s.cfg.FPS)
		for _, data := range raw {
			frame := model.VideoFrame{
				Data:      data,
				Width:     s.cfg.Width,
				Height:    s.cfg.Height,
				Format:    "raw_rgb",
				Timestamp: time.Time{}.Add(s.now()),
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
			if s.clock != nil {
				s.clock.AdvanceBy(frameInterval)
			}
		}
	}()

	return out
}

func (s *Stream) now() time.Duration {
	if s.clock == nil {
		return 0
	}
	return s.clock.Now()
}

func (s *Stream) renderFrames(ev Event, numFrames int) [][]byte {
	switch ev.Source {
	case "screen":
		return solidFrames(s.cfg.Width, s.cfg.Height, 40, numFrames)
	case "image_file":
		return staticFrames(ev.Path, s.cfg.Width, s.cfg.Height, numFrames)
	case "camera", "":
		seed := byte(sceneHash(ev.Scene) % 256)
		return solidFrames(s.cfg.Width, s.cfg.Height, seed, numFrames)
	default:
		return solidFrames(s.cfg.Width, s.cfg.Height, 0, numFrames)
	}
}

func sceneHash(scene string) uint32 {
	if scene == "" {
		scene = "office_desk"
	}
	h := fnv.New32a()
	h.Write([]byte(scene))
	return h.Sum32()
}

// solidFrames renders numFrames solid-colour RGB frames of value v.
func solidFrames(w, h int, v byte, numFrames int) [][]byte {
	frame := make([]byte, w*h*3)
	for i := range frame {
		frame[i] = v
	}
	frames := make([][]byte, numFrames)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

// staticFrames loads an image file's raw bytes and repeats them as frames,
// falling back to a grey placeholder if the file cannot be read.
func staticFrames(path string, w, h, numFrames int) [][]byte {
	data, err := os.ReadFile(path)
	if err != nil {
		data = make([]byte, w*h*3)
		for i := range data {
			data[i] = 128
		}
	}
	frames := make([][]byte, numFrames)
	for i := range frames {
		frames[i] = data
	}
	return frames
}
