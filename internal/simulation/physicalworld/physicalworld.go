// Package physicalworld simulates real-world physical events that affect a
// voice conversation: multitasking, device events, and environment
// transitions, each driving the noise engine or being logged as an
// applied action.
package physicalworld

import (
	"context"
	"fmt"
	"time"

	"voxharness/internal/simulation/noise"
)

// Event is one step in a physical-world scenario.
type Event struct {
	Type                 string
	Affects              string
	TransitionFrom       string
	TransitionTo         string
	TransitionDurationS  float64
	GapMS                int
}

var scenarios = map[string][]Event{
	"multitasking": {
		{Type: "typing", Affects: "background_noise"},
		{Type: "walking", Affects: "mic_movement"},
		{Type: "driving", Affects: "ambient_noise_change"},
	},
	"device_events": {
		{Type: "switch_to_speaker", Affects: "audio_quality_change"},
		{Type: "bluetooth_switch", Affects: "brief_audio_gap", GapMS: 500},
		{Type: "notification_sound", Affects: "transient_noise"},
		{Type: "app_switch", Affects: "screen_content_change"},
	},
	"environment_change": {
		{Type: "enter_room", Affects: "ambient_noise_change", TransitionFrom: "street", TransitionTo: "quiet_room", TransitionDurationS: 3},
		{Type: "someone_enters", Affects: "competing_speech"},
		{Type: "door_closes", Affects: "ambient_noise_change"},
	},
}

// LogEntry records one applied event and the action taken.
type LogEntry struct {
	Event  Event
	Action string
}

// Simulator plays back named physical-world scenarios against a noise
// engine.
type Simulator struct{}

// New creates a physical-world simulator.
func New() *Simulator { return &Simulator{} }

// SimulateScenario runs every event in the named scenario in order,
// returning a log of the action taken for each. Unknown scenario names
// produce an empty log.
func (s *Simulator) SimulateScenario(ctx context.Context, scenarioName string, noiseEngine *noise.Engine) []LogEntry {
	events, ok := scenarios[scenarioName]
	if !ok {
		return nil
	}

	log := make([]LogEntry, 0, len(events))
	for _, ev := range events {
		log = append(log, LogEntry{Event: ev, Action: s.applyEvent(ctx, ev, noiseEngine)})
	}
	return log
}

func (s *Simulator) applyEvent(ctx context.Context, ev Event, noiseEngine *noise.Engine) string {
	switch ev.Affects {
	case "audio_quality_change":
		return "echo_enabled"

	case "brief_audio_gap":
		gapMS := ev.GapMS
		if gapMS == 0 {
			gapMS = 500
		}
		select {
		case <-time.After(time.Duration(gapMS) * time.Millisecond):
		case <-ctx.Done():
		}
		return fmt.Sprintf("audio_gap_%dms", gapMS)

	case "ambient_noise_change":
		if noiseEngine == nil {
			return "no_noise_engine"
		}
		if ev.TransitionTo != "" {
			dur := ev.TransitionDurationS
			if dur == 0 {
				dur = 3
			}
			noiseEngine.CrossfadeProfile(ev.TransitionTo, time.Duration(dur*float64(time.Second)))
		}
		return "noise_profile_changed"

	case "transient_noise":
		if noiseEngine == nil {
			return "no_noise_engine"
		}
		source := ev.Type
		if source == "" {
			source = "notification"
		}
		noiseEngine.Inject("transient", source)
		return "transient_injected"

	case "competing_speech":
		if noiseEngine == nil {
			return "no_noise_engine"
		}
		noiseEngine.Inject("competing_speech", "")
		return "competing_speech_injected"

	case "background_noise":
		if noiseEngine == nil {
			return "no_noise_engine"
		}
		noiseEngine.Inject("transient", "keyboard")
		return "keyboard_noise_injected"

	case "mic_movement":
		return "mic_movement_simulated"

	case "screen_content_change":
		return "screen_content_changed"

	default:
		return "unknown_effect_" + ev.Affects
	}
}
