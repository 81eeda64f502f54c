package orchestrator

import (
	"context"
	"fmt"
	"time"

	"voxharness/internal/adapter"
	"voxharness/internal/harnesserr"
	"voxharness/internal/metrics"
	"voxharness/internal/model"
	"voxharness/internal/results"
	"voxharness/internal/simulation/audio"
	"voxharness/internal/simulation/video"
)

// responseStream returns system's response event channel, or nil if system
// is nil — the barge-in simulator already treats a nil stream as "skip the
// keyword_detected trigger wait".
func responseStream(system adapter.VoiceSystem) <-chan model.ResponseEvent {
	if system == nil {
		return nil
	}
	return system.ResponseStream()
}

// timeZero is the epoch every simulated-clock duration is anchored to when
// converted to a time.Time (time.Time{}.Add(d)), matching the convention
// used across the simulation layers.
func timeZero() time.Time { return time.Time{} }

// dispatch executes a single timeline event's action. Errors returned here
// are turned into failed AssertionResults by Run — dispatch itself never
// panics the scenario.
func (o *Orchestrator) dispatch(ctx context.Context, event *timelineEvent, system adapter.VoiceSystem, res *results.TestResults) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", harnesserr.ErrDispatch, r)
		}
	}()

	var handlerErr error
	switch event.action {
	case "user_speak":
		handlerErr = o.dispatchUserSpeak(ctx, event.params, system)
	case "inject_noise":
		handlerErr = o.dispatchInjectNoise(event.params)
	case "inject_video":
		handlerErr = o.dispatchInjectVideo(ctx, event.params, system)
	case "assert_system":
		handlerErr = o.dispatchAssertSystem(event, res)
	case "expect_tool_call":
		handlerErr = o.dispatchExpectToolCall(ctx, event.params, res)
	case "barge_in":
		handlerErr = o.dispatchBargeIn(ctx, event.params, system, res)
	case "conditional":
		handlerErr = o.dispatchConditional(event, res)
	case "wait":
		handlerErr = o.dispatchWait(event.params)
	case "set_network":
		handlerErr = o.dispatchSetNetwork(event.params)
	default:
		o.logger.Warn("skipping unknown timeline action", "action", event.action,
			"error", fmt.Errorf("%w: unknown action %q", harnesserr.ErrDispatch, event.action))
		return nil
	}

	if handlerErr != nil {
		return fmt.Errorf("%w: %w", harnesserr.ErrDispatch, handlerErr)
	}
	return nil
}

func (o *Orchestrator) dispatchUserSpeak(ctx context.Context, params map[string]any, system adapter.VoiceSystem) error {
	audioLayer := o.audioLayer()
	if audioLayer == nil {
		return fmt.Errorf("user_speak: no audio layer registered")
	}

	text, _ := params["text"].(string)
	audioFile, _ := params["audio_file"].(string)
	style := buildStyle(asMap(params["speech_style"]))

	ch, err := audioLayer.Generate(ctx, text, audioFile, style)
	if err != nil {
		return fmt.Errorf("user_speak: %w", err)
	}

	env := o.environmentLayer()
	net := o.networkLayer()

	for chunk := range ch {
		if env != nil {
			chunk = env.MixWithSpeech(chunk)
		}
		if net != nil {
			delivered, err := net.Apply(ctx, chunk)
			if err != nil {
				return fmt.Errorf("user_speak: network apply: %w", err)
			}
			if delivered == nil {
				continue
			}
			chunk = *delivered
		}
		if system != nil {
			if err := system.PushAudio(ctx, chunk); err != nil {
				return fmt.Errorf("user_speak: push audio: %w", err)
			}
		}
	}

	if system != nil {
		if err := system.CommitAudio(ctx); err != nil {
			return fmt.Errorf("user_speak: commit audio: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) dispatchInjectNoise(params map[string]any) error {
	env := o.environmentLayer()
	if env == nil {
		return fmt.Errorf("inject_noise: no environment layer registered")
	}
	noiseType, _ := params["type"].(string)
	source, _ := params["source"].(string)
	env.Inject(noiseType, source)
	return nil
}

func (o *Orchestrator) dispatchInjectVideo(ctx context.Context, params map[string]any, system adapter.VoiceSystem) error {
	videoLayer := o.videoLayer()
	if videoLayer == nil {
		return fmt.Errorf("inject_video: no video layer registered")
	}
	ev := buildVideoEvent(params)
	ch := videoLayer.Generate(ctx, ev)
	if system == nil {
		for range ch {
		}
		return nil
	}
	for frame := range ch {
		if err := system.PushVideo(ctx, frame); err != nil {
			return fmt.Errorf("inject_video: %w", err)
		}
	}
	return nil
}

// dispatchAssertSystem evaluates an assert_system action. The harness has no
// general introspection surface into an arbitrary system under test's
// internal intent recognition, so expect.intent / expect.did_not are
// recorded as the expectation and the assertion passes vacuously — per
// design this is acceptable because expect_tool_call, barge_in, and the
// scorers are the primary verification surface.
func (o *Orchestrator) dispatchAssertSystem(event *timelineEvent, res *results.TestResults) error {
	expect := asMap(event.params["expect"])
	description := "assert_system"
	if intent, ok := expect["intent"]; ok {
		description = fmt.Sprintf("assert_system: intent == %v", intent)
	} else if didNot, ok := expect["did_not"]; ok {
		description = fmt.Sprintf("assert_system: did not %v", didNot)
	}

	metrics.AssertionsTotal.WithLabelValues("pass").Inc()
	res.Add(results.AssertionResult{
		Timestamp:   event.timestamp,
		Passed:      true,
		Description: description,
		Expected:    expect,
		Placeholder: true,
	})
	return nil
}

func (o *Orchestrator) dispatchExpectToolCall(ctx context.Context, params map[string]any, res *results.TestResults) error {
	toolsLayer := o.toolsLayer()
	if toolsLayer == nil {
		return fmt.Errorf("expect_tool_call: no tools layer registered")
	}
	toolName, _ := params["tool"].(string)
	argsContain := asMap(params["args_contain"])
	timeoutMS, ok := toFloatPtr(params["timeout_ms"])
	timeout := 5 * time.Second
	if ok && timeoutMS != nil {
		timeout = time.Duration(*timeoutMS) * time.Millisecond
	}

	assertion := toolsLayer.WaitForCall(ctx, toolName, argsContain, timeout)
	if assertion.Passed {
		metrics.AssertionsTotal.WithLabelValues("pass").Inc()
	} else {
		metrics.AssertionsTotal.WithLabelValues("fail").Inc()
	}
	res.Add(assertion)
	return nil
}

func (o *Orchestrator) dispatchBargeIn(ctx context.Context, params map[string]any, system adapter.VoiceSystem, res *results.TestResults) error {
	bargeInLayer := o.bargeInLayer()
	if bargeInLayer == nil {
		return fmt.Errorf("barge_in: no barge_in layer registered")
	}
	patternName, _ := params["pattern"].(string)
	correction, _ := params["correction"].(string)
	question, _ := params["question"].(string)

	interrupt, err := bargeInLayer.Simulate(ctx, patternName, responseStream(system), o.audioLayer(), correction, question)
	if err != nil {
		return fmt.Errorf("barge_in: %w", err)
	}

	latencyMS := float64(interrupt.Timestamp.Sub(timeZero()).Milliseconds())
	res.BargeIn = results.BargeInResult{
		WasHandled:        true,
		ResponseLatencyMS: latencyMS,
		Details:           map[string]any{"is_true_interrupt": interrupt.IsTrueInterrupt},
	}
	handled := "false"
	if res.BargeIn.WasHandled {
		handled = "true"
	}
	metrics.BargeInsHandled.WithLabelValues(handled).Inc()
	return nil
}

func (o *Orchestrator) dispatchConditional(event *timelineEvent, res *results.TestResults) error {
	condition, _ := event.params["condition"].(string)
	branches := asMap(event.params["branches"])

	outcome := evalCondition(condition, buildConditionContext(res))
	branch, ok := branches[outcome]
	if !ok {
		branch = branches["default"]
	}
	o.enqueue(asMapSlice(branch), event.timestamp)
	return nil
}

func (o *Orchestrator) dispatchWait(params map[string]any) error {
	durationMS, _ := toFloatPtr(params["duration_ms"])
	if durationMS == nil {
		return nil
	}
	o.clock.AdvanceBy(time.Duration(*durationMS) * time.Millisecond)
	return nil
}

func (o *Orchestrator) dispatchSetNetwork(params map[string]any) error {
	net := o.networkLayer()
	if net == nil {
		return fmt.Errorf("set_network: no network layer registered")
	}
	profile, _ := params["profile"].(string)
	net.SetProfile(profile)
	return nil
}

// buildConditionContext snapshots the parts of TestResults the conditional
// action's dotted-path expressions can reference: last_response, tool_calls,
// and latency.
func buildConditionContext(res *results.TestResults) map[string]any {
	last := res.LastResponse()

	calls := res.ToolCalls.Snapshot()
	toolCalls := make([]any, len(calls))
	for i, c := range calls {
		toolCalls[i] = map[string]any{
			"tool":      c.Tool,
			"args":      c.Args,
			"timestamp": float64(c.Timestamp.Milliseconds()),
			"success":   c.Success,
		}
	}

	return map[string]any{
		"last_response": map[string]any{
			"text":      last.Text,
			"timestamp": float64(last.Timestamp.Milliseconds()),
		},
		"tool_calls": toolCalls,
		"latency": map[string]any{
			"p50_first_byte_ms": res.Latency.P50FirstByte(),
			"p99_first_byte_ms": res.Latency.P99FirstByte(),
			"turn_gap_avg_ms":   res.Latency.TurnGapAvg(),
		},
	}
}

func buildStyle(raw map[string]any) audio.Style {
	if raw == nil {
		return audio.Style{}
	}
	style := audio.Style{}
	if v, ok := raw["voice"].(string); ok {
		style.Voice = v
	}
	if v, ok := toFloatPtr(raw["speed"]); ok && v != nil {
		style.Speed = *v
	}
	if v, ok := raw["emotion"].(string); ok {
		style.Emotion = v
	}
	if v, ok := raw["hesitation"].(bool); ok {
		style.Hesitation = v
	}
	if v, ok := raw["interrupted"].(bool); ok {
		style.Interrupted = v
	}
	if v, ok := toFloatPtr(raw["volume"]); ok && v != nil {
		style.Volume = *v
	}
	return style
}

func buildVideoEvent(params map[string]any) video.Event {
	ev := video.Event{}
	if v, ok := params["source"].(string); ok {
		ev.Source = v
	}
	if v, ok := toFloatPtr(params["duration_ms"]); ok && v != nil {
		ev.Duration = time.Duration(*v) * time.Millisecond
	} else if v, ok := toFloatPtr(params["duration_s"]); ok && v != nil {
		ev.Duration = time.Duration(*v * float64(time.Second))
	}
	if v, ok := params["scene"].(string); ok {
		ev.Scene = v
	}
	if v, ok := params["app"].(string); ok {
		ev.App = v
	}
	if v, ok := params["path"].(string); ok {
		ev.Path = v
	}
	return ev
}
