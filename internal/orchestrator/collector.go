package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"voxharness/internal/adapter"
	"voxharness/internal/metrics"
	"voxharness/internal/model"
	"voxharness/internal/results"
)

// collectResponses runs concurrently with the dispatch loop, draining the
// system under test's response stream into res until the stream closes, ctx
// is cancelled, or responseInactivityTimeout elapses with no event.
func (o *Orchestrator) collectResponses(ctx context.Context, system adapter.VoiceSystem, res *results.TestResults) {
	stream := system.ResponseStream()

	timer := time.NewTimer(responseInactivityTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			o.logger.Debug("response collector idle timeout")
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(responseInactivityTimeout)
			o.recordResponseEvent(event, res)
		}
	}
}

func (o *Orchestrator) recordResponseEvent(event model.ResponseEvent, res *results.TestResults) {
	ts := o.clock.Now()

	switch event.Type {
	case model.ResponseText:
		res.RecordResponse(event.Text, nil, ts)
	case model.ResponseAudio:
		res.RecordResponse("", event.Audio.Samples, ts)
		res.Latency.RecordFirstByte(float64(ts.Milliseconds()))
		metrics.FirstByteLatency.Observe(ts.Seconds())
	case model.ResponseToolCall:
		res.RecordToolCall(event.ToolName, event.ToolArgs, ts, true, 0)
	case model.ResponseToolResult:
		outcome := "success"
		if !event.ToolResult.Success {
			outcome = "failure"
		}
		metrics.ToolCallsTotal.WithLabelValues(event.ToolResult.Name, outcome).Inc()
	case model.ResponseStateChange:
		res.Tag("state:" + string(event.State))
	case model.ResponseError:
		o.logger.Warn("system under test reported an error", "error", event.Err)
		res.Add(results.AssertionResult{
			Timestamp:   ts,
			Passed:      false,
			Description: "System under test reported an error",
			Actual:      event.Err,
		})
	}
}
