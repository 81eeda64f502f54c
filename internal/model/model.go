// Package model holds the data types shared across simulation, adapter,
// orchestrator, and scoring: audio/video payloads, the response event
// union, system state, tool results, and interrupt events.
package model

import "time"

// AudioChunk is a slice of PCM16 mono audio samples plus the sample rate it
// was generated at.
type AudioChunk struct {
	Samples    []int16   `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Timestamp  time.Time `json:"timestamp"`
}

// VideoFrame is a single encoded video frame.
type VideoFrame struct {
	Data      []byte    `json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Format    string    `json:"format"` // "jpeg", "raw_rgb", ...
	Timestamp time.Time `json:"timestamp"`
}

// ResponseEventType enumerates the finite set of kinds a ResponseEvent can
// carry. Deliberately a flat tag, not a type hierarchy — see the original
// design notes on polymorphism.
type ResponseEventType string

const (
	ResponseAudio       ResponseEventType = "audio"
	ResponseText        ResponseEventType = "text"
	ResponseToolCall    ResponseEventType = "tool_call"
	ResponseToolResult  ResponseEventType = "tool_result"
	ResponseStateChange ResponseEventType = "state_change"
	ResponseError       ResponseEventType = "error"
)

// ResponseEvent is a tagged variant over everything a VoiceSystemInterface
// can emit on its response stream. Only the fields relevant to Type are
// populated; the rest are zero.
type ResponseEvent struct {
	Type      ResponseEventType `json:"type"`
	Timestamp time.Time         `json:"timestamp"`

	// ResponseAudio
	Audio AudioChunk `json:"-"`

	// ResponseText
	Text string `json:"text,omitempty"`

	// ResponseToolCall
	ToolName string         `json:"tool_name,omitempty"`
	ToolArgs map[string]any `json:"tool_args,omitempty"`
	CallID   string         `json:"call_id,omitempty"`

	// ResponseToolResult
	ToolResult ToolResult `json:"tool_result,omitempty"`

	// ResponseStateChange
	State SystemState `json:"state,omitempty"`

	// ResponseError
	Err string `json:"error,omitempty"`
}

// SystemState mirrors the SUT's coarse conversational state machine.
type SystemState string

const (
	StateIdle       SystemState = "idle"
	StateListening  SystemState = "listening"
	StateThinking   SystemState = "thinking"
	StateSpeaking   SystemState = "speaking"
	StateToolCall   SystemState = "tool_call"
	StateDisconnect SystemState = "disconnected"
)

// ToolResult is the outcome of a mocked tool invocation.
type ToolResult struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// InterruptEvent records a barge-in: the user started speaking while the
// system was mid-response.
type InterruptEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	Audio           []int16   `json:"-"`
	IsTrueInterrupt bool      `json:"is_true_interrupt"`
}
