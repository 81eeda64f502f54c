// Package adapter defines the VoiceSystemInterface boundary the harness
// uses to talk to any system under test, and a reference WebSocket-based
// implementation of it.
package adapter

import (
	"context"

	"voxharness/internal/model"
)

// ToolHandler answers a tool call made by the system under test.
type ToolHandler func(ctx context.Context, args map[string]any) model.ToolResult

// VoiceSystem is the interface the harness drives every system under test
// through. The harness is agnostic to the concrete SUT behind it.
type VoiceSystem interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	PushAudio(ctx context.Context, chunk model.AudioChunk) error
	PushVideo(ctx context.Context, frame model.VideoFrame) error
	CommitAudio(ctx context.Context) error
	CreateResponse(ctx context.Context) error
	ResponseStream() <-chan model.ResponseEvent
	RegisterToolHandler(name string, handler ToolHandler) error
	ConfigureSession(ctx context.Context, config map[string]any) error
	State() model.SystemState
}
