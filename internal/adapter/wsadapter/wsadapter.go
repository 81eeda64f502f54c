// Package wsadapter is the reference VoiceSystemInterface implementation:
// it drives an arbitrary WebSocket-based voice system over a JSON message
// protocol. Override-by-embedding the Codec if a concrete system under test
// uses a different wire format.
package wsadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxharness/internal/adapter"
	"voxharness/internal/model"
)

// Codec encodes outbound messages and decodes inbound ones for a specific
// wire format. DefaultCodec implements the harness's own JSON protocol;
// a test against a different SUT format supplies its own Codec.
type Codec interface {
	EncodeAudio(chunk model.AudioChunk) any
	EncodeVideo(frame model.VideoFrame) any
	EncodeCommit() any
	EncodeResponseRequest() any
	EncodeSessionConfig(config map[string]any) any
	EncodeToolResult(result model.ToolResult) any
	DecodeEvent(raw []byte) (*model.ResponseEvent, error)
}

// responseQueueTimeout records the reference adapter's 30s inactivity
// cutoff. The adapter does not apply it: ResponseStream returns the event
// channel without any timeout, and the orchestrator's response collector
// applies its own responseInactivityTimeout.
const responseQueueTimeout = 30 * time.Second

// Adapter drives a WebSocket-based system under test.
type Adapter struct {
	url     string
	headers http.Header
	codec   Codec

	mu           sync.Mutex
	conn         *websocket.Conn
	state        model.SystemState
	toolHandlers map[string]adapter.ToolHandler

	events chan model.ResponseEvent
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a WebSocket adapter targeting url. codec may be nil to use
// DefaultCodec.
func New(url string, headers http.Header, codec Codec) *Adapter {
	if codec == nil {
		codec = DefaultCodec{}
	}
	return &Adapter{
		url:          url,
		headers:      headers,
		codec:        codec,
		state:        model.StateIdle,
		toolHandlers: map[string]adapter.ToolHandler{},
		events:       make(chan model.ResponseEvent, 64),
	}
}

// Connect dials the system under test and starts the listener goroutine.
func (a *Adapter) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, a.headers)
	if err != nil {
		return fmt.Errorf("connect to system under test: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	listenCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.listen(listenCtx)
	return nil
}

// Disconnect stops the listener and closes the connection.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.state = model.StateIdle
	a.mu.Unlock()

	// Closing the connection first unblocks the listener's pending read.
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	return err
}

func (a *Adapter) listen(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		a.mu.Lock()
		conn := a.conn
		a.mu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		event, err := a.codec.DecodeEvent(raw)
		if err != nil || event == nil {
			continue
		}
		a.applyStateTransition(*event)

		if event.Type == model.ResponseToolCall {
			a.dispatchToolCall(ctx, *event)
		}

		select {
		case a.events <- *event:
		case <-ctx.Done():
			return
		}
	}
}

// dispatchToolCall invokes a registered handler for an incoming tool call
// and sends its result back to the system under test. The handler runs in
// its own goroutine so a slow or blocking handler can't stall the listener
// loop or delay forwarding the ResponseToolCall event to the orchestrator.
func (a *Adapter) dispatchToolCall(ctx context.Context, event model.ResponseEvent) {
	a.mu.Lock()
	handler, ok := a.toolHandlers[event.ToolName]
	a.mu.Unlock()
	if !ok {
		return
	}

	go func() {
		result := handler(ctx, event.ToolArgs)
		result.CallID = event.CallID
		result.Name = event.ToolName
		if err := a.send(a.codec.EncodeToolResult(result)); err != nil {
			slog.Default().Error("wsadapter: failed to send tool result", "tool", event.ToolName, "error", err)
		}
	}()
}

func (a *Adapter) applyStateTransition(event model.ResponseEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Type {
	case model.ResponseAudio, model.ResponseText:
		a.state = model.StateSpeaking
	case model.ResponseToolCall:
		a.state = model.StateToolCall
	}
}

// PushAudio sends a chunk to the system under test.
func (a *Adapter) PushAudio(ctx context.Context, chunk model.AudioChunk) error {
	return a.send(a.codec.EncodeAudio(chunk))
}

// PushVideo sends a video frame.
func (a *Adapter) PushVideo(ctx context.Context, frame model.VideoFrame) error {
	return a.send(a.codec.EncodeVideo(frame))
}

// CommitAudio signals the end of an audio segment.
func (a *Adapter) CommitAudio(ctx context.Context) error {
	return a.send(a.codec.EncodeCommit())
}

// CreateResponse requests the system generate a response.
func (a *Adapter) CreateResponse(ctx context.Context) error {
	a.mu.Lock()
	a.state = model.StateThinking
	a.mu.Unlock()
	return a.send(a.codec.EncodeResponseRequest())
}

// ConfigureSession sends session-level configuration.
func (a *Adapter) ConfigureSession(ctx context.Context, config map[string]any) error {
	return a.send(a.codec.EncodeSessionConfig(config))
}

// ResponseStream returns the channel of decoded response events.
func (a *Adapter) ResponseStream() <-chan model.ResponseEvent {
	return a.events
}

// RegisterToolHandler registers a mock tool handler under name.
func (a *Adapter) RegisterToolHandler(name string, handler adapter.ToolHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toolHandlers[name] = handler
	return nil
}

// State returns the adapter's current view of the system's state.
func (a *Adapter) State() model.SystemState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) send(message any) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("wsadapter: not connected")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

var _ adapter.VoiceSystem = (*Adapter)(nil)

// DefaultCodec implements the harness's own JSON wire protocol.
type DefaultCodec struct{}

type wireMessage struct {
	Type       string         `json:"type"`
	Data       string         `json:"data,omitempty"`
	SampleRate int            `json:"sample_rate,omitempty"`
	Resolution []int          `json:"resolution,omitempty"`
	Name       string         `json:"name,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	CallID     string         `json:"call_id,omitempty"`
	Text       string         `json:"text,omitempty"`
	Message    string         `json:"message,omitempty"`
	Success    bool           `json:"success,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Config     map[string]any `json:"-"`
}

func (DefaultCodec) EncodeAudio(chunk model.AudioChunk) any {
	buf := make([]byte, len(chunk.Samples)*2)
	for i, s := range chunk.Samples {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}
	return wireMessage{Type: "audio", Data: base64.StdEncoding.EncodeToString(buf), SampleRate: chunk.SampleRate}
}

func (DefaultCodec) EncodeVideo(frame model.VideoFrame) any {
	return wireMessage{Type: "video", Data: base64.StdEncoding.EncodeToString(frame.Data), Resolution: []int{frame.Width, frame.Height}}
}

func (DefaultCodec) EncodeToolResult(result model.ToolResult) any {
	return wireMessage{
		Type:    "tool_result",
		CallID:  result.CallID,
		Name:    result.Name,
		Success: result.Success,
		Result:  result.Result,
		Message: result.Err,
	}
}

func (DefaultCodec) EncodeCommit() any { return wireMessage{Type: "commit"} }

func (DefaultCodec) EncodeResponseRequest() any { return wireMessage{Type: "request_response"} }

func (DefaultCodec) EncodeSessionConfig(config map[string]any) any {
	out := map[string]any{"type": "session_config"}
	for k, v := range config {
		out[k] = v
	}
	return out
}

func (DefaultCodec) DecodeEvent(raw []byte) (*model.ResponseEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case "audio":
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return nil, err
		}
		samples := make([]int16, len(data)/2)
		for i := range samples {
			samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
		}
		return &model.ResponseEvent{
			Type:  model.ResponseAudio,
			Audio: model.AudioChunk{Samples: samples, SampleRate: msg.SampleRate},
		}, nil
	case "text":
		return &model.ResponseEvent{Type: model.ResponseText, Text: msg.Text}, nil
	case "tool_call":
		return &model.ResponseEvent{
			Type:     model.ResponseToolCall,
			ToolName: msg.Name,
			ToolArgs: msg.Arguments,
			CallID:   msg.CallID,
		}, nil
	case "error":
		errMsg := msg.Message
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		return &model.ResponseEvent{Type: model.ResponseError, Err: errMsg}, nil
	default:
		return nil, nil
	}
}
