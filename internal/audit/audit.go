package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/goContacts/internal/logging"
)

// Event is one security-relevant outcome of an identity operation.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       string            `json:"type"`
	IdentityID string            `json:"identity_id,omitempty"`
	TokenID    string            `json:"token_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Success    bool              `json:"success"`
	Code       string            `json:"code,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted events. Emit must not block for long: the
// dispatcher calls it from a single goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events into a buffered channel, mostly for tests.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// LoggerSink writes events through the structured logger at info level,
// or warn level for failures.
type LoggerSink struct {
	log logging.Logger
}

func NewLoggerSink(log logging.Logger) *LoggerSink {
	if log == nil {
		log = logging.Nop()
	}
	return &LoggerSink{log: log.With("component", "audit")}
}

func (s *LoggerSink) Emit(ctx context.Context, event Event) {
	args := []any{
		"type", event.Type,
		"success", event.Success,
	}
	if event.IdentityID != "" {
		args = append(args, "identity_id", event.IdentityID)
	}
	if event.IP != "" {
		args = append(args, "ip", event.IP)
	}
	if event.Code != "" {
		args = append(args, "code", event.Code)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	if event.Success {
		s.log.Info(ctx, "audit", args...)
		return
	}
	s.log.Warn(ctx, "audit", args...)
}
