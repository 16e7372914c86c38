package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goContacts/internal/logging"
)

type blockingSink struct {
	mu      sync.Mutex
	release chan struct{}
	events  []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{Type: "login"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Type: "login", IdentityID: "id-1", Success: true})
	}
	d.Close()

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
	d.Emit(context.Background(), Event{Type: "late"})
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: "login"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a stalled sink")
	}
	close(sink.release)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			d.Emit(ctx, Event{Type: "login"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit did not return after context deadline")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{Type: "register", IdentityID: "id-7", Success: true})

	line := strings.TrimSpace(buf.String())
	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("invalid json line %q: %v", line, err)
	}
	if got["type"] != "register" || got["identity_id"] != "id-7" {
		t.Fatalf("unexpected event json: %v", got)
	}
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLoggerSink(logging.New(&buf, "json", "debug"))

	s.Emit(context.Background(), Event{Type: "login", Success: false, Code: "invalid_credentials", IP: "10.0.0.1"})

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, "invalid_credentials") {
		t.Fatalf("unexpected log output: %s", out)
	}
	if !strings.Contains(out, `"component":"audit"`) {
		t.Fatalf("expected component attribute: %s", out)
	}
}
