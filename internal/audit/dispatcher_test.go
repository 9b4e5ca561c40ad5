package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
)

type gateSink struct {
	gate chan struct{}
	got  chan Event
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{}), got: make(chan Event, 16)}
}

func (s *gateSink) Emit(_ context.Context, event Event) {
	<-s.gate
	s.got <- event
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: EventLogout})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event is held by the blocked sink, one fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: EventLoginFailure})
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.gate)
	d.Close()
	if got := d.Delivered() + d.Dropped(); got != 5 {
		t.Fatalf("delivered+dropped = %d, want 5", got)
	}
}

func TestDispatcherCloseFlushesBuffer(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: EventSignup, Success: true})
	}
	d.Close()
	d.Close()

	if got := len(sink.Events()); got != 3 {
		t.Fatalf("expected 3 flushed events, got %d", got)
	}
	d.Emit(context.Background(), Event{EventType: EventSignup})
	if got := len(sink.Events()); got != 3 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestBlockingEmitHonorsContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: EventLogout})
	time.Sleep(5 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: EventLogout})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, Event{EventType: EventLogout})
	if time.Since(start) > time.Second {
		t.Fatal("blocking emit ignored context cancellation")
	}
}

func TestRecordRedactsAndStamps(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, Now: func() time.Time { return at }}, sink)

	d.Record(context.Background(), EventLoginFailure, identity.MustEmail("Alice@Example.com"), false, errors.New("incorrect credentials"))
	d.Record(context.Background(), EventTokenRejected, identity.Email{}, false, nil)
	d.Close()

	first := <-sink.Events()
	if first.Subject != "a***@example.com" {
		t.Fatalf("subject = %q, want redacted email", first.Subject)
	}
	if !first.Timestamp.Equal(at) || first.Error != "incorrect credentials" || first.Success {
		t.Fatalf("unexpected event: %+v", first)
	}
	second := <-sink.Events()
	if second.Subject != "" || second.Error != "" {
		t.Fatalf("zero subject must stay empty: %+v", second)
	}
	if d.Delivered() != 2 {
		t.Fatalf("delivered = %d, want 2", d.Delivered())
	}
}

func TestCloseWaitsForBlockedEmit(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: EventSignup})
	time.Sleep(5 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: EventSignup})

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		d.Emit(context.Background(), Event{EventType: EventSignup})
	}()
	time.Sleep(5 * time.Millisecond)

	close(sink.gate)
	<-blocked
	d.Close()
	if d.Delivered() != 3 {
		t.Fatalf("delivered = %d, want 3", d.Delivered())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: EventMFARequired, Subject: "a***@example.com", Success: true})
	sink.Emit(context.Background(), Event{EventType: EventMFAFailure, Error: "incorrect credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != EventMFARequired || ev.Subject != "a***@example.com" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestLogSinkUsesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewLogSink(logger).Emit(context.Background(), Event{EventType: EventLogout, Subject: "a***@example.com", Success: true})

	out := buf.String()
	for _, want := range []string{`"component":"audit"`, `"event_type":"logout"`, `"subject":"a***@example.com"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %s", out, want)
		}
	}
}
