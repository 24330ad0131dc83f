package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func event(eventType string) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   true,
	}
}

func TestRingSinkSnapshotOldestFirst(t *testing.T) {
	ring := NewRingSink(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ring.Emit(ctx, event("e"+strconv.Itoa(i)))
	}

	snapshot := ring.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(snapshot))
	}
	for i, want := range []string{"e2", "e3", "e4"} {
		if snapshot[i].EventType != want {
			t.Fatalf("slot %d: expected %s, got %s", i, want, snapshot[i].EventType)
		}
	}
}

func TestRingSinkPartialFill(t *testing.T) {
	ring := NewRingSink(8)
	ring.Emit(context.Background(), event("only"))

	snapshot := ring.Snapshot()
	if len(snapshot) != 1 || snapshot[0].EventType != "only" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "challenge_sent", Identifier: "+919876543210", Success: true})
	sink.Emit(context.Background(), Event{EventType: "challenge_invalid", Error: "invalid_code"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal(lines[0], &decoded); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if decoded.EventType != "challenge_sent" || decoded.Identifier != "+919876543210" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	ring := NewRingSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, ring)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), event("e"+strconv.Itoa(i)))
	}
	d.Close()

	if got := len(ring.Snapshot()); got != 10 {
		t.Fatalf("expected all 10 events delivered after close, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

// blockingSink parks until released so the dispatcher buffer can fill up.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event may be in flight and one buffered; everything beyond that
	// must be dropped, not block.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), event("e"))
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.release)
	d.Close()
}

func TestDisabledDispatcherIsNilSafe(t *testing.T) {
	d := NewDispatcher(Config{}, NewRingSink(1))
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	// All methods must tolerate the nil receiver.
	d.Emit(context.Background(), event("e"))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

func TestChannelSinkDeliversEvents(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), event("challenge_verified"))

	select {
	case got := <-sink.Events():
		if got.EventType != "challenge_verified" {
			t.Fatalf("unexpected event: %+v", got)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}
