package rtcall

import (
	"testing"

	"github.com/rs/zerolog"
)

type recordingSink struct {
	events []*Event
}

func (s *recordingSink) deliver(ev *Event) {
	s.events = append(s.events, ev)
}

func TestBridgeHandleForeignReleasesOnce(t *testing.T) {
	sink := &recordingSink{}
	bridge := newEventBridge(sink, zerolog.Nop())

	tests := []struct {
		name string
		data string
	}{
		{"decodable", `{"type":"call_ended"}`},
		{"undecodable", `garbage`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			releases := 0
			bridge.HandleForeign([]byte(tt.data), func() { releases++ })
			if releases != 1 {
				t.Errorf("release called %d times, want exactly 1", releases)
			}
		})
	}
}

func TestBridgeHandleForeignCopiesBuffer(t *testing.T) {
	sink := &recordingSink{}
	bridge := newEventBridge(sink, zerolog.Nop())

	buf := []byte(`{"type":"unrecognized_kind","x":1}`)
	bridge.HandleForeign(buf, func() {
		// Simulate the foreign side reclaiming the buffer on release.
		for i := range buf {
			buf[i] = 0
		}
	})

	if len(sink.events) != 1 {
		t.Fatalf("delivered %d events, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Kind != EventKindUnknown || ev.RawKind != "unrecognized_kind" {
		t.Errorf("event = kind %v rawkind %q", ev.Kind, ev.RawKind)
	}
	if string(ev.Raw) != `{"type":"unrecognized_kind","x":1}` {
		t.Errorf("Raw aliased the foreign buffer: %q", ev.Raw)
	}
}

func TestBridgeDropsOnlyUndecodableEvent(t *testing.T) {
	sink := &recordingSink{}
	bridge := newEventBridge(sink, zerolog.Nop())

	bridge.Handle([]byte(`{"type":"join_ack","session_id":"a"}`))
	bridge.Handle([]byte(`{{{`))
	bridge.Handle([]byte(`{"type":"join_ack","session_id":"b"}`))

	if len(sink.events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(sink.events))
	}
	if sink.events[0].JoinAck.SessionID != "a" || sink.events[1].JoinAck.SessionID != "b" {
		t.Errorf("events = %q, %q", sink.events[0].JoinAck.SessionID, sink.events[1].JoinAck.SessionID)
	}

	stats := bridge.Stats()
	if stats.BuffersReceived != 3 || stats.EventsDelivered != 2 || stats.DecodeErrors != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
