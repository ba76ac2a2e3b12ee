package rtcall

import (
	"sync"

	"github.com/rs/zerolog"
)

// eventSink receives decoded envelopes from the bridge. The connection's
// join router is the only implementation.
type eventSink interface {
	deliver(ev *Event)
}

// BridgeStats provides adapter statistics.
type BridgeStats struct {
	BuffersReceived uint64
	EventsDelivered uint64
	DecodeErrors    uint64
}

// EventBridge is the native boundary adapter. It owns the receiving end
// of the foreign event callback: each invocation hands it a buffer the
// foreign side still owns, which the bridge copies, decodes and routes to
// the connection before the buffer is released.
//
// HandleForeign runs on whatever thread the native side invokes the
// callback from and must never wait on the consumer; routing ends at the
// connection's non-blocking queue.
type EventBridge struct {
	sink   eventSink
	logger zerolog.Logger

	stats   BridgeStats
	statsMu sync.Mutex
}

func newEventBridge(sink eventSink, logger zerolog.Logger) *EventBridge {
	return &EventBridge{
		sink:   sink,
		logger: logger.With().Str("component", "event-bridge").Logger(),
	}
}

// HandleForeign processes one foreign-owned buffer. The buffer is only
// valid for the duration of the call; release is invoked exactly once on
// every path, including decode failure.
func (b *EventBridge) HandleForeign(buf []byte, release func()) {
	defer release()

	data := make([]byte, len(buf))
	copy(data, buf)
	b.Handle(data)
}

// Handle decodes an owned serialized envelope and routes it. A malformed
// buffer is the one place a silent drop is allowed: the data is
// unrecoverable, so it is logged and that single event is discarded.
func (b *EventBridge) Handle(data []byte) {
	b.statsMu.Lock()
	b.stats.BuffersReceived++
	b.statsMu.Unlock()

	ev, err := DecodeEvent(data)
	if err != nil {
		b.statsMu.Lock()
		b.stats.DecodeErrors++
		b.statsMu.Unlock()
		b.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping undecodable event buffer")
		return
	}

	b.statsMu.Lock()
	b.stats.EventsDelivered++
	b.statsMu.Unlock()
	b.sink.deliver(ev)
}

// Stats returns adapter statistics.
func (b *EventBridge) Stats() BridgeStats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}
