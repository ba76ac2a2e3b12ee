package rtcall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Phase is the connection lifecycle state.
type Phase int

const (
	PhaseIdle    Phase = iota // Created, join not started
	PhaseJoining              // Handshake in flight
	PhaseJoined               // Steady-state event flow
	PhaseLeft                 // Terminal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseJoining:
		return "joining"
	case PhaseJoined:
		return "joined"
	case PhaseLeft:
		return "left"
	default:
		return "unknown"
	}
}

var (
	// ErrJoinTimeout is returned when a join attempt does not resolve
	// within the caller's deadline. The native attempt is abandoned.
	ErrJoinTimeout = errors.New("join attempt timed out")

	// ErrUnexpectedJoinReply is returned when the native side delivers a
	// non-handshake event while the join is still pending. This is a
	// protocol violation, not a join success or failure.
	ErrUnexpectedJoinReply = errors.New("unexpected event while join pending")

	// ErrConnectionClosed is returned by Next and SendAudio once the
	// connection has left the call.
	ErrConnectionClosed = errors.New("connection closed")
)

// DefaultJoinTimeout bounds the handshake when JoinOptions.Timeout is zero.
const DefaultJoinTimeout = 10 * time.Second

// CallIdentity names the call a connection belongs to.
type CallIdentity struct {
	CallType string
	CallID   string
	UserID   string
}

// JoinOptions configures a join attempt.
type JoinOptions struct {
	APIKey  string
	Token   string
	Timeout time.Duration // Handshake deadline (default: DefaultJoinTimeout)

	// Mock, when set, replaces live participant media with the mock audio
	// pipeline. Invalid mock assets fail the join before any native call.
	Mock *MockConfig

	Logger *zerolog.Logger // nil means no logging
}

// ConnectionStats provides consumer-side statistics.
type ConnectionStats struct {
	EventsQueued   uint64
	EventsConsumed uint64
	StaleDropped   uint64
}

// joinSlot is the one-shot resolution slot armed while a join is pending.
// The router sends at most one result; abandonment (timeout, cancel)
// detaches the slot so a late resolution becomes a no-op.
type joinSlot struct {
	ch chan joinResult // cap 1
}

type joinResult struct {
	ack *JoinAck
	err error
}

// Connection owns one call membership: the join handshake, the inbound
// event queue and the teardown of native resources. It is driven by a
// single consumer task; only the event bridge touches it from outside
// that task, through deliver.
type Connection struct {
	id        CallIdentity
	transport Transport
	bridge    *EventBridge
	sender    *AudioSender
	logger    zerolog.Logger

	mu      sync.Mutex
	phase   Phase
	pending *joinSlot
	queue   *eventQueue
	mock    *MockEngine
	ended   bool // consumer observed CallEnded

	leaveOnce sync.Once
	leaveErr  error

	stats   ConnectionStats
	statsMu sync.Mutex
}

// Join starts a call membership: it transitions Idle -> Joining, hands the
// serialized credentials (and mock config, if any) to the native side,
// and suspends until the event callback resolves the handshake or the
// deadline passes. Exactly one of a live connection, a *JoinError, a
// timeout or a cancellation error is produced.
func Join(ctx context.Context, transport Transport, id CallIdentity, opts JoinOptions) (*Connection, error) {
	if transport == nil {
		return nil, fmt.Errorf("join: transport is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().
			Str("call_type", id.CallType).
			Str("call_id", id.CallID).
			Str("user_id", id.UserID).
			Logger()
	}

	slot := &joinSlot{ch: make(chan joinResult, 1)}
	c := &Connection{
		id:        id,
		transport: transport,
		logger:    logger.With().Str("component", "connection").Logger(),
		phase:     PhaseJoining,
		pending:   slot,
		queue:     newEventQueue(),
	}
	c.bridge = newEventBridge(c, logger)

	req := &JoinRequest{
		APIKey:   opts.APIKey,
		Token:    opts.Token,
		CallType: id.CallType,
		CallID:   id.CallID,
		UserID:   id.UserID,
	}

	// Mock assets are decoded up front so a missing or corrupt file fails
	// the join before the native side is touched.
	if opts.Mock != nil {
		engine, cfgBytes, err := newMockEngine(opts.Mock, c.bridge, logger)
		if err != nil {
			c.markLeftLocally()
			return nil, err
		}
		c.mock = engine
		req.MockConfig = cfgBytes
	}

	if binder, ok := transport.(BridgeBinder); ok {
		binder.BindBridge(c.bridge)
	}

	if err := transport.Join(req); err != nil {
		c.Leave()
		return nil, fmt.Errorf("native join: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-slot.ch:
		return c.finishJoin(res)
	case <-timer.C:
		if c.abandonPending(slot) {
			c.logger.Warn().Dur("timeout", timeout).Msg("join attempt timed out")
			c.Leave()
			return nil, fmt.Errorf("%w after %s", ErrJoinTimeout, timeout)
		}
		// Resolution won the race against the timer.
		return c.finishJoin(<-slot.ch)
	case <-ctx.Done():
		// Cancellation propagates to the native side regardless of a
		// racing resolution: the caller is gone either way.
		c.abandonPending(slot)
		c.Leave()
		return nil, ctx.Err()
	}
}

func (c *Connection) finishJoin(res joinResult) (*Connection, error) {
	if res.err != nil {
		c.Leave()
		return nil, res.err
	}

	c.sender = NewAudioSender(rand.Uint32(), DefaultAudioPayloadType)
	c.logger.Info().Str("session_id", res.ack.SessionID).Msg("joined call")
	if c.mock != nil {
		c.mock.Start()
	}
	return c, nil
}

// abandonPending detaches the slot if it is still armed. Reports whether
// this call won; losing means a resolution already claimed the slot.
func (c *Connection) abandonPending(slot *joinSlot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == slot {
		c.pending = nil
		return true
	}
	return false
}

// markLeftLocally moves to Left without touching the native side, for
// failures that happen before any native call was made.
func (c *Connection) markLeftLocally() {
	c.leaveOnce.Do(func() {
		c.mu.Lock()
		c.phase = PhaseLeft
		c.pending = nil
		c.mu.Unlock()
		c.queue.close()
	})
}

// deliver routes one decoded event. While a join is pending every event
// resolves the one-shot slot: JoinAck as success, JoinError as typed
// failure, anything else as a protocol violation. The instant the slot is
// claimed the router swaps to steady-state delivery, so an event is never
// split between the two destinations. After Left, events belong to a
// stale identity and are counted and dropped.
func (c *Connection) deliver(ev *Event) {
	c.mu.Lock()
	if c.phase == PhaseLeft {
		c.mu.Unlock()
		c.statsMu.Lock()
		c.stats.StaleDropped++
		c.statsMu.Unlock()
		return
	}

	if slot := c.pending; slot != nil {
		c.pending = nil
		var res joinResult
		switch ev.Kind {
		case EventKindJoinAck:
			c.phase = PhaseJoined
			res = joinResult{ack: ev.JoinAck}
		case EventKindJoinError:
			res = joinResult{err: ev.JoinError}
		default:
			res = joinResult{err: fmt.Errorf("%w: got %s", ErrUnexpectedJoinReply, ev.Kind)}
		}
		c.mu.Unlock()
		slot.ch <- res
		return
	}

	q := c.queue
	c.mu.Unlock()

	if q.push(ev) {
		c.statsMu.Lock()
		c.stats.EventsQueued++
		c.statsMu.Unlock()
	}
}

// Next returns the next event in arrival order, suspending until one is
// available or the connection leaves the call. After CallEnded has been
// returned, Next reports io.EOF. Exactly one task may call Next.
func (c *Connection) Next(ctx context.Context) (*Event, error) {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return nil, io.EOF
	}

	ev, err := c.queue.pop(ctx)
	if err != nil {
		return nil, err
	}

	c.statsMu.Lock()
	c.stats.EventsConsumed++
	c.statsMu.Unlock()

	if ev.Kind == EventKindCallEnded {
		c.mu.Lock()
		c.ended = true
		c.mu.Unlock()
	}
	return ev, nil
}

// SendAudio forwards one PCM frame to the native outbound path, wrapped
// in RTP framing.
func (c *Connection) SendAudio(frame *PcmFrame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()
	if phase != PhaseJoined {
		return fmt.Errorf("send audio: %w", ErrConnectionClosed)
	}

	packets, err := c.sender.Packetize(frame)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := c.transport.SendAudio(pkt); err != nil {
			return fmt.Errorf("native send audio: %w", err)
		}
	}
	return nil
}

// Leave tears the connection down: stops the mock producer if one is
// attached, tells the native side to leave, discards the queue and moves
// to Left. Idempotent; later calls return the first outcome.
func (c *Connection) Leave() error {
	c.leaveOnce.Do(func() {
		c.mu.Lock()
		c.phase = PhaseLeft
		c.pending = nil
		engine := c.mock
		c.mu.Unlock()

		var errs []error
		if engine != nil {
			engine.Stop()
			if err := c.transport.StopMock(c.id.CallType, c.id.CallID); err != nil {
				errs = append(errs, fmt.Errorf("stop mock: %w", err))
			}
		}
		if err := c.transport.Leave(c.id.CallType, c.id.CallID); err != nil {
			errs = append(errs, fmt.Errorf("native leave: %w", err))
		}
		if binder, ok := c.transport.(BridgeBinder); ok {
			binder.UnbindBridge()
		}
		c.queue.close()
		c.leaveErr = errors.Join(errs...)
		c.logger.Info().Msg("left call")
	})
	return c.leaveErr
}

// Phase returns the current lifecycle state.
func (c *Connection) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ID returns the call identity this connection was created for.
func (c *Connection) ID() CallIdentity { return c.id }

// Stats returns consumer-side statistics.
func (c *Connection) Stats() ConnectionStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// BridgeStats returns the adapter statistics for this connection.
func (c *Connection) BridgeStats() BridgeStats {
	return c.bridge.Stats()
}

// WithConnection joins, runs fn with the live connection and leaves on
// every exit path, including an error from fn and context cancellation.
func WithConnection(ctx context.Context, transport Transport, id CallIdentity, opts JoinOptions, fn func(ctx context.Context, conn *Connection) error) error {
	conn, err := Join(ctx, transport, id, opts)
	if err != nil {
		return err
	}
	defer conn.Leave()
	return fn(ctx, conn)
}
