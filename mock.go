package rtcall

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline audio constants. Every mock frame is emitted at the target
// rate regardless of the source asset's format.
const (
	// TargetSampleRate is the pipeline's fixed output rate in Hz.
	TargetSampleRate = 48000

	// FrameDuration is the fixed emission quantum.
	FrameDuration = 20 * time.Millisecond

	// SamplesPerFrame is the sample count of one full mono frame
	// (TargetSampleRate * 20ms).
	SamplesPerFrame = TargetSampleRate / 50
)

// Pacing governs how quickly a mock participant's frames are emitted.
type Pacing int

const (
	// PacingRealTime emits one frame per 20ms of wall-clock time against
	// an absolute schedule, so jitter never accumulates into drift.
	PacingRealTime Pacing = iota

	// PacingAsFastAsPossible emits all frames back to back.
	PacingAsFastAsPossible
)

func (p Pacing) String() string {
	switch p {
	case PacingRealTime:
		return "RealTime"
	case PacingAsFastAsPossible:
		return "AsFastAsPossible"
	default:
		return "Unknown"
	}
}

// MockAudioConfig selects a participant's audio asset: a recorded WAV
// file, or a synthetic pattern generated at the target rate.
type MockAudioConfig struct {
	FilePath string              `json:"file_path,omitempty"`
	Pattern  *AudioPatternConfig `json:"pattern,omitempty"`
	Pacing   Pacing              `json:"pacing"`
}

// MockParticipant is one synthetic call participant. Audio may be nil for
// a participant that joins but never speaks.
type MockParticipant struct {
	UserID      string           `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Audio       *MockAudioConfig `json:"audio,omitempty"`
}

// MockConfig replaces the live transport's media with synthetic
// participants. It is consumed for the lifetime of one connection and
// torn down on leave.
type MockConfig struct {
	Participants []MockParticipant `json:"participants"`
}

// MockConfigError reports an invalid or unreadable mock audio asset. It
// fails the join attempt before any native call is made.
type MockConfigError struct {
	UserID string
	Err    error
}

func (e *MockConfigError) Error() string {
	return fmt.Sprintf("mock config: participant %q: %v", e.UserID, e.Err)
}

func (e *MockConfigError) Unwrap() error { return e.Err }

// MockStats provides engine statistics.
type MockStats struct {
	EventsEmitted uint64
	FramesEmitted uint64
	FramesPadded  uint64
}

// mockParticipantState is one participant's pre-decoded playback state.
// The frames slice is the participant's exclusive playback cursor;
// nothing is shared between participants.
type mockParticipantState struct {
	userID      string
	displayName string
	frames      [][]byte // mono S16LE, SamplesPerFrame samples each
	pacing      Pacing
}

// MockEngine synthesizes participant audio for one connection. Assets are
// decoded, folded to mono and resampled to the target rate up front; Start
// then announces each participant and plays their frames in order, ending
// the stream with a single CallEnded. All events travel through the same
// bridge decode path as native ones, so consumers cannot tell synthetic
// audio from real.
type MockEngine struct {
	participants []*mockParticipantState
	bridge       *EventBridge
	logger       zerolog.Logger

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	stats   MockStats
	statsMu sync.Mutex
}

// newMockEngine decodes every configured asset, failing fast on a missing
// or corrupt file. It also returns the serialized config for the join
// request, so the native side knows the call is mocked.
func newMockEngine(cfg *MockConfig, bridge *EventBridge, logger zerolog.Logger) (*MockEngine, json.RawMessage, error) {
	e := &MockEngine{
		bridge: bridge,
		logger: logger.With().Str("component", "mock-engine").Logger(),
	}

	for _, p := range cfg.Participants {
		if p.UserID == "" {
			return nil, nil, &MockConfigError{Err: fmt.Errorf("participant user_id is empty")}
		}
		state := &mockParticipantState{
			userID:      p.UserID,
			displayName: p.DisplayName,
		}
		if p.Audio != nil {
			source, err := newMockSource(p.Audio)
			if err != nil {
				return nil, nil, &MockConfigError{UserID: p.UserID, Err: err}
			}
			pcm, rate, channels, err := source.ReadAll()
			if err != nil {
				return nil, nil, &MockConfigError{UserID: p.UserID, Err: err}
			}

			// Fold before resampling: the output is always mono, and mono
			// resampling touches half the data.
			pcm = foldToMono(pcm, channels)
			pcm = resampleMono16(pcm, rate, TargetSampleRate)
			frames, padded := frameMono16(pcm)
			state.frames = frames
			state.pacing = p.Audio.Pacing
			if padded {
				e.stats.FramesPadded++
			}
		}
		e.participants = append(e.participants, state)
	}

	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return nil, nil, &MockConfigError{Err: fmt.Errorf("serialize config: %w", err)}
	}
	return e, cfgBytes, nil
}

// Start begins producing events. No-op if already started.
func (e *MockEngine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)
}

// Stop halts production and waits for the producer goroutines to exit.
// Safe to call on a never-started or already-stopped engine.
func (e *MockEngine) Stop() {
	if !e.started.Load() || e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// Stats returns engine statistics.
func (e *MockEngine) Stats() MockStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

func (e *MockEngine) run(ctx context.Context) {
	defer close(e.done)

	// Announce every participant in config order before any of their
	// audio, preserving the joined-before-media ordering guarantee.
	for _, p := range e.participants {
		if ctx.Err() != nil {
			return
		}
		e.emit(&Event{Kind: EventKindParticipantJoined, ParticipantJoined: &ParticipantJoined{
			UserID:      p.userID,
			DisplayName: p.displayName,
		}})
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, p := range e.participants {
		if len(p.frames) == 0 {
			continue
		}
		p := p
		eg.Go(func() error {
			return e.play(ctx, p)
		})
	}
	if err := eg.Wait(); err != nil {
		return // stopped mid-playback; the connection is tearing down
	}

	e.emit(&Event{Kind: EventKindCallEnded, CallEnded: &CallEnded{Reason: "mock audio exhausted"}})
	e.logger.Debug().Msg("mock playback finished")
}

// play emits one participant's frames in order, never skipping or
// duplicating a frame. Real-time pacing targets start + i*FrameDuration
// rather than sleeping a fixed interval after each frame.
func (e *MockEngine) play(ctx context.Context, p *mockParticipantState) error {
	start := time.Now()
	for i, frame := range p.frames {
		if p.pacing == PacingRealTime {
			if wait := time.Until(start.Add(time.Duration(i) * FrameDuration)); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.emit(&Event{Kind: EventKindMediaPacket, MediaPacket: &MediaPacket{
			ParticipantID: p.userID,
			Audio: &PcmFrame{
				SampleRate: TargetSampleRate,
				Channels:   1,
				Data:       frame,
			},
		}})
		e.statsMu.Lock()
		e.stats.FramesEmitted++
		e.statsMu.Unlock()
	}
	return nil
}

// emit serializes the event and feeds it through the bridge's decode
// path, exactly as a native-delivered buffer would travel.
func (e *MockEngine) emit(ev *Event) {
	data, err := EncodeEvent(ev)
	if err != nil {
		e.logger.Error().Err(err).Str("kind", ev.Kind.String()).Msg("failed to serialize mock event")
		return
	}
	e.bridge.Handle(data)

	e.statsMu.Lock()
	e.stats.EventsEmitted++
	e.statsMu.Unlock()
}
