package rtcall

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func TestDecodeEventKinds(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, ev *Event)
	}{
		{
			name: "join_ack",
			data: `{"type":"join_ack","session_id":"sess-1","server":"sfo-3"}`,
			check: func(t *testing.T, ev *Event) {
				if ev.Kind != EventKindJoinAck {
					t.Fatalf("Kind = %v, want join_ack", ev.Kind)
				}
				if ev.JoinAck.SessionID != "sess-1" || ev.JoinAck.Server != "sfo-3" {
					t.Errorf("JoinAck = %+v", ev.JoinAck)
				}
			},
		},
		{
			name: "join_error",
			data: `{"type":"join_error","code":2,"message":"no such call"}`,
			check: func(t *testing.T, ev *Event) {
				if ev.Kind != EventKindJoinError {
					t.Fatalf("Kind = %v, want join_error", ev.Kind)
				}
				if ev.JoinError.Code != JoinErrCodeCallNotFound {
					t.Errorf("Code = %d, want %d", ev.JoinError.Code, JoinErrCodeCallNotFound)
				}
			},
		},
		{
			name: "participant_joined",
			data: `{"type":"participant_joined","user_id":"u1","display_name":"Ana"}`,
			check: func(t *testing.T, ev *Event) {
				if ev.Kind != EventKindParticipantJoined {
					t.Fatalf("Kind = %v, want participant_joined", ev.Kind)
				}
				if ev.ParticipantJoined.UserID != "u1" || ev.ParticipantJoined.DisplayName != "Ana" {
					t.Errorf("ParticipantJoined = %+v", ev.ParticipantJoined)
				}
			},
		},
		{
			name: "call_ended",
			data: `{"type":"call_ended","reason":"host left"}`,
			check: func(t *testing.T, ev *Event) {
				if ev.Kind != EventKindCallEnded {
					t.Fatalf("Kind = %v, want call_ended", ev.Kind)
				}
				if ev.CallEnded.Reason != "host left" {
					t.Errorf("Reason = %q", ev.CallEnded.Reason)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestDecodeMediaPacket(t *testing.T) {
	pcm := make([]byte, 4*SamplesPerFrame) // 960 stereo samples
	payload := base64.StdEncoding.EncodeToString(pcm)
	data := fmt.Sprintf(
		`{"type":"media_packet","participant_id":"u2","audio":{"sample_rate":48000,"channels":2,"payload":%q}}`,
		payload)

	ev, err := DecodeEvent([]byte(data))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if ev.Kind != EventKindMediaPacket {
		t.Fatalf("Kind = %v, want media_packet", ev.Kind)
	}
	frame := ev.MediaPacket.Audio
	if frame == nil {
		t.Fatal("Audio is nil")
	}
	if frame.SampleRate != 48000 || frame.Channels != 2 {
		t.Errorf("frame header = %d Hz x%d", frame.SampleRate, frame.Channels)
	}
	if got := frame.SampleCount(); got != SamplesPerFrame {
		t.Errorf("SampleCount = %d, want %d", got, SamplesPerFrame)
	}
}

func TestDecodeMediaPacketBadFrame(t *testing.T) {
	// Payload length not a multiple of the sample stride.
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	data := fmt.Sprintf(
		`{"type":"media_packet","participant_id":"u2","audio":{"sample_rate":48000,"channels":2,"payload":%q}}`,
		payload)
	if _, err := DecodeEvent([]byte(data)); err == nil {
		t.Error("DecodeEvent accepted a misaligned audio payload")
	}
}

func TestDecodeUnknownPreserved(t *testing.T) {
	data := []byte(`{"type":"speaker_changed","user_id":"u9","level":0.8}`)
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if ev.Kind != EventKindUnknown {
		t.Fatalf("Kind = %v, want unknown", ev.Kind)
	}
	if ev.RawKind != "speaker_changed" {
		t.Errorf("RawKind = %q", ev.RawKind)
	}
	if !bytes.Equal(ev.Raw, data) {
		t.Errorf("Raw = %s, want original envelope", ev.Raw)
	}

	// Unknown events round-trip verbatim through EncodeEvent.
	out, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip = %s", out)
	}
}

func TestDecodeUndecodable(t *testing.T) {
	for _, data := range []string{
		`not json at all`,
		`{"session_id":"sess-1"}`, // no discriminant
		``,
	} {
		if _, err := DecodeEvent([]byte(data)); err == nil {
			t.Errorf("DecodeEvent(%q) succeeded, want error", data)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := &Event{Kind: EventKindParticipantJoined, ParticipantJoined: &ParticipantJoined{
		UserID:      "u3",
		DisplayName: "Bo",
	}}
	data, err := EncodeEvent(orig)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if ev.Kind != orig.Kind || ev.ParticipantJoined.UserID != "u3" || ev.ParticipantJoined.DisplayName != "Bo" {
		t.Errorf("round trip = %+v", ev.ParticipantJoined)
	}
}

func TestPcmFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame PcmFrame
		ok    bool
	}{
		{"valid mono", PcmFrame{SampleRate: 48000, Channels: 1, Data: make([]byte, 1920)}, true},
		{"valid stereo", PcmFrame{SampleRate: 44100, Channels: 2, Data: make([]byte, 1764)}, true},
		{"zero rate", PcmFrame{SampleRate: 0, Channels: 1, Data: make([]byte, 1920)}, false},
		{"zero channels", PcmFrame{SampleRate: 48000, Channels: 0, Data: make([]byte, 1920)}, false},
		{"misaligned", PcmFrame{SampleRate: 48000, Channels: 2, Data: make([]byte, 1922)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate = nil, want error")
			}
		})
	}
}

func TestPcmFrameDuration(t *testing.T) {
	frame := pcmFromSamples(make([]int16, SamplesPerFrame), TargetSampleRate, 1)
	if got := frame.Duration(); got != FrameDuration {
		t.Errorf("Duration = %v, want %v", got, FrameDuration)
	}
	stereo := PcmFrame{SampleRate: 48000, Channels: 2, Data: make([]byte, 4*SamplesPerFrame)}
	if got := stereo.Duration(); got != 20*time.Millisecond {
		t.Errorf("stereo Duration = %v, want 20ms", got)
	}
}
