package rtcall

import (
	"testing"

	"github.com/pion/rtp"
)

func TestAudioSenderPacketize(t *testing.T) {
	sender := NewAudioSender(0xdeadbeef, DefaultAudioPayloadType)
	frame := pcmFromSamples([]int16{0x0102, -1, 300}, TargetSampleRate, 1)

	packets, err := sender.Packetize(frame)
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(packets))
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(packets[0]); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if pkt.Version != 2 {
		t.Errorf("Version = %d, want 2", pkt.Version)
	}
	if pkt.SSRC != 0xdeadbeef {
		t.Errorf("SSRC = %#x", pkt.SSRC)
	}
	if pkt.PayloadType != DefaultAudioPayloadType {
		t.Errorf("PayloadType = %d, want %d", pkt.PayloadType, DefaultAudioPayloadType)
	}
	if !pkt.Marker {
		t.Error("Marker = false, want true")
	}

	// L16 payload is network byte order: 0x0102 little-endian on input
	// becomes 0x01, 0x02 on the wire.
	want := []byte{0x01, 0x02, 0xff, 0xff, 0x01, 0x2c}
	if len(pkt.Payload) != len(want) {
		t.Fatalf("payload is %d bytes, want %d", len(pkt.Payload), len(want))
	}
	for i := range want {
		if pkt.Payload[i] != want[i] {
			t.Errorf("payload[%d] = %#x, want %#x", i, pkt.Payload[i], want[i])
		}
	}
}

func TestAudioSenderTimestampAdvance(t *testing.T) {
	sender := NewAudioSender(1, DefaultAudioPayloadType)
	frame := pcmFromSamples(make([]int16, SamplesPerFrame), TargetSampleRate, 1)

	var timestamps []uint32
	var sequences []uint16
	for i := 0; i < 3; i++ {
		packets, err := sender.Packetize(frame)
		if err != nil {
			t.Fatalf("Packetize #%d failed: %v", i, err)
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(packets[0]); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		timestamps = append(timestamps, pkt.Timestamp)
		sequences = append(sequences, pkt.SequenceNumber)
	}

	for i := 1; i < len(timestamps); i++ {
		if got := timestamps[i] - timestamps[i-1]; got != SamplesPerFrame {
			t.Errorf("timestamp step %d = %d, want %d", i, got, SamplesPerFrame)
		}
		if got := sequences[i] - sequences[i-1]; got != 1 {
			t.Errorf("sequence step %d = %d, want 1", i, got)
		}
	}
}

func TestAudioSenderRejectsInvalidFrame(t *testing.T) {
	sender := NewAudioSender(1, DefaultAudioPayloadType)
	bad := &PcmFrame{SampleRate: 0, Channels: 1, Data: make([]byte, 4)}
	if _, err := sender.Packetize(bad); err == nil {
		t.Error("Packetize accepted an invalid frame")
	}
}

func TestAudioSenderEmptyFrame(t *testing.T) {
	sender := NewAudioSender(1, DefaultAudioPayloadType)
	empty := &PcmFrame{SampleRate: TargetSampleRate, Channels: 1}
	packets, err := sender.Packetize(empty)
	if err != nil {
		t.Fatalf("Packetize failed: %v", err)
	}
	if len(packets) != 0 {
		t.Errorf("got %d packets for an empty frame, want 0", len(packets))
	}
}
