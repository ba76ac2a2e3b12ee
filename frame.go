// Core PCM frame type shared by the event stream, the mock pipeline and
// the outbound audio path.
package rtcall

import (
	"encoding/binary"
	"fmt"
	"time"
)

// PcmFrame is a chunk of interleaved little-endian signed 16-bit PCM.
type PcmFrame struct {
	SampleRate uint32 `json:"sample_rate"`
	Channels   uint8  `json:"channels"`
	Data       []byte `json:"payload"` // 2 bytes per sample per channel
}

// Validate checks the frame invariants: a positive rate, at least one
// channel, and a payload that divides evenly into whole sample frames.
func (f *PcmFrame) Validate() error {
	if f.SampleRate == 0 {
		return fmt.Errorf("pcm frame: sample rate is zero")
	}
	if f.Channels == 0 {
		return fmt.Errorf("pcm frame: channel count is zero")
	}
	if len(f.Data)%(int(f.Channels)*2) != 0 {
		return fmt.Errorf("pcm frame: %d payload bytes not divisible by %d channels * 2",
			len(f.Data), f.Channels)
	}
	return nil
}

// SampleCount returns the number of samples per channel.
func (f *PcmFrame) SampleCount() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Data) / (int(f.Channels) * 2)
}

// Duration returns the playback duration of the frame.
func (f *PcmFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.SampleCount()) * time.Second / time.Duration(f.SampleRate)
}

// Samples decodes the payload into int16 samples, still interleaved.
func (f *PcmFrame) Samples() []int16 {
	n := len(f.Data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(f.Data[i*2:]))
	}
	return out
}

// Clone creates a deep copy of the frame.
// Use this when the frame data must outlive its producer's buffer.
func (f *PcmFrame) Clone() *PcmFrame {
	clone := &PcmFrame{
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
	}
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return clone
}

// pcmFromSamples encodes interleaved int16 samples as a frame payload.
func pcmFromSamples(samples []int16, sampleRate uint32, channels uint8) *PcmFrame {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &PcmFrame{SampleRate: sampleRate, Channels: channels, Data: data}
}
