package rtcall

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pion/rtp"
)

// DefaultAudioPayloadType is the dynamic RTP payload type used for
// outbound linear PCM.
const DefaultAudioPayloadType = 97

// AudioSender frames outbound PCM for the native send path: each PcmFrame
// becomes one RTP packet carrying L16 (network byte order) samples, with
// sequence numbers and a sample-accurate timestamp clock. The native side
// owns actual delivery; this only provides the wire framing it expects.
type AudioSender struct {
	ssrc        uint32
	payloadType uint8
	sequencer   rtp.Sequencer
	timestamp   uint32
	mu          sync.Mutex
}

// NewAudioSender creates an RTP audio sender.
func NewAudioSender(ssrc uint32, pt uint8) *AudioSender {
	return &AudioSender{
		ssrc:        ssrc,
		payloadType: pt,
		sequencer:   rtp.NewRandomSequencer(),
	}
}

// Packetize converts one PCM frame to marshaled RTP packets. The RTP
// timestamp advances by the frame's per-channel sample count, using the
// frame's own sample rate as the media clock.
func (s *AudioSender) Packetize(frame *PcmFrame) ([][]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if len(frame.Data) == 0 {
		return nil, nil
	}

	// L16 payload is big-endian on the wire.
	payload := make([]byte, len(frame.Data))
	for i := 0; i+1 < len(frame.Data); i += 2 {
		binary.BigEndian.PutUint16(payload[i:], binary.LittleEndian.Uint16(frame.Data[i:]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         true, // Audio sets marker per frame
			PayloadType:    s.payloadType,
			SequenceNumber: s.sequencer.NextSequenceNumber(),
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
	s.timestamp += uint32(frame.SampleCount())

	raw, err := pkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal rtp packet: %w", err)
	}
	return [][]byte{raw}, nil
}
