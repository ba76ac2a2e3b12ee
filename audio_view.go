package rtcall

import (
	"context"
	"io"
)

// AudioChunk is one participant audio frame decoded to numeric samples.
type AudioChunk struct {
	ParticipantID string
	SampleRate    int
	Samples       []int16
}

// AudioStream is a typed view over a connection's event stream limited to
// incoming participant audio. It filters the same underlying queue the
// general iterator consumes: events of other kinds are skipped, not
// buffered or replayed.
//
// Exactly one reader may drive a Connection at a time. Do not interleave
// AudioStream.Next with Connection.Next or with another view; the stream
// is a narrowing lens, not an independent multiplexer.
type AudioStream struct {
	conn *Connection
}

// IncomingAudio returns the audio-only view over this connection.
func (c *Connection) IncomingAudio() *AudioStream {
	return &AudioStream{conn: c}
}

// Next returns the next incoming audio frame, suspending until one
// arrives. It reports io.EOF when the call ends and ErrConnectionClosed
// after leave.
func (s *AudioStream) Next(ctx context.Context) (*AudioChunk, error) {
	for {
		ev, err := s.conn.Next(ctx)
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case EventKindCallEnded:
			return nil, io.EOF
		case EventKindMediaPacket:
			audio := ev.MediaPacket.Audio
			if audio == nil {
				continue // non-audio media, skip
			}
			return &AudioChunk{
				ParticipantID: ev.MediaPacket.ParticipantID,
				SampleRate:    int(audio.SampleRate),
				Samples:       audio.Samples(),
			}, nil
		default:
			continue
		}
	}
}
