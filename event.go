package rtcall

import (
	"encoding/json"
	"fmt"
)

// EventKind identifies which variant of the envelope is populated.
type EventKind int

const (
	EventKindUnknown           EventKind = iota // Unrecognized discriminant, forwarded verbatim
	EventKindJoinAck                            // Terminal success for a pending join
	EventKindJoinError                          // Terminal failure for a pending join
	EventKindParticipantJoined                  // A participant entered the call
	EventKindMediaPacket                        // Steady-state media payload
	EventKindCallEnded                          // Terminal marker for the whole stream
)

func (k EventKind) String() string {
	switch k {
	case EventKindJoinAck:
		return "join_ack"
	case EventKindJoinError:
		return "join_error"
	case EventKindParticipantJoined:
		return "participant_joined"
	case EventKindMediaPacket:
		return "media_packet"
	case EventKindCallEnded:
		return "call_ended"
	default:
		return "unknown"
	}
}

// JoinAck carries the session metadata the native side reports once a join
// attempt has been accepted.
type JoinAck struct {
	SessionID string `json:"session_id"`
	Server    string `json:"server,omitempty"`
}

// JoinErrorCode classifies native-reported join failures.
type JoinErrorCode int

const (
	JoinErrCodeUnspecified      JoinErrorCode = 0
	JoinErrCodeAuthFailed       JoinErrorCode = 1
	JoinErrCodeCallNotFound     JoinErrorCode = 2
	JoinErrCodePermissionDenied JoinErrorCode = 3
	JoinErrCodeCapacityReached  JoinErrorCode = 4
)

// JoinError is the typed failure surfaced to a join caller when the native
// side rejects the attempt.
type JoinError struct {
	Code    JoinErrorCode `json:"code"`
	Message string        `json:"message"`
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join rejected: %s (code %d)", e.Message, e.Code)
}

// ParticipantJoined announces a participant entering the call.
type ParticipantJoined struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// CallEnded terminates the event stream. No further events follow it.
type CallEnded struct {
	Reason string `json:"reason,omitempty"`
}

// MediaPacket is the steady-state media payload. Audio is nil for media
// kinds this core does not decode (e.g. video), which still travel the
// same envelope.
type MediaPacket struct {
	ParticipantID string    `json:"participant_id"`
	Audio         *PcmFrame `json:"audio,omitempty"`
}

// Event is the tagged union carried from the native boundary to the
// consumer. Exactly one variant pointer is populated per instance; for
// EventKindUnknown the original serialized envelope is preserved in Raw so
// unrecognized events can be forwarded rather than dropped.
type Event struct {
	Kind EventKind

	JoinAck           *JoinAck
	JoinError         *JoinError
	ParticipantJoined *ParticipantJoined
	MediaPacket       *MediaPacket
	CallEnded         *CallEnded

	// RawKind and Raw are set only for EventKindUnknown.
	RawKind string
	Raw     json.RawMessage
}

// wireEvent is the flattened serialized envelope shared by every known
// event kind. The native side owns this schema; fields are a superset of
// all variants and the type discriminant selects which are meaningful.
type wireEvent struct {
	Type string `json:"type"`

	// join_ack
	SessionID string `json:"session_id,omitempty"`
	Server    string `json:"server,omitempty"`

	// join_error
	Code    JoinErrorCode `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`

	// participant_joined
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`

	// call_ended
	Reason string `json:"reason,omitempty"`

	// media_packet
	ParticipantID string    `json:"participant_id,omitempty"`
	Audio         *PcmFrame `json:"audio,omitempty"`
}

// DecodeEvent parses one serialized envelope. Unknown type discriminants
// are not an error: they decode to EventKindUnknown with the original
// payload preserved. A buffer that is not valid JSON, or that carries no
// discriminant at all, is undecodable.
func DecodeEvent(data []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("decode event envelope: missing type discriminant")
	}

	switch w.Type {
	case "join_ack":
		return &Event{Kind: EventKindJoinAck, JoinAck: &JoinAck{
			SessionID: w.SessionID,
			Server:    w.Server,
		}}, nil
	case "join_error":
		return &Event{Kind: EventKindJoinError, JoinError: &JoinError{
			Code:    w.Code,
			Message: w.Message,
		}}, nil
	case "participant_joined":
		return &Event{Kind: EventKindParticipantJoined, ParticipantJoined: &ParticipantJoined{
			UserID:      w.UserID,
			DisplayName: w.DisplayName,
		}}, nil
	case "call_ended":
		return &Event{Kind: EventKindCallEnded, CallEnded: &CallEnded{
			Reason: w.Reason,
		}}, nil
	case "media_packet":
		if w.Audio != nil {
			if err := w.Audio.Validate(); err != nil {
				return nil, fmt.Errorf("decode media packet: %w", err)
			}
		}
		return &Event{Kind: EventKindMediaPacket, MediaPacket: &MediaPacket{
			ParticipantID: w.ParticipantID,
			Audio:         w.Audio,
		}}, nil
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return &Event{Kind: EventKindUnknown, RawKind: w.Type, Raw: raw}, nil
	}
}

// EncodeEvent serializes an event in the native envelope schema. The mock
// engine uses this to feed synthetic events through the same decode path
// as real ones; unknown events round-trip their preserved payload.
func EncodeEvent(ev *Event) ([]byte, error) {
	w := wireEvent{Type: ev.Kind.String()}
	switch ev.Kind {
	case EventKindJoinAck:
		w.SessionID = ev.JoinAck.SessionID
		w.Server = ev.JoinAck.Server
	case EventKindJoinError:
		w.Code = ev.JoinError.Code
		w.Message = ev.JoinError.Message
	case EventKindParticipantJoined:
		w.UserID = ev.ParticipantJoined.UserID
		w.DisplayName = ev.ParticipantJoined.DisplayName
	case EventKindCallEnded:
		w.Reason = ev.CallEnded.Reason
	case EventKindMediaPacket:
		w.ParticipantID = ev.MediaPacket.ParticipantID
		w.Audio = ev.MediaPacket.Audio
	case EventKindUnknown:
		if len(ev.Raw) == 0 {
			return nil, fmt.Errorf("encode event: unknown event with empty payload")
		}
		return ev.Raw, nil
	default:
		return nil, fmt.Errorf("encode event: unsupported kind %d", int(ev.Kind))
	}
	return json.Marshal(&w)
}
