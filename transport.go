package rtcall

import "encoding/json"

// JoinRequest is the serialized credential payload handed across the
// native boundary when a join attempt starts. MockConfig is attached so
// the native side knows not to bring up a real transport for the call.
type JoinRequest struct {
	APIKey   string `json:"api_key"`
	Token    string `json:"token"`
	CallType string `json:"call_type"`
	CallID   string `json:"call_id"`
	UserID   string `json:"user_id"`

	MockConfig json.RawMessage `json:"mock_config,omitempty"`
}

// Transport is the opaque native signalling/media collaborator. Join is
// asynchronous: it only starts the handshake, and every result (the join
// acknowledgement included) arrives through the event callback bound via
// BridgeBinder. Implementations must tolerate Leave and StopMock being
// called for a call that already ended.
type Transport interface {
	Join(req *JoinRequest) error
	Leave(callType, callID string) error
	StopMock(callType, callID string) error
	SendAudio(packet []byte) error
}

// BridgeBinder is implemented by transports that deliver events through a
// callback channel. The connection binds its bridge before calling Join
// and unbinds after Leave; events delivered while unbound belong to a
// stale identity and are released and discarded.
type BridgeBinder interface {
	BindBridge(b *EventBridge)
	UnbindBridge()
}
