//go:build !(darwin || linux)

package rtcall

import "errors"

// NativeTransport is only backed by libstream_call on darwin and linux.
type NativeTransport struct{}

// NewNativeTransport reports that the native library is unsupported on
// this platform. In-process Transport implementations still work.
func NewNativeTransport() (*NativeTransport, error) {
	return nil, errors.New("native transport not supported on this platform")
}

func (t *NativeTransport) BindBridge(b *EventBridge) {}
func (t *NativeTransport) UnbindBridge()             {}

func (t *NativeTransport) Join(req *JoinRequest) error {
	return errors.New("native transport not supported on this platform")
}

func (t *NativeTransport) Leave(callType, callID string) error {
	return errors.New("native transport not supported on this platform")
}

func (t *NativeTransport) StopMock(callType, callID string) error {
	return errors.New("native transport not supported on this platform")
}

func (t *NativeTransport) SendAudio(packet []byte) error {
	return errors.New("native transport not supported on this platform")
}

// IsNativeTransportAvailable checks if libstream_call is available.
func IsNativeTransportAvailable() bool { return false }
