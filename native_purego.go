//go:build darwin || linux

// Native call transport via libstream_call using purego.
//
// libstream_call is a thin wrapper around the native signalling/media
// core with a primitive-only API. It is loaded dynamically at runtime,
// so the package builds and tests with CGO_ENABLED=0 and without the
// library present.

package rtcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	streamCallOnce    sync.Once
	streamCallHandle  uintptr
	streamCallInitErr error
	streamCallLoaded  bool
)

// libstream_call function pointers
var (
	streamCallSetEventCallback func(cb uintptr)
	streamCallJoin             func(req uintptr, reqLen int32) int32
	streamCallLeave            func(callType, callID string) int32
	streamCallStopMock         func(callType, callID string) int32
	streamCallSendAudio        func(data uintptr, dataLen int32) int32
	streamCallReleaseBuffer    func(buf uintptr)
	streamCallGetError         func() uintptr
)

// Status codes from stream_call.h
const (
	streamCallOK           = 0
	streamCallError        = -1
	streamCallErrorNoMem   = -2
	streamCallErrorInvalid = -3
)

// nativeBridge is the bridge currently bound to receive native events.
// The callback trampoline is registered once per process; routing swaps
// here so events for a stale call identity are released and ignored
// instead of reaching a dead connection.
var nativeBridge atomic.Pointer[EventBridge]

// loadStreamCall loads the libstream_call shared library.
func loadStreamCall() error {
	streamCallOnce.Do(func() {
		streamCallInitErr = loadStreamCallLib()
		if streamCallInitErr == nil {
			streamCallLoaded = true
			streamCallSetEventCallback(purego.NewCallback(onNativeEvent))
		}
	})
	return streamCallInitErr
}

func loadStreamCallLib() error {
	paths := getStreamCallLibPaths()

	var lastErr error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			streamCallHandle = handle
			if err := loadStreamCallSymbols(); err != nil {
				purego.Dlclose(handle)
				lastErr = err
				continue
			}
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to load libstream_call: %w", lastErr)
	}
	return errors.New("libstream_call not found in any standard location")
}

func getStreamCallLibPaths() []string {
	var paths []string

	libName := "libstream_call.so"
	if runtime.GOOS == "darwin" {
		libName = "libstream_call.dylib"
	}

	// Environment variable overrides
	if envPath := os.Getenv("STREAM_CALL_LIB_PATH"); envPath != "" {
		paths = append(paths, envPath)
	}
	if envPath := os.Getenv("STREAM_SDK_LIB_PATH"); envPath != "" {
		paths = append(paths, filepath.Join(envPath, libName))
	}

	// Try to find based on executable location
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	// Try module root
	if root := findModuleRoot(); root != "" {
		paths = append(paths, filepath.Join(root, "build", libName))
	}

	// Try to find based on working directory
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, "build", libName),
			filepath.Join(wd, "..", "build", libName),
		)
	}

	// System paths
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"libstream_call.dylib",
			"/usr/local/lib/libstream_call.dylib",
			"/opt/homebrew/lib/libstream_call.dylib",
		)
	case "linux":
		paths = append(paths,
			"libstream_call.so",
			"/usr/local/lib/libstream_call.so",
			"/usr/lib/libstream_call.so",
		)
	}

	return paths
}

func loadStreamCallSymbols() error {
	purego.RegisterLibFunc(&streamCallSetEventCallback, streamCallHandle, "stream_call_set_event_callback")
	purego.RegisterLibFunc(&streamCallJoin, streamCallHandle, "stream_call_join")
	purego.RegisterLibFunc(&streamCallLeave, streamCallHandle, "stream_call_leave")
	purego.RegisterLibFunc(&streamCallStopMock, streamCallHandle, "stream_call_stop_mock")
	purego.RegisterLibFunc(&streamCallSendAudio, streamCallHandle, "stream_call_send_audio")
	purego.RegisterLibFunc(&streamCallReleaseBuffer, streamCallHandle, "stream_call_release_buffer")
	purego.RegisterLibFunc(&streamCallGetError, streamCallHandle, "stream_call_get_error")
	return nil
}

// IsNativeTransportAvailable checks if libstream_call is available.
func IsNativeTransportAvailable() bool {
	return loadStreamCall() == nil && streamCallLoaded
}

func getStreamCallError() string {
	ptr := streamCallGetError()
	if ptr == 0 {
		return "unknown error"
	}
	return goStringFromPtr(ptr)
}

// onNativeEvent is the callback trampoline the native side invokes, on a
// thread it owns, with one serialized event envelope per call. The
// foreign buffer is released exactly once on every path, including when
// no bridge is bound.
func onNativeEvent(ptr uintptr, length uintptr) uintptr {
	release := func() {
		if ptr != 0 {
			streamCallReleaseBuffer(ptr)
		}
	}

	b := nativeBridge.Load()
	if b == nil || ptr == 0 || length == 0 {
		release()
		return 0
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(length))
	b.HandleForeign(buf, release)
	return 0
}

// NativeTransport implements Transport on top of libstream_call.
type NativeTransport struct{}

// NewNativeTransport loads the native library and returns a transport
// backed by it.
func NewNativeTransport() (*NativeTransport, error) {
	if err := loadStreamCall(); err != nil {
		return nil, fmt.Errorf("native transport not available: %w", err)
	}
	return &NativeTransport{}, nil
}

// BindBridge routes native events to b until UnbindBridge.
func (t *NativeTransport) BindBridge(b *EventBridge) {
	nativeBridge.Store(b)
}

// UnbindBridge detaches event routing; later native events are released
// and dropped.
func (t *NativeTransport) UnbindBridge() {
	nativeBridge.Store(nil)
}

// Join serializes the request and starts the asynchronous native join.
// Results arrive only through the event callback.
func (t *NativeTransport) Join(req *JoinRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("serialize join request: %w", err)
	}
	if len(data) == 0 {
		return errors.New("empty join request")
	}
	rc := streamCallJoin(uintptr(unsafe.Pointer(&data[0])), int32(len(data)))
	runtime.KeepAlive(data)
	if rc != streamCallOK {
		return fmt.Errorf("stream_call_join failed: %s", getStreamCallError())
	}
	return nil
}

// Leave tells the native side to abandon the call.
func (t *NativeTransport) Leave(callType, callID string) error {
	if rc := streamCallLeave(callType, callID); rc != streamCallOK {
		return fmt.Errorf("stream_call_leave failed: %s", getStreamCallError())
	}
	return nil
}

// StopMock tells the native side to stop the mock producer for the call.
func (t *NativeTransport) StopMock(callType, callID string) error {
	if rc := streamCallStopMock(callType, callID); rc != streamCallOK {
		return fmt.Errorf("stream_call_stop_mock failed: %s", getStreamCallError())
	}
	return nil
}

// SendAudio hands one outbound packet to the native side. The buffer is
// only guaranteed valid for the duration of the call; the native side
// copies what it needs.
func (t *NativeTransport) SendAudio(packet []byte) error {
	if len(packet) == 0 {
		return nil
	}
	rc := streamCallSendAudio(uintptr(unsafe.Pointer(&packet[0])), int32(len(packet)))
	runtime.KeepAlive(packet)
	if rc != streamCallOK {
		return fmt.Errorf("stream_call_send_audio failed: %s", getStreamCallError())
	}
	return nil
}
