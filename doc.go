// Package rtcall implements the real-time call event bridge used by the
// SDK: it receives serialized call events from the native transport layer
// (libstream_call) on a thread it does not control, republishes them as an
// ordered, lossless event stream owned by a single consumer, and can stand
// in for a live participant with a mock audio pipeline fed from a recorded
// file.
//
// Key pieces include:
//   - Event: the tagged-union envelope for everything the native side emits
//   - EventBridge: the foreign-callback adapter (copy, decode, release)
//   - Connection: the join/joined/left state machine and event iterator
//   - MockEngine: synthetic participant audio (decode, fold, resample, pace)
//   - AudioStream: a typed audio-only view over the same event stream
//
// # Architecture
//
//	Inbound:  native callback -> EventBridge -> Connection queue -> Next / AudioStream
//	Outbound: PcmFrame -> AudioSender (RTP) -> native send_audio
//	Mock:     WAV/pattern source -> fold -> resample -> 20ms frames -> EventBridge
//
// # Native Library
//
// NativeTransport loads libstream_call dynamically via purego
// (CGO_ENABLED=0). Set STREAM_CALL_LIB_PATH or STREAM_SDK_LIB_PATH to the
// directory containing the library. The transport is an opaque
// collaborator: joins are asynchronous and every result, including the
// join acknowledgement, arrives through the event callback.
//
// Any Transport implementation can replace the native one; tests use an
// in-process fake that feeds the same EventBridge path.
package rtcall
