package rtcall

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavFormatPCM is the only fmt-chunk audio format the mock pipeline
// accepts: uncompressed integer PCM.
const wavFormatPCM = 1

// decodeWavFile reads a RIFF/WAVE file and returns its interleaved S16LE
// sample data with the declared rate and channel layout. Anything other
// than 16-bit PCM is an unsupported sample format.
func decodeWavFile(path string) (pcm []byte, sampleRate, channels int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	return decodeWav(f)
}

func decodeWav(r io.Reader) (pcm []byte, sampleRate, channels int, err error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, 0, 0, fmt.Errorf("wav: read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var (
		haveFmt  bool
		bitDepth int
	)

	// Chunks may appear in any order; fmt must precede data.
	for {
		var head [8]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, 0, 0, fmt.Errorf("wav: no data chunk found")
			}
			return nil, 0, 0, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(head[0:4])
		size := binary.LittleEndian.Uint32(head[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("wav: fmt chunk too short (%d bytes)", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, 0, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			if format != wavFormatPCM {
				return nil, 0, 0, fmt.Errorf("wav: unsupported audio format %d (want PCM)", format)
			}
			if bitDepth != 16 {
				return nil, 0, 0, fmt.Errorf("wav: unsupported bit depth %d (want 16)", bitDepth)
			}
			if channels <= 0 || sampleRate <= 0 {
				return nil, 0, 0, fmt.Errorf("wav: invalid fmt chunk: %d channels at %d Hz", channels, sampleRate)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, 0, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			pcm = make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, 0, 0, fmt.Errorf("wav: read sample data: %w", err)
			}
			if len(pcm)%(channels*2) != 0 {
				return nil, 0, 0, fmt.Errorf("wav: %d data bytes not aligned to %d-channel frames", len(pcm), channels)
			}
			return pcm, sampleRate, channels, nil

		default:
			// Skip LIST, cue and other metadata chunks. Chunk bodies are
			// word-aligned: odd sizes carry one pad byte.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, 0, 0, fmt.Errorf("wav: skip %q chunk: %w", id, err)
			}
		}
	}
}
