package rtcall

import "fmt"

// MockSource supplies the raw PCM a mock participant plays. Sources hand
// over the whole asset at once; the engine owns folding, resampling and
// framing so every source kind goes through the same fixed policy.
type MockSource interface {
	// ReadAll returns interleaved S16LE sample data with its declared
	// rate and channel layout.
	ReadAll() (pcm []byte, sampleRate, channels int, err error)
}

// wavFileSource reads a recorded RIFF/WAVE asset from disk.
type wavFileSource struct {
	path string
}

func (s *wavFileSource) ReadAll() ([]byte, int, int, error) {
	return decodeWavFile(s.path)
}

// newMockSource selects the source for a participant's audio config:
// a recorded file when FilePath is set, otherwise a synthetic pattern.
func newMockSource(cfg *MockAudioConfig) (MockSource, error) {
	switch {
	case cfg.FilePath != "":
		return &wavFileSource{path: cfg.FilePath}, nil
	case cfg.Pattern != nil:
		return newPatternSource(*cfg.Pattern)
	default:
		return nil, fmt.Errorf("audio config needs a file path or a pattern")
	}
}
