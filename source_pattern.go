package rtcall

import (
	"fmt"
	"math"
)

// AudioPatternType defines the synthetic waveform a pattern source emits.
type AudioPatternType int

const (
	AudioPatternSilence  AudioPatternType = iota // Silence
	AudioPatternSineWave                         // Sine wave tone
)

func (p AudioPatternType) String() string {
	switch p {
	case AudioPatternSilence:
		return "Silence"
	case AudioPatternSineWave:
		return "SineWave"
	default:
		return "Unknown"
	}
}

// AudioPatternConfig configures a synthetic mock participant audio source.
// Pattern sources generate mono PCM directly at the pipeline target rate,
// so no file asset is needed to exercise the full mock path.
type AudioPatternConfig struct {
	Pattern    AudioPatternType `json:"pattern"`
	DurationMs int              `json:"duration_ms"`
	Frequency  float64          `json:"frequency,omitempty"` // Tone frequency in Hz (default: 440)
	Amplitude  float64          `json:"amplitude,omitempty"` // 0.0-1.0 (default: 0.5)
}

// patternSource generates a deterministic synthetic waveform.
type patternSource struct {
	config AudioPatternConfig
}

func newPatternSource(config AudioPatternConfig) (*patternSource, error) {
	if config.DurationMs <= 0 {
		return nil, fmt.Errorf("pattern source: duration must be positive")
	}
	if config.Frequency <= 0 {
		config.Frequency = 440.0
	}
	if config.Amplitude <= 0 {
		config.Amplitude = 0.5
	}
	if config.Amplitude > 1.0 {
		config.Amplitude = 1.0
	}
	return &patternSource{config: config}, nil
}

func (s *patternSource) ReadAll() ([]byte, int, int, error) {
	samples := TargetSampleRate * s.config.DurationMs / 1000
	data := make([]byte, samples*2)

	switch s.config.Pattern {
	case AudioPatternSilence:
		// Zeroed buffer is silence already.
	case AudioPatternSineWave:
		phaseIncrement := 2.0 * math.Pi * s.config.Frequency / float64(TargetSampleRate)
		amplitude := s.config.Amplitude * 32767.0

		phase := 0.0
		for i := 0; i < samples; i++ {
			sample := int16(amplitude * math.Sin(phase))
			phase += phaseIncrement
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
			data[i*2] = byte(sample & 0xFF)
			data[i*2+1] = byte((sample >> 8) & 0xFF)
		}
	default:
		return nil, 0, 0, fmt.Errorf("pattern source: unknown pattern %v", s.config.Pattern)
	}

	return data, TargetSampleRate, 1, nil
}
