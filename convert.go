// PCM conversion helpers used by the mock audio pipeline: channel
// folding, sample-rate conversion and fixed-quantum framing. All
// routines are deterministic so frame counts and sample values are
// exactly reproducible in tests.
package rtcall

// foldToMono reduces interleaved S16LE PCM to a single channel by
// averaging the channel samples of each frame: sum in int32, divide by
// the channel count (integer division, rounds toward zero), clamp to the
// int16 range. Input with one channel is returned unchanged.
func foldToMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*2)

	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			sum += int32(int16(pcm[off]) | int16(pcm[off+1])<<8)
		}
		avg := sum / int32(channels)
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// resampleMono16 converts mono S16LE PCM from srcRate to dstRate using
// linear interpolation at a fixed rate ratio. Output sample i is taken at
// source position i*srcRate/dstRate, blending the two neighbouring source
// samples; the last source sample is held at the tail. If the rates match
// the input is returned unchanged.
func resampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return nil
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		}

		sample := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
	return out
}

// frameMono16 slices mono S16LE PCM into SamplesPerFrame quanta.
// Partial-final-frame policy: the last short frame is ZERO-PADDED to a
// full quantum, never dropped, so a D-second stream produces
// ceil(D / 20ms) frames. Reports whether padding occurred.
func frameMono16(pcm []byte) (frames [][]byte, padded bool) {
	const frameBytes = SamplesPerFrame * 2
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end <= len(pcm) {
			frames = append(frames, pcm[off:end])
			continue
		}
		frame := make([]byte, frameBytes)
		copy(frame, pcm[off:])
		frames = append(frames, frame)
		padded = true
	}
	return frames, padded
}
