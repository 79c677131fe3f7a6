package audio

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadFrameMs = 30
	// vadPadFrames keeps a window of frames around each voiced frame so
	// word onsets and trailing consonants survive the filter.
	vadPadFrames = 10
)

// FilterSilence drops silent spans from the samples before decoding, using
// WebRTC voice activity detection on 30ms frames. The sample rate must be one
// of 8000, 16000, 32000 or 48000 Hz. Audio shorter than one frame is returned
// unchanged.
func FilterSilence(samples []float32, sampleRate int, mode int) ([]float32, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("vad: unsupported sample rate %d", sampleRate)
	}

	frameSize := sampleRate * vadFrameMs / 1000
	if len(samples) < frameSize {
		return samples, nil
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("vad: create: %w", err)
	}
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("vad: set mode: %w", err)
	}

	numFrames := len(samples) / frameSize
	active := make([]bool, numFrames)
	frameBytes := make([]byte, frameSize*2)
	for i := 0; i < numFrames; i++ {
		frame := samples[i*frameSize : (i+1)*frameSize]
		for j, s := range frame {
			if s > 1.0 {
				s = 1.0
			}
			if s < -1.0 {
				s = -1.0
			}
			v := int16(s * 32767)
			frameBytes[2*j] = byte(v)
			frameBytes[2*j+1] = byte(v >> 8)
		}
		ok, err := vad.Process(sampleRate, frameBytes)
		if err != nil {
			return nil, fmt.Errorf("vad: process: %w", err)
		}
		active[i] = ok
	}

	keep := make([]bool, numFrames)
	for i, a := range active {
		if !a {
			continue
		}
		lo := i - vadPadFrames
		if lo < 0 {
			lo = 0
		}
		hi := i + vadPadFrames
		if hi >= numFrames {
			hi = numFrames - 1
		}
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}

	out := make([]float32, 0, len(samples))
	for i := 0; i < numFrames; i++ {
		if keep[i] {
			out = append(out, samples[i*frameSize:(i+1)*frameSize]...)
		}
	}
	// Trailing partial frame rides along with the last kept span.
	if rem := samples[numFrames*frameSize:]; len(rem) > 0 && numFrames > 0 && keep[numFrames-1] {
		out = append(out, rem...)
	}
	return out, nil
}
