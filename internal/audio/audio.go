// Package audio defines the tone emitter used for melody playback and key
// echo, and renders tones to PCM.
package audio

import "math"

// Emitter plays a pitch for a duration, starting after an offset. Calls are
// fire-and-forget.
type Emitter interface {
	PlayPitch(frequency, durationSeconds, startOffsetSeconds float64)
	Available() bool
}

// Silent is an Emitter with no output device.
type Silent struct{}

// PlayPitch implements Emitter.
func (Silent) PlayPitch(float64, float64, float64) {}

// Available implements Emitter.
func (Silent) Available() bool { return false }

const (
	// SampleRate of rendered PCM in hertz.
	SampleRate = 44100
	// BytesPerFrame of 16-bit stereo PCM.
	BytesPerFrame = 4
	// DefaultVolume is the output level when none is configured.
	DefaultVolume = 0.6

	attackSeconds = 0.05
	maxInt16      = 1<<15 - 1
)

// RenderTone renders 16-bit stereo PCM: offset seconds of silence followed by
// a sine tone that ramps up over the attack and fades to zero at the end.
func RenderTone(frequency, durationSeconds, offsetSeconds, volume float64) []byte {
	lead := int(math.Max(0, offsetSeconds) * SampleRate)
	samples := int(durationSeconds * SampleRate)
	attack := int(attackSeconds * SampleRate)
	buf := make([]byte, (lead+samples)*BytesPerFrame)
	for i := 0; i < samples; i++ {
		env := float64(samples-i) / float64(samples)
		if attack > 0 && i < attack {
			env = math.Min(env, float64(i)/float64(attack))
		}
		sample := math.Sin(2 * math.Pi * frequency * float64(i) / SampleRate)
		value := int16(sample * volume * env * maxInt16)
		pos := (lead + i) * BytesPerFrame
		buf[pos] = byte(value)
		buf[pos+1] = byte(value >> 8)
		buf[pos+2] = byte(value)
		buf[pos+3] = byte(value >> 8)
	}
	return buf
}

// ClampVolume limits v to [0,1].
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
