// Package speaker plays rendered tones on the default output device.
package speaker

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/verte-zerg/tuimelody/internal/audio"
)

const drainPollDelay = 5 * time.Millisecond

// Oto plays tones through an oto context.
type Oto struct {
	ctx    *oto.Context
	volume float64
}

// NewOto opens the default output device.
func NewOto(volume float64) (*Oto, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready
	return &Oto{ctx: ctx, volume: audio.ClampVolume(volume)}, nil
}

// Available implements audio.Emitter.
func (o *Oto) Available() bool { return o.ctx != nil }

// PlayPitch implements audio.Emitter.
func (o *Oto) PlayPitch(frequency, durationSeconds, startOffsetSeconds float64) {
	if frequency <= 0 || durationSeconds <= 0 {
		return
	}
	volume := o.volume
	go func() {
		buf := audio.RenderTone(frequency, durationSeconds, startOffsetSeconds, volume)
		player := o.ctx.NewPlayer(bytes.NewReader(buf))
		player.Play()
		for player.IsPlaying() {
			time.Sleep(drainPollDelay)
		}
		_ = player.Close()
	}()
}
