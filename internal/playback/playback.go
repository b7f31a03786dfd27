// Package playback sequences melody notes to an audio emitter.
package playback

import (
	"time"

	"github.com/verte-zerg/tuimelody/internal/audio"
	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
	"github.com/verte-zerg/tuimelody/internal/schedule"
)

// NoteFraction is the share of the inter-note interval a note sounds for.
const NoteFraction = 0.8

// Driver plays melodies one note per interval.
type Driver struct {
	audio audio.Emitter
	sched schedule.Scheduler
}

// NewDriver returns a Driver emitting to e and waiting on s.
func NewDriver(e audio.Emitter, s schedule.Scheduler) *Driver {
	return &Driver{audio: e, sched: s}
}

// Handle controls an in-flight playback.
type Handle struct {
	cancelled bool
	done      bool
	timer     schedule.Timer
}

// Cancel stops the playback. Pending steps emit nothing and done is never
// called.
func (h *Handle) Cancel() {
	if h == nil || h.cancelled {
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Active reports whether the playback is still running.
func (h *Handle) Active() bool {
	return h != nil && !h.cancelled && !h.done
}

// Play emits the first note immediately and each following note one interval
// later. done runs one interval after the last note.
func (d *Driver) Play(melody model.Melody, interval time.Duration, done func()) *Handle {
	h := &Handle{}
	d.step(h, melody, 0, interval, done)
	return h
}

func (d *Driver) step(h *Handle, melody model.Melody, i int, interval time.Duration, done func()) {
	if h.cancelled {
		return
	}
	if i >= len(melody) {
		h.done = true
		if done != nil {
			done()
		}
		return
	}
	if freq, ok := notes.Frequency(melody[i]); ok {
		d.audio.PlayPitch(freq, interval.Seconds()*NoteFraction, 0)
	}
	h.timer = d.sched.After(interval, func() {
		d.step(h, melody, i+1, interval, done)
	})
}
