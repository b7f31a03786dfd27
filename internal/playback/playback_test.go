package playback

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/schedule"
)

type tone struct {
	freq     float64
	duration float64
	at       time.Duration
}

type recordingEmitter struct {
	clock *schedule.Manual
	tones []tone
}

func (r *recordingEmitter) PlayPitch(freq, duration, _ float64) {
	r.tones = append(r.tones, tone{freq: freq, duration: duration, at: r.clock.Now()})
}

func (r *recordingEmitter) Available() bool { return true }

func TestPlaySequencesNotes(t *testing.T) {
	clock := schedule.NewManual()
	rec := &recordingEmitter{clock: clock}
	d := NewDriver(rec, clock)

	finished := false
	h := d.Play(model.Melody{"C4", "E4", "G4"}, 500*time.Millisecond, func() { finished = true })
	if len(rec.tones) != 1 {
		t.Fatalf("expected first note immediately, got %d", len(rec.tones))
	}

	clock.Advance(1000 * time.Millisecond)
	if len(rec.tones) != 3 {
		t.Fatalf("expected 3 notes after 1s, got %d", len(rec.tones))
	}
	if finished || !h.Active() {
		t.Fatalf("expected playback to still be running")
	}
	clock.Advance(500 * time.Millisecond)
	if !finished || h.Active() {
		t.Fatalf("expected playback to finish one interval after the last note")
	}

	wantAt := []time.Duration{0, 500 * time.Millisecond, time.Second}
	wantFreq := []float64{261.63, 329.63, 392.00}
	for i, tn := range rec.tones {
		if tn.at != wantAt[i] {
			t.Fatalf("note %d: expected at %v, got %v", i, wantAt[i], tn.at)
		}
		if tn.freq != wantFreq[i] {
			t.Fatalf("note %d: expected %.2f Hz, got %.2f", i, wantFreq[i], tn.freq)
		}
		if math.Abs(tn.duration-0.4) > 1e-9 {
			t.Fatalf("note %d: expected 0.4s, got %v", i, tn.duration)
		}
	}
}

func TestCancelStopsPlayback(t *testing.T) {
	clock := schedule.NewManual()
	rec := &recordingEmitter{clock: clock}
	d := NewDriver(rec, clock)

	finished := false
	h := d.Play(model.Melody{"C4", "D4", "E4", "F4"}, 400*time.Millisecond, func() { finished = true })
	clock.Advance(400 * time.Millisecond)
	h.Cancel()
	clock.Advance(5 * time.Second)

	if len(rec.tones) != 2 {
		t.Fatalf("expected 2 notes before cancel, got %d", len(rec.tones))
	}
	if finished {
		t.Fatalf("done must not run after cancel")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no pending steps, got %d", clock.Pending())
	}
}

func TestCancelNilHandle(t *testing.T) {
	var h *Handle
	h.Cancel()
	if h.Active() {
		t.Fatalf("nil handle must not be active")
	}
}
