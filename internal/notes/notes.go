// Package notes holds the static pitch table and keyboard bindings.
package notes

import (
	"strings"

	"github.com/verte-zerg/tuimelody/internal/model"
)

// Anchor is the reference note every early level is built around.
const Anchor model.Note = "C4"

var frequencies = map[model.Note]float64{
	"G3": 196.00, "G#3": 207.65, "A3": 220.00, "A#3": 233.08, "B3": 246.94,
	"C4": 261.63, "C#4": 277.18, "D4": 293.66, "D#4": 311.13, "E4": 329.63,
	"F4": 349.23, "F#4": 369.99, "G4": 392.00, "G#4": 415.30, "A4": 440.00,
	"A#4": 466.16, "B4": 493.88,
	"C5": 523.25, "C#5": 554.37, "D5": 587.33, "D#5": 622.25, "E5": 659.25,
}

// Scales and fragments used by the level catalog.
var (
	ChromaticC4B4  = []model.Note{"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4", "G4", "G#4", "A4", "A#4", "B4"}
	ChromaticC4C5  = append(clone(ChromaticC4B4), "C5")
	MajorC4B4      = []model.Note{"C4", "D4", "E4", "F4", "G4", "A4", "B4"}
	MajorC4C5      = append(clone(MajorC4B4), "C5")
	PentatonicC4A4 = []model.Note{"C4", "D4", "E4", "G4", "A4"}
	PentatonicC4C5 = append(clone(PentatonicC4A4), "C5")
)

// Keyboard is the octave of piano keys always drawn.
var Keyboard = []model.Note{"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4", "G4", "G#4", "A4", "A#4", "B4", "C5"}

// extended lists every bound note in pitch order.
var extended = append(append([]model.Note{"G3", "A3", "B3"}, Keyboard...), "C#5", "D5", "D#5", "E5")

// Bindings maps qwerty keys to notes: home row naturals, top row accidentals,
// bottom row for the notes below C4.
var Bindings = map[string]model.Note{
	"z": "G3", "x": "A3", "c": "B3",
	"a": "C4", "w": "C#4", "s": "D4", "e": "D#4", "d": "E4",
	"f": "F4", "t": "F#4", "g": "G4", "y": "G#4", "h": "A4",
	"u": "A#4", "j": "B4", "k": "C5", "o": "C#5", "l": "D5",
	"p": "D#5", ";": "E5",
}

// KeysFor returns the keys to draw for a pool: the Keyboard octave plus any
// bound pool note outside it, in pitch order.
func KeysFor(pool []model.Note) []model.Note {
	want := make(map[model.Note]bool, len(Keyboard)+len(pool))
	for _, n := range Keyboard {
		want[n] = true
	}
	for _, n := range pool {
		want[n] = true
	}
	out := make([]model.Note, 0, len(want))
	for _, n := range extended {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

// Frequency returns the frequency of n in hertz.
func Frequency(n model.Note) (float64, bool) {
	f, ok := frequencies[n]
	return f, ok
}

// Valid reports whether n is in the pitch table.
func Valid(n model.Note) bool {
	_, ok := frequencies[n]
	return ok
}

// IsAccidental reports whether n is a black key.
func IsAccidental(n model.Note) bool {
	return strings.Contains(string(n), "#")
}

// KeyFor returns the qwerty key bound to n.
func KeyFor(n model.Note) (string, bool) {
	for k, v := range Bindings {
		if v == n {
			return k, true
		}
	}
	return "", false
}

// Slice returns the first n notes of a scale as a fresh slice.
func Slice(scale []model.Note, n int) []model.Note {
	if n > len(scale) {
		n = len(scale)
	}
	return clone(scale[:n])
}

func clone(in []model.Note) []model.Note {
	out := make([]model.Note, len(in))
	copy(out, in)
	return out
}
