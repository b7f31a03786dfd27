// Package catalog maps level numbers to difficulty settings.
package catalog

import (
	"fmt"
	"math"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
)

// MinTempo is the fastest inter-note interval in milliseconds.
const MinTempo = 350

// tier covers a contiguous level range. Tiers are evaluated in order.
type tier struct {
	first int
	last  int
	build func(level int) (length, tempo int, pool []model.Note, name string)
}

var tiers = []tier{
	{first: 1, last: 5, build: singleNote},
	{first: 6, last: 25, build: twoNotes},
	{first: 26, last: 55, build: threeNotes},
	{first: 56, last: 90, build: fourNotes},
	{first: 91, last: math.MaxInt, build: longMelodies},
}

// For returns the configuration of a level. Levels below 1 are treated as 1.
func For(level int) model.LevelConfig {
	if level < 1 {
		level = 1
	}
	var (
		length, tempo int
		pool          []model.Note
		name          string
	)
	for _, t := range tiers {
		if level >= t.first && level <= t.last {
			length, tempo, pool, name = t.build(level)
			break
		}
	}
	if len(pool) == 0 {
		pool = []model.Note{notes.Anchor}
	}
	if length < 1 {
		length = 1
	}
	return model.LevelConfig{
		Level:        level,
		MelodyLength: length,
		Pool:         pool,
		Name:         fmt.Sprintf("Lvl %d: %s", level, name),
		Tempo:        max(MinTempo, tempo),
	}
}

var intervals = []struct {
	other model.Note
	label string
}{
	{"G4", "C4 vs G4"},
	{"E4", "C4 vs E4"},
	{"D4", "C4 vs D4"},
	{"F4", "C4 vs F4"},
	{"C5", "C4 vs C5 (Octave)"},
}

func singleNote(level int) (int, int, []model.Note, string) {
	iv := intervals[level-1]
	return 1, 900, []model.Note{notes.Anchor, iv.other}, "1 Note: " + iv.label
}

// stage is a run of sub-levels sharing a label. pools is indexed by the
// position inside the stage; the last pool repeats.
type stage struct {
	until int
	span  int
	label string
	pools [][]model.Note
}

func pick(stages []stage, sub int) ([]model.Note, string) {
	offset := 0
	for _, s := range stages {
		if sub <= s.until {
			pos := sub - offset
			idx := min(pos-1, len(s.pools)-1)
			return clonePool(s.pools[idx]), fmt.Sprintf("%s (%d/%d)", s.label, pos, s.span)
		}
		offset = s.until
	}
	return nil, "Unknown"
}

func pools(p ...[]model.Note) [][]model.Note {
	return p
}

var twoNoteStages = []stage{
	{until: 3, span: 3, label: "C-D-E Steps", pools: pools([]model.Note{"C4", "D4", "E4"})},
	{until: 6, span: 3, label: "C-E-G Skips", pools: pools([]model.Note{"C4", "E4", "G4"})},
	{until: 9, span: 3, label: "C Pentatonic Frags", pools: pools(notes.PentatonicC4A4)},
	{until: 12, span: 3, label: "C-G Diatonic Frags", pools: pools(notes.Slice(notes.MajorC4B4, 5))},
	{until: 15, span: 3, label: "C Maj Scale Frags", pools: pools(notes.MajorC4B4)},
	{until: 17, span: 2, label: "Chromatic C-C#-D", pools: pools([]model.Note{"C4", "C#4", "D4"})},
	{until: 20, span: 3, label: "Chromatic Frags", pools: pools(
		notes.Slice(notes.ChromaticC4B4, 3),
		notes.Slice(notes.ChromaticC4B4, 4),
		notes.Slice(notes.ChromaticC4B4, 5),
	)},
}

func twoNotes(level int) (int, int, []model.Note, string) {
	pool, name := pick(twoNoteStages, level-5)
	tempo := 850 - (level-6)/4*25
	return 2, tempo, pool, "2 Notes: " + name
}

var threeNoteStages = []stage{
	{until: 4, span: 4, label: "C-D-E Steps", pools: pools([]model.Note{"C4", "D4", "E4"})},
	{until: 8, span: 4, label: "C Pentatonic", pools: pools(notes.PentatonicC4C5)},
	{until: 12, span: 4, label: "C Maj Arp", pools: pools([]model.Note{"C4", "E4", "G4", "C5"})},
	{until: 17, span: 5, label: "C-G Diatonic", pools: pools(notes.Slice(notes.MajorC4B4, 5))},
	{until: 22, span: 5, label: "C Maj Scale", pools: pools(notes.MajorC4C5)},
	{until: 26, span: 4, label: "Diatonic + F#", pools: pools([]model.Note{"C4", "D4", "E4", "F4", "F#4", "G4"})},
	{until: 30, span: 4, label: "Chromatic Frags", pools: pools(
		notes.Slice(notes.ChromaticC4B4, 5),
		notes.Slice(notes.ChromaticC4B4, 5),
		notes.Slice(notes.ChromaticC4B4, 7),
	)},
}

func threeNotes(level int) (int, int, []model.Note, string) {
	pool, name := pick(threeNoteStages, level-25)
	tempo := 750 - (level-26)/5*20
	return 3, tempo, pool, "3 Notes: " + name
}

var fourNoteStages = []stage{
	{until: 5, span: 5, label: "C Pentatonic", pools: pools(notes.PentatonicC4C5)},
	{until: 10, span: 5, label: "C-G Diatonic", pools: pools(notes.Slice(notes.MajorC4B4, 5))},
	{until: 17, span: 7, label: "C Maj Scale", pools: pools(notes.MajorC4C5)},
	{until: 24, span: 7, label: "C Maj + Chromatics", pools: pools([]model.Note{"C4", "C#4", "D4", "E4", "F4", "F#4", "G4", "A4", "B4", "C5"})},
	{until: 30, span: 6, label: "Chromatic C-F#", pools: pools(notes.Slice(notes.ChromaticC4B4, 7))},
	{until: 35, span: 5, label: "Chromatic C-B", pools: pools(notes.ChromaticC4B4)},
}

func fourNotes(level int) (int, int, []model.Note, string) {
	pool, name := pick(fourNoteStages, level-55)
	tempo := 650 - (level-56)/6*15
	return 4, tempo, pool, "4 Notes: " + name
}

// MaxMelodyLength caps melodies of the open-ended tier.
const MaxMelodyLength = 8

const blockSize = 40

var rotation = []struct {
	below int
	label string
	pool  []model.Note
}{
	{8, "C Pentatonic", notes.PentatonicC4C5},
	{16, "C Major Scale", notes.MajorC4C5},
	{24, "Chromatic C-F#", notes.Slice(notes.ChromaticC4B4, 7)},
	{32, "Chromatic C-B", notes.ChromaticC4B4},
	{blockSize, "Chromatic C-C (Octave)", notes.ChromaticC4C5},
}

var widerChromatic = append([]model.Note{"G3", "A3", "B3"}, append(notes.Slice(notes.ChromaticC4C5, 13), "D5", "E5")...)

func longMelodies(level int) (int, int, []model.Note, string) {
	into := level - 90
	length := min(5+into/blockSize, MaxMelodyLength)
	tempo := 550 - into/8*10 - (length-4)*30

	var (
		pool  []model.Note
		label string
	)
	stageIn := into % blockSize
	for _, r := range rotation {
		if stageIn < r.below {
			pool, label = clonePool(r.pool), r.label
			break
		}
	}
	if length >= 6 && level > 150 {
		pool, label = clonePool(widerChromatic), "Wider Chromatic"
	}
	return length, tempo, pool, fmt.Sprintf("%d Notes: %s", length, label)
}

func clonePool(in []model.Note) []model.Note {
	out := make([]model.Note, len(in))
	copy(out, in)
	return out
}
