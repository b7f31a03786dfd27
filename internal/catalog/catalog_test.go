package catalog

import (
	"reflect"
	"strings"
	"testing"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
)

func TestForInvariants(t *testing.T) {
	for level := 1; level <= 500; level++ {
		cfg := For(level)
		if cfg.Level != level {
			t.Fatalf("level %d: got level %d", level, cfg.Level)
		}
		if cfg.MelodyLength < 1 || cfg.MelodyLength > MaxMelodyLength {
			t.Fatalf("level %d: melody length %d out of range", level, cfg.MelodyLength)
		}
		if len(cfg.Pool) == 0 {
			t.Fatalf("level %d: empty pool", level)
		}
		for _, n := range cfg.Pool {
			if !notes.Valid(n) {
				t.Fatalf("level %d: pool note %q has no frequency", level, n)
			}
		}
		if cfg.Tempo < MinTempo {
			t.Fatalf("level %d: tempo %d below floor", level, cfg.Tempo)
		}
		if !reflect.DeepEqual(cfg, For(level)) {
			t.Fatalf("level %d: configuration is not stable", level)
		}
	}
}

func TestForFirstLevel(t *testing.T) {
	cfg := For(1)
	want := model.LevelConfig{
		Level:        1,
		MelodyLength: 1,
		Pool:         []model.Note{"C4", "G4"},
		Name:         "Lvl 1: 1 Note: C4 vs G4",
		Tempo:        900,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("unexpected level 1 config: %+v", cfg)
	}
}

func TestForBelowOneClamps(t *testing.T) {
	if got := For(0); got.Level != 1 {
		t.Fatalf("expected level 0 to clamp to 1, got %d", got.Level)
	}
	if got := For(-7); got.Level != 1 {
		t.Fatalf("expected negative level to clamp to 1, got %d", got.Level)
	}
}

func TestForBreakpoints(t *testing.T) {
	cases := []struct {
		level  int
		length int
		tempo  int
		pool   int
		name   string
	}{
		{level: 5, length: 1, tempo: 900, pool: 2, name: "Lvl 5: 1 Note: C4 vs C5 (Octave)"},
		{level: 6, length: 2, tempo: 850, pool: 3, name: "Lvl 6: 2 Notes: C-D-E Steps (1/3)"},
		{level: 10, length: 2, tempo: 825, pool: 3, name: "Lvl 10: 2 Notes: C-E-G Skips (2/3)"},
		{level: 21, length: 2, tempo: 775, pool: 3, name: "Lvl 21: 2 Notes: Chromatic C-C#-D (1/2)"},
		{level: 23, length: 2, tempo: 750, pool: 3, name: "Lvl 23: 2 Notes: Chromatic Frags (1/3)"},
		{level: 24, length: 2, tempo: 750, pool: 4, name: "Lvl 24: 2 Notes: Chromatic Frags (2/3)"},
		{level: 25, length: 2, tempo: 750, pool: 5, name: "Lvl 25: 2 Notes: Chromatic Frags (3/3)"},
		{level: 26, length: 3, tempo: 750, pool: 3, name: "Lvl 26: 3 Notes: C-D-E Steps (1/4)"},
		{level: 53, length: 3, tempo: 650, pool: 5, name: "Lvl 53: 3 Notes: Chromatic Frags (2/4)"},
		{level: 54, length: 3, tempo: 650, pool: 7, name: "Lvl 54: 3 Notes: Chromatic Frags (3/4)"},
		{level: 56, length: 4, tempo: 650, pool: 6, name: "Lvl 56: 4 Notes: C Pentatonic (1/5)"},
		{level: 90, length: 4, tempo: 575, pool: 12, name: "Lvl 90: 4 Notes: Chromatic C-B (5/5)"},
		{level: 91, length: 5, tempo: 520, pool: 6, name: "Lvl 91: 5 Notes: C Pentatonic"},
		{level: 120, length: 5, tempo: 490, pool: 12, name: "Lvl 120: 5 Notes: Chromatic C-B"},
		{level: 125, length: 5, tempo: 480, pool: 13, name: "Lvl 125: 5 Notes: Chromatic C-C (Octave)"},
		{level: 130, length: 6, tempo: 440, pool: 6, name: "Lvl 130: 6 Notes: C Pentatonic"},
		{level: 151, length: 6, tempo: 420, pool: 18, name: "Lvl 151: 6 Notes: Wider Chromatic"},
	}
	for _, tc := range cases {
		cfg := For(tc.level)
		if cfg.MelodyLength != tc.length {
			t.Fatalf("level %d: expected length %d, got %d", tc.level, tc.length, cfg.MelodyLength)
		}
		if cfg.Tempo != tc.tempo {
			t.Fatalf("level %d: expected tempo %d, got %d", tc.level, tc.tempo, cfg.Tempo)
		}
		if len(cfg.Pool) != tc.pool {
			t.Fatalf("level %d: expected pool size %d, got %d (%v)", tc.level, tc.pool, len(cfg.Pool), cfg.Pool)
		}
		if cfg.Name != tc.name {
			t.Fatalf("level %d: expected name %q, got %q", tc.level, tc.name, cfg.Name)
		}
	}
}

func TestForTempoFloor(t *testing.T) {
	// 550 - 160/8*10 - (8-4)*30 = 230 before the floor.
	cfg := For(250)
	if cfg.MelodyLength != MaxMelodyLength {
		t.Fatalf("expected capped melody length, got %d", cfg.MelodyLength)
	}
	if cfg.Tempo != MinTempo {
		t.Fatalf("expected tempo floor %d, got %d", MinTempo, cfg.Tempo)
	}
}

func TestForWiderPoolIncludesLowNotes(t *testing.T) {
	cfg := For(200)
	for _, n := range []model.Note{"G3", "A3", "B3", "D5", "E5"} {
		if !cfg.InPool(n) {
			t.Fatalf("expected %s in wider pool, got %v", n, cfg.Pool)
		}
	}
}

func TestForPoolIsNotShared(t *testing.T) {
	cfg := For(60)
	cfg.Pool[0] = "G3"
	if For(60).Pool[0] != "C4" {
		t.Fatalf("mutating a returned pool leaked into the catalog")
	}
}

func TestOptionsLocksFutureLevels(t *testing.T) {
	opts := Options(3, 4)
	if len(opts) == 0 {
		t.Fatalf("expected options")
	}
	byLevel := map[int]model.LevelOption{}
	for _, o := range opts {
		byLevel[o.Level] = o
	}
	if o := byLevel[4]; o.Locked {
		t.Fatalf("expected level 4 unlocked")
	}
	o, ok := byLevel[5]
	if !ok || !o.Locked || !strings.HasSuffix(o.Label, "(Locked)") {
		t.Fatalf("expected level 5 listed and locked, got %+v", o)
	}
	if _, ok := byLevel[9]; ok {
		t.Fatalf("expected level 9 hidden")
	}
	for _, lvl := range []int{8, 10, 25, 200} {
		if _, ok := byLevel[lvl]; !ok {
			t.Fatalf("expected level %d listed", lvl)
		}
	}
	if opts[len(opts)-1].Level != 200 {
		t.Fatalf("expected list to end at 200, got %d", opts[len(opts)-1].Level)
	}
}

func TestOptionsExtendsToMaxLevel(t *testing.T) {
	opts := Options(250, 250)
	last := opts[len(opts)-1]
	if last.Level != 250 || last.Locked {
		t.Fatalf("expected unlocked level 250 at end, got %+v", last)
	}
	if len(opts) != 250 {
		t.Fatalf("expected every unlocked level listed, got %d", len(opts))
	}
}
