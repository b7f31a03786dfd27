// Package generator builds melodies for a level.
package generator

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
)

// maxAttempts bounds redraws when avoiding an immediate repeat.
const maxAttempts = 10

// Generator produces randomized melodies.
type Generator struct {
	rnd *rand.Rand
	log *zap.Logger
}

// New returns a Generator seeded with the current time.
func New(log *zap.Logger) *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()), log)
}

// NewWithSource returns a Generator drawing from src.
func NewWithSource(src rand.Source, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{rnd: rand.New(src), log: log}
}

// Generate draws a melody of cfg.MelodyLength notes from cfg.Pool.
// Short melodies avoid repeating the previous note, but only for a bounded
// number of draws.
func (g *Generator) Generate(cfg model.LevelConfig) model.Melody {
	pool := cfg.Pool
	length := cfg.MelodyLength
	if len(pool) == 0 {
		g.log.Warn("empty note pool, using fallback note",
			zap.Int("level", cfg.Level),
			zap.String("name", cfg.Name),
		)
		return model.Melody{notes.Anchor}
	}

	switch {
	case length <= 1:
		return model.Melody{pool[g.rnd.Intn(len(pool))]}
	case length == 2 && len(pool) == 2:
		if g.rnd.Float64() < 0.5 {
			return model.Melody{pool[1], pool[0]}
		}
		return model.Melody{pool[0], pool[1]}
	}

	avoidRepeat := length <= 3 && len(pool) > 1
	melody := make(model.Melody, 0, length)
	var last model.Note
	for i := 0; i < length; i++ {
		next := pool[g.rnd.Intn(len(pool))]
		for attempts := 1; avoidRepeat && i > 0 && next == last && attempts < maxAttempts; attempts++ {
			next = pool[g.rnd.Intn(len(pool))]
		}
		melody = append(melody, next)
		last = next
	}
	g.log.Debug("generated melody",
		zap.String("level", cfg.Name),
		zap.Strings("notes", melody.Strings()),
	)
	return melody
}
