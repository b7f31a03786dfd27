// Package progress loads and saves the current and best level.
package progress

import (
	"context"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuimelody/internal/model"
)

// Keys of the two persisted integers.
const (
	KeyCurrentLevel = "current_level"
	KeyMaxLevel     = "max_level"
)

// Persistence stores integers by key.
type Persistence interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	SetInt(ctx context.Context, key string, value int) error
}

// Store reads and writes Progress through a Persistence backend. Failures
// are logged and never returned.
type Store struct {
	backend Persistence
	log     *zap.Logger
}

// New returns a Store over backend.
func New(backend Persistence, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log}
}

// Defaults is the progress of a new player.
func Defaults() model.Progress {
	return model.Progress{CurrentLevel: 1, MaxLevel: 1}
}

// Load returns the saved progress, clamped so 1 <= current <= max.
func (s *Store) Load(ctx context.Context) model.Progress {
	p := Defaults()
	current, okCurrent, err := s.backend.GetInt(ctx, KeyCurrentLevel)
	if err != nil {
		s.log.Error("failed to load current level", zap.Error(err))
		return p
	}
	maxLevel, okMax, err := s.backend.GetInt(ctx, KeyMaxLevel)
	if err != nil {
		s.log.Error("failed to load max level", zap.Error(err))
		return p
	}
	if okCurrent {
		p.CurrentLevel = current
	}
	if okMax {
		p.MaxLevel = maxLevel
	}
	return Clamp(p)
}

// Save writes both levels. Errors are logged.
func (s *Store) Save(ctx context.Context, p model.Progress) {
	if err := s.backend.SetInt(ctx, KeyCurrentLevel, p.CurrentLevel); err != nil {
		s.log.Error("failed to save current level", zap.Int("level", p.CurrentLevel), zap.Error(err))
	}
	if err := s.backend.SetInt(ctx, KeyMaxLevel, p.MaxLevel); err != nil {
		s.log.Error("failed to save max level", zap.Int("level", p.MaxLevel), zap.Error(err))
	}
}

// Clamp enforces max >= 1 and 1 <= current <= max.
func Clamp(p model.Progress) model.Progress {
	if p.MaxLevel < 1 {
		p.MaxLevel = 1
	}
	if p.CurrentLevel < 1 {
		p.CurrentLevel = 1
	}
	if p.CurrentLevel > p.MaxLevel {
		p.CurrentLevel = p.MaxLevel
	}
	return p
}

// Memory is an in-process Persistence used when no database is available.
type Memory struct {
	values map[string]int
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{values: map[string]int{}}
}

// GetInt implements Persistence.
func (m *Memory) GetInt(_ context.Context, key string) (int, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

// SetInt implements Persistence.
func (m *Memory) SetInt(_ context.Context, key string, value int) error {
	m.values[key] = value
	return nil
}
