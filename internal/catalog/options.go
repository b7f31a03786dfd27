package catalog

import (
	"fmt"
	"unicode/utf8"

	"github.com/verte-zerg/tuimelody/internal/model"
)

const (
	minListedLevels = 200
	lookahead       = 5
	maxLabelRunes   = 50
)

// Options builds the level-selection list. Levels past the best level reached
// and more than a few levels ahead of the current one are only listed at
// milestones.
func Options(current, maxLevel int) []model.LevelOption {
	limit := max(maxLevel, minListedLevels)
	out := make([]model.LevelOption, 0, limit)
	for i := 1; i <= limit; i++ {
		if i > maxLevel && i > current+lookahead && i != limit {
			if i%10 != 0 && i%25 != 0 {
				continue
			}
		}
		cfg := For(i)
		label := cfg.Name
		if utf8.RuneCountInString(label) > maxLabelRunes {
			label = fmt.Sprintf("Lvl %d: %d notes...", i, cfg.MelodyLength)
		}
		locked := i > maxLevel
		if locked {
			label += " (Locked)"
		}
		out = append(out, model.LevelOption{Level: i, Label: label, Locked: locked})
	}
	return out
}
