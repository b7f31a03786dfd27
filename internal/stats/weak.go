package stats

import (
	"sort"

	"github.com/verte-zerg/tuimelody/internal/model"
)

// HardestLevels returns up to top levels with the lowest accuracy.
func HardestLevels(aggs []model.LevelAggregate, top int) []int {
	if len(aggs) == 0 {
		return nil
	}
	candidates := make([]model.LevelAggregate, len(aggs))
	copy(candidates, aggs)
	sortByAccuracy(candidates)
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]int, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].Level)
	}
	return out
}

func sortByAccuracy(aggs []model.LevelAggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		ai := accuracy(aggs[i])
		aj := accuracy(aggs[j])
		if ai == aj {
			return aggs[i].Level < aggs[j].Level
		}
		return ai < aj
	})
}

func accuracy(agg model.LevelAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
