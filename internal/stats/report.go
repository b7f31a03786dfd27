package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/tuimelody/internal/model"
)

const hardestTop = 3

// Source lists recorded rounds.
type Source interface {
	ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundStats, error)
	ListLevelAggregates(ctx context.Context, since *time.Time) ([]model.LevelAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Rounds       []model.RoundStats
	LevelsAll    []model.LevelAggregate
	LevelsWindow []model.LevelAggregate
	CurveWindow  int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	rounds, err := src.ListRounds(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list rounds: %w", err)
	}
	if cfg.Last > 0 && len(rounds) > cfg.Last {
		rounds = rounds[len(rounds)-cfg.Last:]
	}

	var levelsAll []model.LevelAggregate
	if cfg.Last > 0 {
		levelsAll = AggregateLevels(rounds)
	} else {
		levelsAll, err = src.ListLevelAggregates(ctx, cfg.Since)
		if err != nil {
			return Report{}, fmt.Errorf("failed to aggregate levels: %w", err)
		}
	}

	return Report{
		Rounds:       rounds,
		LevelsAll:    levelsAll,
		LevelsWindow: AggregateLevels(lastRounds(rounds, cfg.CurveWindow)),
		CurveWindow:  cfg.CurveWindow,
	}, nil
}

// Render writes the full report. width limits the curve length when > 0.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Rounds); err != nil {
		return err
	}
	if len(r.Rounds) == 0 {
		return nil
	}
	if err := RenderCurve(w, r.Rounds, r.CurveWindow, width); err != nil {
		return err
	}
	if err := RenderLevelTable(w, "Per-Level (Windowed)", r.LevelsWindow); err != nil {
		return err
	}
	if err := RenderLevelTable(w, "Per-Level (All)", r.LevelsAll); err != nil {
		return err
	}
	if hardest := HardestLevels(r.LevelsAll, hardestTop); len(hardest) > 0 {
		if _, err := fmt.Fprintf(w, "Hardest levels: %v\n", hardest); err != nil {
			return err
		}
	}
	return nil
}

func lastRounds(rounds []model.RoundStats, window int) []model.RoundStats {
	if window <= 0 || len(rounds) <= window {
		return rounds
	}
	return rounds[len(rounds)-window:]
}
