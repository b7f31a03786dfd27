// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tuimelody/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary holds the headline numbers of a round history.
type Summary struct {
	Rounds       int
	Sessions     int
	Correct      int
	Accuracy     float64
	BestStreak   int
	HighestLevel int
	Challenges   int
}

// Summarize computes headline metrics over rounds in play order.
func Summarize(rounds []model.RoundStats) Summary {
	var s Summary
	s.Rounds = len(rounds)
	sessions := map[string]struct{}{}
	streak := 0
	for _, r := range rounds {
		sessions[r.SessionID] = struct{}{}
		if r.Challenge {
			s.Challenges++
		}
		if !r.Correct {
			streak = 0
			continue
		}
		s.Correct++
		streak++
		if streak > s.BestStreak {
			s.BestStreak = streak
		}
		if r.Level > s.HighestLevel {
			s.HighestLevel = r.Level
		}
	}
	s.Sessions = len(sessions)
	if s.Rounds > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Rounds)
	}
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the headline metrics.
func RenderSummary(w io.Writer, rounds []model.RoundStats) error {
	if len(rounds) == 0 {
		_, err := fmt.Fprintln(w, "No rounds found.")
		return err
	}
	s := Summarize(rounds)
	lines := []string{
		"Summary",
		fmt.Sprintf("Rounds: %d", s.Rounds),
		fmt.Sprintf("Sessions: %d", s.Sessions),
		fmt.Sprintf("Accuracy: %.2f%%", s.Accuracy*100),
		fmt.Sprintf("Best streak: %d", s.BestStreak),
		fmt.Sprintf("Highest level passed: %d", s.HighestLevel),
		fmt.Sprintf("Unlock challenge rounds: %d", s.Challenges),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the moving-average accuracy and level as sparklines,
// squeezed to at most width columns when width > 0.
func RenderCurve(w io.Writer, rounds []model.RoundStats, window, width int) error {
	if len(rounds) == 0 {
		return nil
	}
	accs := make([]float64, len(rounds))
	levels := make([]float64, len(rounds))
	for i, r := range rounds {
		if r.Correct {
			accs[i] = 100
		}
		levels[i] = float64(r.Level)
	}
	accs = lastN(MovingAverage(accs, window), width)
	levels = lastN(levels, width)

	rows := [][]string{
		{"Accuracy", Sparkline(accs), fmt.Sprintf("%.0f%%", accs[len(accs)-1])},
		{"Level", Sparkline(levels), fmt.Sprintf("%d", int(levels[len(levels)-1]))},
	}
	if _, err := fmt.Fprintf(w, "Learning Curve (window %d)\n", max(window, 1)); err != nil {
		return err
	}
	for _, line := range formatTable(nil, rows, map[int]bool{2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderLevelTable prints per-level aggregates, hardest levels first.
func RenderLevelTable(w io.Writer, title string, aggs []model.LevelAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No level stats found.")
		return err
	}
	rows := make([]model.LevelAggregate, len(aggs))
	copy(rows, aggs)
	sortByAccuracy(rows)

	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"Level", "Accuracy", "Correct", "Incorrect"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", r.Level),
			fmt.Sprintf("%.2f%%", accuracy(r)*100),
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	rightAlign := map[int]bool{0: true, 1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// AggregateLevels sums rounds per level, ordered by level.
func AggregateLevels(rounds []model.RoundStats) []model.LevelAggregate {
	byLevel := map[int]*model.LevelAggregate{}
	for _, r := range rounds {
		agg, ok := byLevel[r.Level]
		if !ok {
			agg = &model.LevelAggregate{Level: r.Level}
			byLevel[r.Level] = agg
		}
		if r.Correct {
			agg.Correct++
		} else {
			agg.Incorrect++
		}
	}
	out := make([]model.LevelAggregate, 0, len(byLevel))
	for _, agg := range byLevel {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

func lastN(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
