// Package model defines shared data structures.
package model

import "time"

// Note identifies a pitch by class and octave, for example "C#4".
type Note string

// Melody is an ordered sequence of notes.
type Melody []Note

// Strings returns the note names of the melody.
func (m Melody) Strings() []string {
	out := make([]string, len(m))
	for i, n := range m {
		out[i] = string(n)
	}
	return out
}

// LevelConfig describes the difficulty of a single level.
type LevelConfig struct {
	Level        int
	MelodyLength int
	Pool         []Note
	Name         string
	// Tempo is the inter-note interval in milliseconds.
	Tempo int
}

// Interval returns the tempo as a duration.
func (c LevelConfig) Interval() time.Duration {
	return time.Duration(c.Tempo) * time.Millisecond
}

// InPool reports whether n belongs to the level's note pool.
func (c LevelConfig) InPool(n Note) bool {
	for _, p := range c.Pool {
		if p == n {
			return true
		}
	}
	return false
}

// Progress is the persisted subset of a session.
type Progress struct {
	CurrentLevel int
	MaxLevel     int
}

// Phase is the state of the current round.
type Phase int

const (
	AwaitingPlayRequest Phase = iota
	Playing
	AwaitingAnswer
	Scoring
)

func (p Phase) String() string {
	switch p {
	case AwaitingPlayRequest:
		return "ready"
	case Playing:
		return "listening"
	case AwaitingAnswer:
		return "your turn"
	case Scoring:
		return "scoring"
	default:
		return "unknown"
	}
}

// Challenge is an attempt to unlock a level above the best level reached.
type Challenge struct {
	Target int
}

// FeedbackKind tells the renderer how to style a feedback line.
type FeedbackKind int

const (
	FeedbackNeutral FeedbackKind = iota
	FeedbackCorrect
	FeedbackIncorrect
)

// Feedback is the user-facing message for the latest event.
type Feedback struct {
	Text string
	Kind FeedbackKind
}

// LevelOption is one entry of the level-selection list.
type LevelOption struct {
	Level  int
	Label  string
	Locked bool
}

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	Phase        Phase
	CurrentLevel int
	MaxLevel     int
	Streak       int
	Threshold    int
	Challenge    *Challenge
	Config       LevelConfig
	MelodyLength int
	Input        []Note
	Feedback     Feedback
	Notice       string
	// Levels is the level-selection list, in ascending level order.
	Levels []LevelOption
}

// Config defines game settings.
type Config struct {
	AutoPlay     bool
	Audio        bool
	Volume       float64
	SuccessDelay time.Duration
	FailureDelay time.Duration
	LogLevel     string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// RoundStats captures a scored answer.
type RoundStats struct {
	SessionID    string
	PlayedAt     time.Time
	Level        int
	MelodyLength int
	Challenge    bool
	Correct      bool
	Melody       Melody
	Answer       Melody
}

// LevelAggregate aggregates round results for a level.
type LevelAggregate struct {
	Level     int
	Correct   int
	Incorrect int
}
