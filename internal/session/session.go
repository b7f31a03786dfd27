// Package session runs the ear-training game: rounds, scoring, level
// advancement and unlock challenges.
//
// A Session is not safe for concurrent use. All calls, including scheduled
// callbacks, are expected on one goroutine; the scheduler is responsible for
// delivering due tasks there.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuimelody/internal/audio"
	"github.com/verte-zerg/tuimelody/internal/catalog"
	"github.com/verte-zerg/tuimelody/internal/generator"
	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
	"github.com/verte-zerg/tuimelody/internal/playback"
	"github.com/verte-zerg/tuimelody/internal/progress"
	"github.com/verte-zerg/tuimelody/internal/schedule"
)

// Errors returned for rejected actions. The session state is unchanged.
var (
	ErrNeedMoreInput = errors.New("play enough notes first")
	ErrNotListening  = errors.New("not waiting for an answer")
	ErrBusy          = errors.New("melody is still playing")
	ErrInvalidLevel  = errors.New("level must be at least 1")
	ErrUnknownNote   = errors.New("unknown note")
	ErrClosed        = errors.New("session is closed")
)

const (
	// AdvanceThreshold is the streak that moves a player up one level.
	AdvanceThreshold = 3
	// UnlockThreshold is the streak that completes an unlock challenge.
	UnlockThreshold = 6

	DefaultSuccessDelay = 1500 * time.Millisecond
	DefaultFailureDelay = 2500 * time.Millisecond
	// AutoPlayDelay separates the start of a round from its automatic playback.
	AutoPlayDelay = 500 * time.Millisecond

	echoSeconds    = 0.4
	milestoneEvery = 25
)

// Melodies generates the melody for a round.
type Melodies interface {
	Generate(cfg model.LevelConfig) model.Melody
}

// RoundRecorder stores scored rounds.
type RoundRecorder interface {
	InsertRound(ctx context.Context, round model.RoundStats) (int64, error)
}

// Deps are the collaborators of a Session. Scheduler is required and must
// run callbacks on the goroutine that drives the Session. Recorder is
// optional; the rest fall back to silent audio, in-memory progress and a
// random generator.
type Deps struct {
	Audio     audio.Emitter
	Scheduler schedule.Scheduler
	Progress  *progress.Store
	Melodies  Melodies
	Recorder  RoundRecorder
	Log       *zap.Logger
	SessionID string
	Now       func() time.Time
}

// Options tune round pacing.
type Options struct {
	AutoPlay     bool
	SuccessDelay time.Duration
	FailureDelay time.Duration
}

// Result describes a scored answer.
type Result struct {
	Correct         bool
	Melody          model.Melody
	Played          model.Melody
	LevelUp         bool
	Unlocked        bool
	ChallengeFailed bool
}

// Session owns the game state and drives its transitions.
type Session struct {
	deps   Deps
	opts   Options
	driver *playback.Driver

	current   int
	maxLevel  int
	streak    int
	melody    model.Melody
	input     []model.Note
	phase     model.Phase
	challenge *model.Challenge
	feedback  model.Feedback
	notice    string
	closed    bool

	playback *playback.Handle
	pending  schedule.Timer
}

// New loads saved progress and returns a session waiting for a play request.
func New(deps Deps, opts Options) *Session {
	if deps.Scheduler == nil {
		panic("session: nil Scheduler")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Melodies == nil {
		deps.Melodies = generator.New(deps.Log)
	}
	if deps.Audio == nil {
		deps.Audio = audio.Silent{}
	}
	if deps.Progress == nil {
		deps.Progress = progress.New(progress.NewMemory(), deps.Log)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = DefaultSuccessDelay
	}
	if opts.FailureDelay <= 0 {
		opts.FailureDelay = DefaultFailureDelay
	}
	saved := deps.Progress.Load(context.Background())
	s := &Session{
		deps:     deps,
		opts:     opts,
		driver:   playback.NewDriver(deps.Audio, deps.Scheduler),
		current:  saved.CurrentLevel,
		maxLevel: saved.MaxLevel,
		phase:    model.AwaitingPlayRequest,
	}
	if !deps.Audio.Available() {
		s.notice = "Audio unavailable: melodies will not be heard."
	}
	s.feedback = model.Feedback{Text: fmt.Sprintf("Welcome! Play the melody to start %s.", s.config().Name)}
	deps.Log.Info("session started",
		zap.String("session_id", deps.SessionID),
		zap.Int("current_level", s.current),
		zap.Int("max_level", s.maxLevel),
	)
	return s
}

// RequestPlay plays the round's melody, generating it first if needed. It is
// accepted before the first listen and again while answering (replay).
func (s *Session) RequestPlay() error {
	if s.closed {
		return ErrClosed
	}
	if s.phase != model.AwaitingPlayRequest && s.phase != model.AwaitingAnswer {
		return ErrBusy
	}
	s.stopPending()
	cfg := s.config()
	if len(s.melody) == 0 {
		s.melody = s.deps.Melodies.Generate(cfg)
	}
	if !s.deps.Audio.Available() {
		s.notice = "Audio unavailable: playback skipped."
		s.listen()
		return nil
	}
	s.phase = model.Playing
	s.feedback = model.Feedback{Text: cfg.Name + ". Listen..."}
	s.playback = s.driver.Play(s.melody, cfg.Interval(), s.listen)
	return nil
}

func (s *Session) listen() {
	if s.closed {
		return
	}
	s.phase = model.AwaitingAnswer
	s.input = nil
	s.feedback = model.Feedback{Text: fmt.Sprintf("Your turn! Play the %d-note melody.", len(s.melody))}
}

// PressNote records a played note and echoes it. Notes outside the level's
// pool are accepted.
func (s *Session) PressNote(n model.Note) error {
	if s.closed {
		return ErrClosed
	}
	if s.phase != model.AwaitingAnswer {
		return ErrNotListening
	}
	freq, ok := notes.Frequency(n)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNote, n)
	}
	s.deps.Audio.PlayPitch(freq, echoSeconds, 0)
	s.input = append(s.input, n)
	s.feedback = model.Feedback{Text: fmt.Sprintf("Notes played: %d", len(s.input))}
	return nil
}

// Submit scores the last notes played against the melody and schedules the
// next round.
func (s *Session) Submit() (Result, error) {
	if s.closed {
		return Result{}, ErrClosed
	}
	if s.phase != model.AwaitingAnswer {
		return Result{}, ErrNotListening
	}
	if len(s.input) < len(s.melody) {
		s.feedback = model.Feedback{Text: "Play enough notes first!", Kind: model.FeedbackIncorrect}
		return Result{}, ErrNeedMoreInput
	}

	played := cloneNotes(s.input[len(s.input)-len(s.melody):])
	res := Result{
		Correct: sameNotes(played, s.melody),
		Melody:  cloneNotes(s.melody),
		Played:  played,
	}
	level := s.effectiveLevel()
	inChallenge := s.challenge != nil

	if res.Correct {
		s.streak++
	} else {
		s.streak = 0
	}

	switch {
	case inChallenge && !res.Correct:
		s.challenge = nil
		s.current = s.maxLevel
		s.persist()
		res.ChallengeFailed = true
		s.feedback = model.Feedback{
			Text: fmt.Sprintf("%s Challenge failed, back to level %d.", missText(res), s.current),
			Kind: model.FeedbackIncorrect,
		}
	case inChallenge && s.streak >= UnlockThreshold:
		s.maxLevel = s.challenge.Target
		s.current = s.challenge.Target
		s.challenge = nil
		s.streak = 0
		s.persist()
		res.Unlocked = true
		s.feedback = model.Feedback{Text: "Unlocked! Now on " + s.config().Name, Kind: model.FeedbackCorrect}
	case inChallenge:
		s.feedback = model.Feedback{
			Text: fmt.Sprintf("Correct! (%d/%d to unlock level %d)", s.streak, UnlockThreshold, s.challenge.Target),
			Kind: model.FeedbackCorrect,
		}
	case res.Correct && s.streak >= AdvanceThreshold:
		s.current++
		s.maxLevel = max(s.maxLevel, s.current)
		s.streak = 0
		s.persist()
		res.LevelUp = true
		text := "Level Up! Now on " + s.config().Name
		if s.current%milestoneEvery == 0 {
			text += " Great progress!"
		}
		s.feedback = model.Feedback{Text: text, Kind: model.FeedbackCorrect}
	case res.Correct:
		s.feedback = model.Feedback{
			Text: fmt.Sprintf("Correct! (%d/%d for next level)", s.streak, AdvanceThreshold),
			Kind: model.FeedbackCorrect,
		}
	default:
		s.feedback = model.Feedback{Text: missText(res) + " Try this level again.", Kind: model.FeedbackIncorrect}
	}

	s.input = nil
	s.record(level, inChallenge, res)
	s.phase = model.Scoring
	delay := s.opts.FailureDelay
	if res.Correct {
		delay = s.opts.SuccessDelay
	}
	s.pending = s.deps.Scheduler.After(delay, s.startRound)
	return res, nil
}

// SelectLevel jumps to an unlocked level, or starts an unlock challenge for a
// level above the best one reached.
func (s *Session) SelectLevel(level int) error {
	if s.closed {
		return ErrClosed
	}
	if level < 1 {
		s.feedback = model.Feedback{Text: fmt.Sprintf("Level %d does not exist.", level), Kind: model.FeedbackIncorrect}
		return ErrInvalidLevel
	}
	s.streak = 0
	if level > s.maxLevel {
		s.challenge = &model.Challenge{Target: level}
		s.deps.Log.Info("unlock challenge started", zap.Int("target", level), zap.Int("max_level", s.maxLevel))
	} else {
		s.challenge = nil
		s.current = level
		s.persist()
	}
	s.startRound()
	return nil
}

// Restart returns to level 1. The best level reached is kept.
func (s *Session) Restart() {
	if s.closed {
		return
	}
	s.current = 1
	s.streak = 0
	s.challenge = nil
	s.persist()
	s.startRound()
}

// Close stops playback and pending rounds. Later calls are rejected.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stopPlayback()
	s.stopPending()
	s.deps.Log.Info("session closed", zap.String("session_id", s.deps.SessionID))
}

// Snapshot returns a copy of the state for rendering.
func (s *Session) Snapshot() model.Snapshot {
	cfg := s.config()
	snap := model.Snapshot{
		Phase:        s.phase,
		CurrentLevel: s.current,
		MaxLevel:     s.maxLevel,
		Streak:       s.streak,
		Threshold:    AdvanceThreshold,
		Config:       cfg,
		MelodyLength: cfg.MelodyLength,
		Input:        cloneNotes(s.input),
		Feedback:     s.feedback,
		Notice:       s.notice,
		Levels:       s.LevelOptions(),
	}
	if s.challenge != nil {
		c := *s.challenge
		snap.Challenge = &c
		snap.Threshold = UnlockThreshold
	}
	return snap
}

// LevelOptions returns the level-selection list for the current progress.
func (s *Session) LevelOptions() []model.LevelOption {
	return catalog.Options(s.current, s.maxLevel)
}

func (s *Session) startRound() {
	if s.closed {
		return
	}
	s.stopPlayback()
	s.stopPending()
	s.input = nil
	s.melody = nil
	s.phase = model.AwaitingPlayRequest

	name := s.config().Name
	if s.challenge != nil {
		name = fmt.Sprintf("Unlock challenge (%d/%d): %s", s.streak, UnlockThreshold, name)
	}
	if !s.opts.AutoPlay {
		s.feedback = model.Feedback{Text: name + ". Play the melody when ready."}
		return
	}
	s.feedback = model.Feedback{Text: name + ". Listen..."}
	s.pending = s.deps.Scheduler.After(AutoPlayDelay, func() {
		if s.phase == model.AwaitingPlayRequest {
			if err := s.RequestPlay(); err != nil {
				s.deps.Log.Warn("auto play rejected", zap.Error(err))
			}
		}
	})
}

func (s *Session) effectiveLevel() int {
	if s.challenge != nil {
		return s.challenge.Target
	}
	return s.current
}

func (s *Session) config() model.LevelConfig {
	return catalog.For(s.effectiveLevel())
}

func (s *Session) persist() {
	p := model.Progress{CurrentLevel: s.current, MaxLevel: s.maxLevel}
	s.deps.Progress.Save(context.Background(), p)
	s.deps.Log.Debug("progress saved", zap.Int("current_level", p.CurrentLevel), zap.Int("max_level", p.MaxLevel))
}

func (s *Session) record(level int, challenge bool, res Result) {
	if s.deps.Recorder == nil {
		return
	}
	round := model.RoundStats{
		SessionID:    s.deps.SessionID,
		PlayedAt:     s.deps.Now(),
		Level:        level,
		MelodyLength: len(res.Melody),
		Challenge:    challenge,
		Correct:      res.Correct,
		Melody:       res.Melody,
		Answer:       res.Played,
	}
	if _, err := s.deps.Recorder.InsertRound(context.Background(), round); err != nil {
		s.deps.Log.Error("failed to save round", zap.Int("level", level), zap.Error(err))
	}
}

func (s *Session) stopPlayback() {
	s.playback.Cancel()
	s.playback = nil
}

func (s *Session) stopPending() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func missText(res Result) string {
	return fmt.Sprintf("Not quite. Melody was: %s. You played: %s.",
		strings.Join(res.Melody.Strings(), ", "),
		strings.Join(res.Played.Strings(), ", "),
	)
}

func sameNotes(a, b model.Melody) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneNotes(in []model.Note) model.Melody {
	if in == nil {
		return nil
	}
	out := make(model.Melody, len(in))
	copy(out, in)
	return out
}
