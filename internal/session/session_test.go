package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/progress"
	"github.com/verte-zerg/tuimelody/internal/schedule"
)

type fakeEmitter struct {
	available bool
	tones     []float64
}

func (f *fakeEmitter) PlayPitch(freq, _, _ float64) { f.tones = append(f.tones, freq) }

func (f *fakeEmitter) Available() bool { return f.available }

// firstNotes plays the pool in order, so answers are predictable.
type firstNotes struct{}

func (firstNotes) Generate(cfg model.LevelConfig) model.Melody {
	return expectedMelody(cfg)
}

func expectedMelody(cfg model.LevelConfig) model.Melody {
	out := make(model.Melody, cfg.MelodyLength)
	for i := range out {
		out[i] = cfg.Pool[i%len(cfg.Pool)]
	}
	return out
}

type memRecorder struct {
	rounds []model.RoundStats
}

func (m *memRecorder) InsertRound(_ context.Context, r model.RoundStats) (int64, error) {
	m.rounds = append(m.rounds, r)
	return int64(len(m.rounds)), nil
}

type harness struct {
	s        *Session
	clock    *schedule.Manual
	emitter  *fakeEmitter
	backend  *progress.Memory
	progress *progress.Store
	recorder *memRecorder
}

func newHarness(t *testing.T, saved *model.Progress, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock:    schedule.NewManual(),
		emitter:  &fakeEmitter{available: true},
		backend:  progress.NewMemory(),
		recorder: &memRecorder{},
	}
	h.progress = progress.New(h.backend, nil)
	if saved != nil {
		h.progress.Save(context.Background(), *saved)
	}
	h.s = New(Deps{
		Audio:     h.emitter,
		Scheduler: h.clock,
		Progress:  h.progress,
		Melodies:  firstNotes{},
		Recorder:  h.recorder,
		SessionID: "test",
		Now:       func() time.Time { return time.Unix(0, 0) },
	}, opts)
	return h
}

// listen requests playback and waits for it to finish.
func (h *harness) listen(t *testing.T) model.Melody {
	t.Helper()
	if err := h.s.RequestPlay(); err != nil {
		t.Fatalf("request play: %v", err)
	}
	cfg := h.s.Snapshot().Config
	h.clock.Advance(time.Duration(cfg.MelodyLength) * cfg.Interval())
	if phase := h.s.Snapshot().Phase; phase != model.AwaitingAnswer {
		t.Fatalf("expected to await answer after playback, got %v", phase)
	}
	return expectedMelody(cfg)
}

func (h *harness) answer(t *testing.T, played model.Melody) Result {
	t.Helper()
	for _, n := range played {
		if err := h.s.PressNote(n); err != nil {
			t.Fatalf("press %s: %v", n, err)
		}
	}
	res, err := h.s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(DefaultFailureDelay)
	return res
}

func (h *harness) playCorrect(t *testing.T) Result {
	t.Helper()
	return h.answer(t, h.listen(t))
}

func (h *harness) playWrong(t *testing.T) Result {
	t.Helper()
	melody := h.listen(t)
	wrong := cloneNotes(melody)
	if wrong[0] == "C4" {
		wrong[0] = "C#4"
	} else {
		wrong[0] = "C4"
	}
	return h.answer(t, wrong)
}

func TestNewLoadsProgress(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 4, MaxLevel: 7}, Options{})
	snap := h.s.Snapshot()
	if snap.CurrentLevel != 4 || snap.MaxLevel != 7 {
		t.Fatalf("unexpected levels: %+v", snap)
	}
	if snap.Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected to await play request, got %v", snap.Phase)
	}
}

func TestCorrectAnswerRoundTrip(t *testing.T) {
	h := newHarness(t, nil, Options{})
	melody := h.listen(t)
	for _, n := range melody {
		if err := h.s.PressNote(n); err != nil {
			t.Fatalf("press: %v", err)
		}
	}
	res, err := h.s.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct {
		t.Fatalf("expected correct answer, got %+v", res)
	}
	snap := h.s.Snapshot()
	if snap.Phase != model.Scoring || snap.Streak != 1 || len(snap.Input) != 0 {
		t.Fatalf("unexpected state after scoring: %+v", snap)
	}
	if snap.Feedback.Kind != model.FeedbackCorrect {
		t.Fatalf("expected correct feedback, got %+v", snap.Feedback)
	}

	h.clock.Advance(DefaultSuccessDelay - time.Millisecond)
	if h.s.Snapshot().Phase != model.Scoring {
		t.Fatalf("next round started before the pause")
	}
	h.clock.Advance(time.Millisecond)
	if h.s.Snapshot().Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected a new round after the pause")
	}
}

func TestWrongAnswerResetsStreak(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.playCorrect(t)
	res := h.playWrong(t)
	if res.Correct {
		t.Fatalf("expected wrong answer")
	}
	if snap := h.s.Snapshot(); snap.Streak != 0 || snap.CurrentLevel != 1 {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestFailureWaitsLonger(t *testing.T) {
	h := newHarness(t, nil, Options{})
	melody := h.listen(t)
	wrong := model.Melody{"B4"}
	if melody[0] == "B4" {
		wrong = model.Melody{"C4"}
	}
	_ = h.s.PressNote(wrong[0])
	if _, err := h.s.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(DefaultSuccessDelay)
	if h.s.Snapshot().Phase != model.Scoring {
		t.Fatalf("expected longer pause after a miss")
	}
	h.clock.Advance(DefaultFailureDelay - DefaultSuccessDelay)
	if h.s.Snapshot().Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected new round after failure delay")
	}
}

func TestOnlyLastNotesAreCompared(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 30, MaxLevel: 30}, Options{})
	melody := h.listen(t)
	played := append(model.Melody{"B4", "A4"}, melody...)
	if res := h.answer(t, played); !res.Correct {
		t.Fatalf("expected trailing notes to match, got %+v", res)
	}
}

func TestSingleDifferenceIsIncorrect(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 60, MaxLevel: 60}, Options{})
	h.playCorrect(t)
	melody := h.listen(t)
	for pos := range melody {
		if pos > 0 {
			melody = h.listen(t)
		}
		wrong := cloneNotes(melody)
		if wrong[pos] == "C#4" {
			wrong[pos] = "D#4"
		} else {
			wrong[pos] = "C#4"
		}
		res := h.answer(t, wrong)
		if res.Correct {
			t.Fatalf("position %d: expected incorrect", pos)
		}
		if h.s.Snapshot().Streak != 0 {
			t.Fatalf("position %d: expected streak reset", pos)
		}
	}
}

func TestThreeCorrectAdvances(t *testing.T) {
	h := newHarness(t, nil, Options{})
	for i := 0; i < AdvanceThreshold-1; i++ {
		if res := h.playCorrect(t); res.LevelUp {
			t.Fatalf("advanced too early at answer %d", i+1)
		}
	}
	res := h.playCorrect(t)
	if !res.LevelUp {
		t.Fatalf("expected level up on third correct answer")
	}
	snap := h.s.Snapshot()
	if snap.CurrentLevel != 2 || snap.MaxLevel != 2 || snap.Streak != 0 {
		t.Fatalf("unexpected state after level up: %+v", snap)
	}
	if got := h.progress.Load(context.Background()); got != (model.Progress{CurrentLevel: 2, MaxLevel: 2}) {
		t.Fatalf("expected progress persisted, got %+v", got)
	}
}

func TestAdvanceBelowMaxKeepsMax(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 9}, Options{})
	for i := 0; i < AdvanceThreshold; i++ {
		h.playCorrect(t)
	}
	snap := h.s.Snapshot()
	if snap.CurrentLevel != 3 || snap.MaxLevel != 9 {
		t.Fatalf("unexpected levels: %+v", snap)
	}
}

func TestUnlockChallengeSuccess(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 3, MaxLevel: 5}, Options{})
	if err := h.s.SelectLevel(6); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := h.s.Snapshot()
	if snap.Challenge == nil || snap.Challenge.Target != 6 {
		t.Fatalf("expected challenge for level 6, got %+v", snap.Challenge)
	}
	if snap.Config.Level != 6 || snap.Threshold != UnlockThreshold {
		t.Fatalf("expected level 6 config with unlock threshold, got %+v", snap)
	}
	for i := 0; i < UnlockThreshold-1; i++ {
		res := h.playCorrect(t)
		if res.Unlocked || res.LevelUp {
			t.Fatalf("challenge resolved early at answer %d: %+v", i+1, res)
		}
	}
	if h.s.Snapshot().CurrentLevel != 3 {
		t.Fatalf("current level must not change during a challenge")
	}
	if res := h.playCorrect(t); !res.Unlocked {
		t.Fatalf("expected unlock on answer %d", UnlockThreshold)
	}
	snap = h.s.Snapshot()
	if snap.Challenge != nil || snap.CurrentLevel != 6 || snap.MaxLevel != 6 || snap.Streak != 0 {
		t.Fatalf("unexpected state after unlock: %+v", snap)
	}
	if got := h.progress.Load(context.Background()); got != (model.Progress{CurrentLevel: 6, MaxLevel: 6}) {
		t.Fatalf("expected unlock persisted, got %+v", got)
	}
}

func TestUnlockChallengeFailure(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 4}, Options{})
	if err := h.s.SelectLevel(5); err != nil {
		t.Fatalf("select: %v", err)
	}
	h.playCorrect(t)
	h.playCorrect(t)
	res := h.playWrong(t)
	if !res.ChallengeFailed {
		t.Fatalf("expected challenge failure, got %+v", res)
	}
	snap := h.s.Snapshot()
	if snap.Challenge != nil || snap.CurrentLevel != 4 || snap.MaxLevel != 4 || snap.Streak != 0 {
		t.Fatalf("unexpected state after failed challenge: %+v", snap)
	}
	if snap.Config.Level != 4 {
		t.Fatalf("expected rounds back on level 4, got %d", snap.Config.Level)
	}
	if got := h.progress.Load(context.Background()); got != (model.Progress{CurrentLevel: 4, MaxLevel: 4}) {
		t.Fatalf("expected revert persisted, got %+v", got)
	}
}

func TestSelectUnlockedLevel(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 10}, Options{})
	h.playCorrect(t)
	if err := h.s.SelectLevel(8); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := h.s.Snapshot()
	if snap.CurrentLevel != 8 || snap.Streak != 0 || snap.Challenge != nil {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if got := h.progress.Load(context.Background()); got.CurrentLevel != 8 {
		t.Fatalf("expected selection persisted, got %+v", got)
	}
}

func TestSelectUnlockedLevelClearsChallenge(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 3}, Options{})
	_ = h.s.SelectLevel(9)
	if err := h.s.SelectLevel(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap := h.s.Snapshot(); snap.Challenge != nil || snap.CurrentLevel != 1 {
		t.Fatalf("expected challenge cleared on level 1, got %+v", snap)
	}
}

func TestSelectInvalidLevel(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 3}, Options{})
	if err := h.s.SelectLevel(0); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if snap := h.s.Snapshot(); snap.CurrentLevel != 2 || snap.Challenge != nil {
		t.Fatalf("state changed on invalid select: %+v", snap)
	}
}

func TestSelectCancelsPlayback(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 60, MaxLevel: 60}, Options{})
	if err := h.s.RequestPlay(); err != nil {
		t.Fatalf("request play: %v", err)
	}
	played := len(h.emitter.tones)
	_ = h.s.SelectLevel(3)
	h.clock.Advance(10 * time.Second)
	if len(h.emitter.tones) != played {
		t.Fatalf("expected no further notes after level change, got %d more", len(h.emitter.tones)-played)
	}
	if h.s.Snapshot().Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected a fresh round")
	}
}

func TestRestart(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 7, MaxLevel: 7}, Options{})
	_ = h.s.SelectLevel(12)
	h.s.Restart()
	snap := h.s.Snapshot()
	if snap.CurrentLevel != 1 || snap.MaxLevel != 7 || snap.Challenge != nil || snap.Phase != model.AwaitingPlayRequest {
		t.Fatalf("unexpected state after restart: %+v", snap)
	}
	if got := h.progress.Load(context.Background()); got.CurrentLevel != 1 {
		t.Fatalf("expected restart persisted, got %+v", got)
	}
}

func TestSubmitNeedsEnoughNotes(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 30, MaxLevel: 30}, Options{})
	melody := h.listen(t)
	_ = h.s.PressNote(melody[0])
	if _, err := h.s.Submit(); !errors.Is(err, ErrNeedMoreInput) {
		t.Fatalf("expected ErrNeedMoreInput, got %v", err)
	}
	snap := h.s.Snapshot()
	if snap.Phase != model.AwaitingAnswer || len(snap.Input) != 1 {
		t.Fatalf("state changed on rejected submit: %+v", snap)
	}
}

func TestPressOutsideAnswerIsDropped(t *testing.T) {
	h := newHarness(t, nil, Options{})
	if err := h.s.PressNote("C4"); !errors.Is(err, ErrNotListening) {
		t.Fatalf("expected ErrNotListening before playback, got %v", err)
	}
	_ = h.s.RequestPlay()
	if err := h.s.PressNote("C4"); !errors.Is(err, ErrNotListening) {
		t.Fatalf("expected ErrNotListening during playback, got %v", err)
	}
	if _, err := h.s.Submit(); !errors.Is(err, ErrNotListening) {
		t.Fatalf("expected submit rejected during playback, got %v", err)
	}
	if err := h.s.RequestPlay(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during playback, got %v", err)
	}
}

func TestPressEchoesAndAcceptsUnpooledNotes(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.listen(t)
	before := len(h.emitter.tones)
	if err := h.s.PressNote("A#4"); err != nil {
		t.Fatalf("expected unpooled note accepted, got %v", err)
	}
	if len(h.emitter.tones) != before+1 || h.emitter.tones[before] != 466.16 {
		t.Fatalf("expected echo of A#4, got %v", h.emitter.tones[before:])
	}
	if err := h.s.PressNote("H9"); !errors.Is(err, ErrUnknownNote) {
		t.Fatalf("expected ErrUnknownNote, got %v", err)
	}
}

func TestReplayClearsInput(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 30, MaxLevel: 30}, Options{})
	melody := h.listen(t)
	_ = h.s.PressNote(melody[0])
	h.listen(t)
	if n := len(h.s.Snapshot().Input); n != 0 {
		t.Fatalf("expected input cleared after replay, got %d notes", n)
	}
}

func TestAudioUnavailableSkipsPlayback(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.emitter.available = false
	if err := h.s.RequestPlay(); err != nil {
		t.Fatalf("request play: %v", err)
	}
	snap := h.s.Snapshot()
	if snap.Phase != model.AwaitingAnswer || snap.Notice == "" {
		t.Fatalf("expected to answer without audio, got %+v", snap)
	}
	if err := h.s.PressNote("C4"); err != nil {
		t.Fatalf("press: %v", err)
	}
	if _, err := h.s.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 60, MaxLevel: 60}, Options{AutoPlay: true})
	_ = h.s.RequestPlay()
	played := len(h.emitter.tones)
	h.s.Close()
	h.clock.Advance(time.Minute)
	if len(h.emitter.tones) != played {
		t.Fatalf("expected no audio after close")
	}
	if h.s.Snapshot().Phase != model.Playing {
		t.Fatalf("expected state frozen after close")
	}
	if err := h.s.RequestPlay(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAutoPlayStartsNextRound(t *testing.T) {
	h := newHarness(t, nil, Options{AutoPlay: true})
	melody := h.listen(t)
	_ = h.s.PressNote(melody[0])
	if _, err := h.s.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(DefaultSuccessDelay)
	if h.s.Snapshot().Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected new round before auto play")
	}
	h.clock.Advance(AutoPlayDelay)
	if h.s.Snapshot().Phase != model.Playing {
		t.Fatalf("expected auto play to start")
	}
}

func TestCustomDelays(t *testing.T) {
	h := newHarness(t, nil, Options{SuccessDelay: 100 * time.Millisecond})
	melody := h.listen(t)
	_ = h.s.PressNote(melody[0])
	_, _ = h.s.Submit()
	h.clock.Advance(100 * time.Millisecond)
	if h.s.Snapshot().Phase != model.AwaitingPlayRequest {
		t.Fatalf("expected custom success delay to apply")
	}
}

func TestRoundsAreRecorded(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 1, MaxLevel: 1}, Options{})
	h.playCorrect(t)
	_ = h.s.SelectLevel(2)
	h.playWrong(t)
	if len(h.recorder.rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(h.recorder.rounds))
	}
	first, second := h.recorder.rounds[0], h.recorder.rounds[1]
	if !first.Correct || first.Challenge || first.Level != 1 || first.SessionID != "test" {
		t.Fatalf("unexpected first round: %+v", first)
	}
	if second.Correct || !second.Challenge || second.Level != 2 {
		t.Fatalf("unexpected second round: %+v", second)
	}
}

func TestLevelOptionsFollowProgress(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 3}, Options{})
	opts := h.s.LevelOptions()
	if opts[2].Level != 3 || opts[2].Locked || !opts[3].Locked {
		t.Fatalf("unexpected options: %+v", opts[:4])
	}
}

func TestSnapshotCarriesLevelOptions(t *testing.T) {
	h := newHarness(t, &model.Progress{CurrentLevel: 2, MaxLevel: 3}, Options{})
	levels := h.s.Snapshot().Levels
	if len(levels) == 0 || levels[0].Level != 1 {
		t.Fatalf("expected level list starting at 1, got %+v", levels)
	}
	if levels[2].Locked || !levels[3].Locked {
		t.Fatalf("unexpected lock state: %+v", levels[:4])
	}
}

func TestNewDefaultsMelodies(t *testing.T) {
	clock := schedule.NewManual()
	s := New(Deps{Scheduler: clock}, Options{})
	if err := s.RequestPlay(); err != nil {
		t.Fatalf("request play: %v", err)
	}
	cfg := s.Snapshot().Config
	if len(s.melody) != cfg.MelodyLength {
		t.Fatalf("expected %d notes, got %d", cfg.MelodyLength, len(s.melody))
	}
	for _, n := range s.melody {
		if !cfg.InPool(n) {
			t.Fatalf("note %v outside pool %v", n, cfg.Pool)
		}
	}
}

func TestNewRequiresScheduler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic without a scheduler")
		}
	}()
	New(Deps{}, Options{})
}
