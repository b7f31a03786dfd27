// Package tui provides the Bubble Tea ear-training interface.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/notes"
	"github.com/verte-zerg/tuimelody/internal/session"
)

const pressHighlight = 200 * time.Millisecond

// RunMsg carries a scheduled task onto the update loop.
type RunMsg struct {
	Fn func()
}

// Poster returns a function that delivers tasks to p as RunMsg values.
func Poster(p func() *tea.Program) func(func()) {
	return func(fn func()) {
		if prog := p(); prog != nil {
			prog.Send(RunMsg{Fn: fn})
		}
	}
}

type releaseMsg struct {
	note model.Note
	seq  int
}

// Model implements the Bubble Tea game UI.
type Model struct {
	sess *session.Session

	width  int
	height int

	pressed map[model.Note]int
	seq     int

	gotoMode  bool
	gotoInput textinput.Model
	status    string
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	neutralStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	lockedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))

	keyStyle = lipgloss.NewStyle().
			Width(3).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	whiteKeyStyle   = keyStyle.Foreground(lipgloss.Color("#F0F0F0"))
	blackKeyStyle   = keyStyle.Foreground(lipgloss.Color("#B0B0B0")).Background(lipgloss.Color("#262626"))
	outOfPoolStyle  = keyStyle.Foreground(lipgloss.Color("#4A4A4A"))
	pressedKeyStyle = keyStyle.Foreground(lipgloss.Color("#141414")).
			Background(lipgloss.Color("#C89A3A")).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs a game TUI model around a session.
func NewModel(sess *session.Session) *Model {
	input := textinput.New()
	input.Prompt = "Go to level: "
	input.CharLimit = 6
	input.Width = 8
	return &Model{
		sess:      sess,
		pressed:   map[model.Note]int{},
		gotoInput: input,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RunMsg:
		if msg.Fn != nil {
			msg.Fn()
		}
		return m, nil
	case releaseMsg:
		if m.pressed[msg.note] == msg.seq {
			delete(m.pressed, msg.note)
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.gotoMode {
			return m.updateGoto(msg)
		}
		return m.updateGame(msg)
	default:
		return m, nil
	}
}

func (m *Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.sess.Close()
		return m, tea.Quit
	case tea.KeySpace:
		m.report(m.sess.RequestPlay())
		return m, nil
	case tea.KeyEnter:
		_, err := m.sess.Submit()
		m.report(err)
		return m, nil
	case tea.KeyCtrlR:
		m.sess.Restart()
		m.status = ""
		return m, nil
	case tea.KeyLeft:
		if level := m.sess.Snapshot().Config.Level; level > 1 {
			m.report(m.sess.SelectLevel(level - 1))
		}
		return m, nil
	case tea.KeyRight:
		m.report(m.sess.SelectLevel(m.sess.Snapshot().Config.Level + 1))
		return m, nil
	case tea.KeyTab:
		m.gotoMode = true
		m.gotoInput.SetValue("")
		return m, m.gotoInput.Focus()
	case tea.KeyRunes:
		return m, m.handleRunes(msg.Runes)
	default:
		return m, nil
	}
}

func (m *Model) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.sess.Close()
		return m, tea.Quit
	case tea.KeyEsc:
		m.closeGoto()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.gotoInput.Value())
		m.closeGoto()
		level, err := strconv.Atoi(value)
		if err != nil {
			m.status = fmt.Sprintf("Not a level number: %q", value)
			return m, nil
		}
		m.report(m.sess.SelectLevel(level))
		return m, nil
	}
	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return m, cmd
}

func (m *Model) closeGoto() {
	m.gotoMode = false
	m.gotoInput.Blur()
}

func (m *Model) handleRunes(runes []rune) tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range runes {
		note, ok := notes.Bindings[strings.ToLower(string(r))]
		if !ok {
			continue
		}
		err := m.sess.PressNote(note)
		if errors.Is(err, session.ErrNotListening) {
			continue
		}
		m.report(err)
		if err != nil {
			continue
		}
		m.seq++
		m.pressed[note] = m.seq
		seq := m.seq
		cmds = append(cmds, tea.Tick(pressHighlight, func(time.Time) tea.Msg {
			return releaseMsg{note: note, seq: seq}
		}))
	}
	return tea.Batch(cmds...)
}

func (m *Model) report(err error) {
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, session.ErrNeedMoreInput):
		// The session feedback already says so.
		m.status = ""
	default:
		m.status = err.Error()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	snap := m.sess.Snapshot()
	lines := []string{
		titleStyle.Render("tuimelody · " + snap.Config.Name),
		renderLevelStrip(snap),
		"",
		renderPiano(snap.Config, m.pressed),
		"",
		renderInput(snap),
		feedbackStyle(snap.Feedback.Kind).Render(snap.Feedback.Text),
	}
	if snap.Notice != "" {
		lines = append(lines, noticeStyle.Render(snap.Notice))
	}
	if m.status != "" {
		lines = append(lines, incorrectStyle.Render(m.status))
	}
	if m.gotoMode {
		lines = append(lines, "", renderLevelWindow(snap), m.gotoInput.View())
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)

	footer := m.renderFooter(snap)
	if m.width == 0 || m.height < 3 {
		return content + "\n" + footer
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter(snap model.Snapshot) string {
	segments := []string{snap.Phase.String()}
	switch snap.Phase {
	case model.AwaitingPlayRequest:
		segments = append(segments, "space play")
	case model.AwaitingAnswer:
		segments = append(segments, "a-k notes", "enter submit", "space replay")
	}
	segments = append(segments, "←/→ level", "tab go to", "ctrl+r restart", "esc quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}

func renderLevelStrip(snap model.Snapshot) string {
	dots := strings.Repeat("●", min(snap.Streak, snap.Threshold)) +
		strings.Repeat("○", max(snap.Threshold-snap.Streak, 0))
	if snap.Challenge != nil {
		return fmt.Sprintf("Unlock challenge: level %d (best %d)  %s",
			snap.Challenge.Target, snap.MaxLevel, dots)
	}
	return fmt.Sprintf("Level %d (best %d)  %d-note melodies  %s",
		snap.CurrentLevel, snap.MaxLevel, snap.MelodyLength, dots)
}

// levelWindow is how many level options are listed on each side of the
// level being played.
const levelWindow = 3

func renderLevelWindow(snap model.Snapshot) string {
	levels := snap.Levels
	if len(levels) == 0 {
		return ""
	}
	at := len(levels) - 1
	for i, opt := range levels {
		if opt.Level >= snap.Config.Level {
			at = i
			break
		}
	}
	from := max(at-levelWindow, 0)
	to := min(at+levelWindow+1, len(levels))
	rows := make([]string, 0, to-from)
	for _, opt := range levels[from:to] {
		style := neutralStyle
		switch {
		case opt.Level == snap.Config.Level:
			style = titleStyle
		case opt.Locked:
			style = lockedStyle
		}
		rows = append(rows, style.Render(opt.Label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderPiano(cfg model.LevelConfig, pressed map[model.Note]int) string {
	drawn := notes.KeysFor(cfg.Pool)
	keys := make([]string, 0, len(drawn))
	for _, n := range drawn {
		keys = append(keys, renderKey(n, cfg.InPool(n), pressed[n] > 0))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, keys...)
}

func renderKey(n model.Note, inPool, pressed bool) string {
	style := whiteKeyStyle
	switch {
	case pressed:
		style = pressedKeyStyle
	case !inPool:
		style = outOfPoolStyle
	case notes.IsAccidental(n):
		style = blackKeyStyle
	}
	key, _ := notes.KeyFor(n)
	return style.Render(string(n) + "\n" + strings.ToUpper(key))
}

func renderInput(snap model.Snapshot) string {
	if snap.Phase != model.AwaitingAnswer {
		return ""
	}
	if len(snap.Input) == 0 {
		return neutralStyle.Render("You: -")
	}
	parts := make([]string, len(snap.Input))
	for i, n := range snap.Input {
		parts[i] = string(n)
	}
	return neutralStyle.Render("You: " + strings.Join(parts, " "))
}

func feedbackStyle(kind model.FeedbackKind) lipgloss.Style {
	switch kind {
	case model.FeedbackCorrect:
		return correctStyle
	case model.FeedbackIncorrect:
		return incorrectStyle
	default:
		return neutralStyle
	}
}
