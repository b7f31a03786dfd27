// Package main provides the CLI entrypoint for tuimelody.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/tuimelody/internal/audio"
	"github.com/verte-zerg/tuimelody/internal/audio/speaker"
	"github.com/verte-zerg/tuimelody/internal/catalog"
	"github.com/verte-zerg/tuimelody/internal/config"
	"github.com/verte-zerg/tuimelody/internal/generator"
	"github.com/verte-zerg/tuimelody/internal/logging"
	"github.com/verte-zerg/tuimelody/internal/model"
	"github.com/verte-zerg/tuimelody/internal/progress"
	"github.com/verte-zerg/tuimelody/internal/schedule"
	"github.com/verte-zerg/tuimelody/internal/session"
	"github.com/verte-zerg/tuimelody/internal/stats"
	"github.com/verte-zerg/tuimelody/internal/store"
	"github.com/verte-zerg/tuimelody/internal/tui"
)

const (
	defaultSuccessDelayMs = 1500
	defaultFailureDelayMs = 2500
	defaultCurveWindow    = 20
	defaultLevelsTo       = 100
	terminalWidthBackup   = 80
)

var (
	playAutoPlay       bool
	playAudio          bool
	playVolume         float64
	playSuccessDelayMs int
	playFailureDelayMs int
	playLogLevel       string

	levelsFrom int
	levelsTo   int

	statsSince       string
	statsLast        int
	statsCurveWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuimelody",
		Short:         "TUI melodic ear trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().BoolVar(&playAutoPlay, "autoplay", false, "play each new melody automatically")
	rootCmd.Flags().BoolVar(&playAudio, "audio", true, "enable sound output")
	rootCmd.Flags().Float64Var(&playVolume, "volume", audio.DefaultVolume, "output volume (0-1)")
	rootCmd.Flags().IntVar(&playSuccessDelayMs, "success-delay", defaultSuccessDelayMs, "pause after a correct answer (ms)")
	rootCmd.Flags().IntVar(&playFailureDelayMs, "failure-delay", defaultFailureDelayMs, "pause after a wrong answer (ms)")
	rootCmd.Flags().StringVar(&playLogLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLevelsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyBoolConfig(cmd, "autoplay", &playAutoPlay, fileCfg.Game.AutoPlay)
	applyIntConfig(cmd, "success-delay", &playSuccessDelayMs, fileCfg.Game.SuccessDelayMs)
	applyIntConfig(cmd, "failure-delay", &playFailureDelayMs, fileCfg.Game.FailureDelayMs)
	applyBoolConfig(cmd, "audio", &playAudio, fileCfg.Audio.Enabled)
	applyFloatConfig(cmd, "volume", &playVolume, fileCfg.Audio.Volume)
	applyStringConfig(cmd, "log-level", &playLogLevel, fileCfg.Log.Level)

	cfg := model.Config{
		AutoPlay:     playAutoPlay,
		Audio:        playAudio,
		Volume:       playVolume,
		SuccessDelay: time.Duration(playSuccessDelayMs) * time.Millisecond,
		FailureDelay: time.Duration(playFailureDelayMs) * time.Millisecond,
		LogLevel:     playLogLevel,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logPath := config.DefaultLogPath()
	if fileCfg.Log.Path != nil && *fileCfg.Log.Path != "" {
		logPath = *fileCfg.Log.Path
	}
	logger, err := logging.New(logPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		if serr := logger.Sync(); serr != nil {
			// Best-effort flush.
			_ = serr
		}
	}()

	deps := session.Deps{
		Melodies:  generator.New(logger),
		Log:       logger,
		SessionID: uuid.NewString(),
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Warn("progress will not be saved", zap.Error(err))
		logErrf("failed to open db, progress will not be saved: %v\n", err)
		deps.Progress = progress.New(progress.NewMemory(), logger)
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		deps.Progress = progress.New(st, logger)
		deps.Recorder = st
	}

	deps.Audio = openAudio(cfg, logger)

	var program *tea.Program
	deps.Scheduler = schedule.NewDispatcher(tui.Poster(func() *tea.Program { return program }))

	sess := session.New(deps, session.Options{
		AutoPlay:     cfg.AutoPlay,
		SuccessDelay: cfg.SuccessDelay,
		FailureDelay: cfg.FailureDelay,
	})
	defer sess.Close()

	program = tea.NewProgram(tui.NewModel(sess), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func openAudio(cfg model.Config, logger *zap.Logger) audio.Emitter {
	if !cfg.Audio {
		logger.Info("audio disabled")
		return audio.Silent{}
	}
	out, err := speaker.NewOto(cfg.Volume)
	if err != nil {
		logger.Warn("audio unavailable", zap.Error(err))
		return audio.Silent{}
	}
	return out
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLevelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "List levels with melody length, tempo and notes",
		Args:  cobra.NoArgs,
		RunE:  runLevelsCmd,
	}
	cmd.Flags().IntVar(&levelsFrom, "from", 1, "first level")
	cmd.Flags().IntVar(&levelsTo, "to", defaultLevelsTo, "last level")
	return cmd
}

func runLevelsCmd(cmd *cobra.Command, _ []string) error {
	if levelsFrom < 1 {
		return fmt.Errorf("--from must be >= 1")
	}
	if levelsTo < levelsFrom {
		return fmt.Errorf("--to must be >= --from")
	}
	return writeLevels(cmd.OutOrStdout(), levelsFrom, levelsTo, terminalWidth())
}

func writeLevels(w io.Writer, from, to, width int) error {
	for level := from; level <= to; level++ {
		cfg := catalog.For(level)
		line := fmt.Sprintf("%-40s %d notes %4dms  %s",
			cfg.Name, cfg.MelodyLength, cfg.Tempo, strings.Join(model.Melody(cfg.Pool).Strings(), " "))
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show round history stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rounds")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}

	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return report.Render(cmd.OutOrStdout(), terminalWidth()-20)
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Go back to level 1, keeping the best level reached",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return resetProgress(cmd.Context(), cmd.OutOrStdout(), st)
}

func resetProgress(ctx context.Context, w io.Writer, backend progress.Persistence) error {
	ps := progress.New(backend, nil)
	p := ps.Load(ctx)
	p.CurrentLevel = 1
	ps.Save(ctx, p)
	if _, err := fmt.Fprintf(w, "Progress reset to level 1 (best level %d kept).\n", p.MaxLevel); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuimelody configuration
# Uncomment a value to enable it. CLI flags override config values.

[game]
# autoplay = false            # Play each new melody automatically
# success-delay-ms = %d     # Pause after a correct answer
# failure-delay-ms = %d     # Pause after a wrong answer

[audio]
# enabled = true              # Sound output
# volume = %.1f               # Output volume (0-1)

[log]
# level = %q              # debug, info, warn or error
# path = %q
`,
		defaultSuccessDelayMs,
		defaultFailureDelayMs,
		audio.DefaultVolume,
		logging.DefaultLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return fmt.Errorf("--volume must be between 0 and 1")
	}
	if cfg.SuccessDelay <= 0 {
		return fmt.Errorf("--success-delay must be > 0")
	}
	if cfg.FailureDelay <= 0 {
		return fmt.Errorf("--failure-delay must be > 0")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
