// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuimelody/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for progress and round history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS progress (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			played_at TEXT NOT NULL,
			level INTEGER NOT NULL,
			melody_length INTEGER NOT NULL,
			challenge INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			melody TEXT NOT NULL,
			answer TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_played_at ON rounds(played_at);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_level ON rounds(level);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetInt returns the integer stored under key. ok is false when absent.
func (s *Store) GetInt(ctx context.Context, key string) (int, bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM progress WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// SetInt stores value under key.
func (s *Store) SetInt(ctx context.Context, key string, value int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// InsertRound stores a scored round.
func (s *Store) InsertRound(ctx context.Context, round model.RoundStats) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (session_id, played_at, level, melody_length, challenge, correct, melody, answer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		round.SessionID,
		round.PlayedAt.Format(time.RFC3339Nano),
		round.Level,
		round.MelodyLength,
		boolInt(round.Challenge),
		boolInt(round.Correct),
		joinNotes(round.Melody),
		joinNotes(round.Answer),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRounds returns rounds filtered by stats config, oldest first.
func (s *Store) ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundStats, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "played_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT session_id, played_at, level, melody_length, challenge, correct, melody, answer
		FROM rounds
		WHERE %s
		ORDER BY played_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var rounds []model.RoundStats
	for rows.Next() {
		var (
			r                  model.RoundStats
			playedAt           string
			challenge, correct int
			melody, answer     string
		)
		if err := rows.Scan(&r.SessionID, &playedAt, &r.Level, &r.MelodyLength, &challenge, &correct, &melody, &answer); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, playedAt)
		if err != nil {
			return nil, err
		}
		r.PlayedAt = parsed
		r.Challenge = challenge != 0
		r.Correct = correct != 0
		r.Melody = splitNotes(melody)
		r.Answer = splitNotes(answer)
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

// ListLevelAggregates sums correct and incorrect rounds per level.
func (s *Store) ListLevelAggregates(ctx context.Context, since *time.Time) ([]model.LevelAggregate, error) {
	query := `SELECT level, SUM(correct) AS correct, SUM(1 - correct) AS incorrect
		FROM rounds
		WHERE (? = '' OR played_at >= ?)
		GROUP BY level
		ORDER BY level ASC`
	sinceArg := ""
	if since != nil {
		sinceArg = since.Format(time.RFC3339Nano)
	}
	rows, err := s.db.QueryContext(ctx, query, sinceArg, sinceArg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LevelAggregate
	for rows.Next() {
		var agg model.LevelAggregate
		if err := rows.Scan(&agg.Level, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinNotes(m model.Melody) string {
	return strings.Join(m.Strings(), " ")
}

func splitNotes(s string) model.Melody {
	fields := strings.Fields(s)
	out := make(model.Melody, len(fields))
	for i, f := range fields {
		out[i] = model.Note(f)
	}
	return out
}
