// Package provenance records every export of a composition in a SQLite
// database under the project's metadata directory.
package provenance

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status is the lifecycle state of an export record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("provenance record not found")

// Record describes one export attempt.
type Record struct {
	ID            string     `json:"id"`
	CompositionID string     `json:"composition_id"`
	PlanHash      string     `json:"plan_hash"`
	ConfigHash    string     `json:"config_hash"`
	Output        string     `json:"output"`
	Preset        string     `json:"preset"`
	Sources       []string   `json:"sources"`
	DurationS     float64    `json:"duration_s"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Store persists export records.
type Store struct {
	conn   *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Records left running by a previous process are marked failed.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create provenance directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open provenance database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping provenance database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.markInterrupted(); err != nil {
		logger.Warn("mark interrupted exports", zap.Error(err))
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		s.logger.Debug("applied migration", zap.String("name", name))
	}
	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var exists int
	if err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists); err != nil {
		return false
	}
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *Store) markInterrupted() error {
	_, err := s.conn.Exec(
		`UPDATE exports SET status = ?, error = 'interrupted', finished_at = ? WHERE status = ?`,
		string(StatusFailed), formatTime(s.now()), string(StatusRunning))
	return err
}

// Begin inserts rec as running. An empty ID is filled in.
func (s *Store) Begin(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = StatusRunning
	rec.StartedAt = s.now().UTC()
	rec.FinishedAt = nil
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO exports (id, composition_id, plan_hash, config_hash, output, preset, sources, duration_s, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CompositionID, rec.PlanHash, rec.ConfigHash, rec.Output, rec.Preset,
		string(sources), rec.DurationS, string(rec.Status), formatTime(rec.StartedAt))
	if err != nil {
		return fmt.Errorf("insert export record: %w", err)
	}
	return nil
}

// Finish sets the terminal status of record id.
func (s *Store) Finish(ctx context.Context, id string, status Status, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE exports SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), msg, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("update export record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns record id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := selectColumns + ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query export records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestSuccess returns the newest succeeded record for output.
func (s *Store) LatestSuccess(ctx context.Context, output string) (Record, error) {
	row := s.conn.QueryRowContext(ctx,
		selectColumns+` WHERE output = ? AND status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		output, string(StatusSucceeded))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, output)
	}
	return rec, err
}

const selectColumns = `SELECT id, composition_id, plan_hash, config_hash, output, preset, sources, duration_s, status, error, started_at, finished_at FROM exports`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		sources  string
		status   string
		started  string
		finished sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.CompositionID, &rec.PlanHash, &rec.ConfigHash, &rec.Output,
		&rec.Preset, &sources, &rec.DurationS, &status, &rec.Error, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan export record: %w", err)
	}
	rec.Status = Status(status)
	if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
		return Record{}, fmt.Errorf("decode sources: %w", err)
	}
	if rec.StartedAt, err = parseTime(started); err != nil {
		return Record{}, err
	}
	if finished.Valid && finished.String != "" {
		t, err := parseTime(finished.String)
		if err != nil {
			return Record{}, err
		}
		rec.FinishedAt = &t
	}
	return rec, nil
}

// timeLayout has fixed-width fractions so stored values sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}
