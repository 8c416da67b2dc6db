// Package calllog keeps one SQLite row per generation backend call.
package calllog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"signature-card-studio/internal/gemini"
)

const schemaVersion = 1

const queueSize = 256

// Entry is one recorded call.
type Entry struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Model      string    `json:"model"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary aggregates calls of one kind.
type Summary struct {
	Kind      string  `json:"kind"`
	Calls     int     `json:"calls"`
	Failures  int     `json:"failures"`
	AvgMillis float64 `json:"avg_ms"`
}

// Log writes calls asynchronously. RecordCall never blocks; calls are
// dropped when the queue is full.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	wg     sync.WaitGroup
}

// Open creates or migrates the database at path.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create call log directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open call log: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	l := &Log{
		db:     db,
		logger: logger,
		now:    time.Now,
		queue:  make(chan Entry, queueSize),
	}
	l.wg.Add(1)
	go l.writer()
	return l, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS calls (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  kind        TEXT NOT NULL,
		  model       TEXT NOT NULL,
		  duration_ms INTEGER NOT NULL,
		  error       TEXT,
		  created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_calls_created
		ON calls(created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// RecordCall implements gemini.CallRecorder.
func (l *Log) RecordCall(_ context.Context, call gemini.Call) {
	e := Entry{
		Kind:       string(call.Kind),
		Model:      call.Model,
		DurationMS: call.Duration.Milliseconds(),
		CreatedAt:  l.now(),
	}
	if call.Err != nil {
		e.Error = call.Err.Error()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("call log queue full, dropping entry", "kind", e.Kind)
	}
}

func (l *Log) writer() {
	defer l.wg.Done()
	for e := range l.queue {
		if err := l.insert(e); err != nil {
			l.logger.Error("call log insert failed", "error", err)
		}
	}
}

func (l *Log) insert(e Entry) error {
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	_, err := l.db.Exec(
		`INSERT INTO calls (kind, model, duration_ms, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Kind, e.Model, e.DurationMS, errText, e.CreatedAt.UnixMilli(),
	)
	return err
}

// Recent returns up to limit calls, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, kind, model, duration_ms, error, created_at FROM calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			errText sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Model, &e.DurationMS, &errText, &created); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		e.Error = errText.String
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summarize groups all calls by kind.
func (l *Log) Summarize(ctx context.Context) ([]Summary, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), SUM(CASE WHEN error IS NULL THEN 0 ELSE 1 END), AVG(duration_ms)
		FROM calls GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("summarize calls: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Kind, &s.Calls, &s.Failures, &s.AvgMillis); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close flushes queued calls and closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	l.wg.Wait()
	return l.db.Close()
}
