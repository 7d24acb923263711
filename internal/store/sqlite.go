package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
)

// SQLiteStore implements KV using SQLite. It also persists authoritative
// solution snapshots per hole.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithQuota caps the total size of stored values in bytes. Zero disables
// the cap.
func WithQuota(bytes int64) Option {
	return func(s *SQLiteStore) { s.quota = bytes }
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS solutions (
		hole       TEXT NOT NULL,
		lang       TEXT NOT NULL,
		metric     INTEGER NOT NULL,
		code       TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (hole, lang, metric)
	);
	CREATE INDEX IF NOT EXISTS idx_solutions_hole ON solutions(hole);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(length(CAST(value AS BLOB))), 0) FROM kv WHERE key != ?`, key).Scan(&used)
		if err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if used+int64(len(value)) > s.quota {
			return fmt.Errorf("set %s: %w", key, ErrStorageFull)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Entries returns every pair whose key starts with prefix, ordered by key.
func (s *SQLiteStore) Entries(ctx context.Context, prefix string) ([]Entry, error) {
	query := `SELECT key, value FROM kv WHERE key >= ?`
	args := []any{prefix}
	if end, ok := prefixEnd(prefix); ok {
		query += ` AND key < ?`
		args = append(args, end)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY key`, args...)
	if err != nil {
		return nil, fmt.Errorf("entries %s: %w", prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix. It reports false when no such bound exists.
func prefixEnd(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// LoadSnapshot returns the persisted authoritative solutions for hole. The
// boolean is false when nothing has been saved for the hole yet.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, hole string) (model.Snapshot, bool, error) {
	snap := model.NewSnapshot()

	rows, err := s.db.QueryContext(ctx,
		`SELECT lang, metric, code FROM solutions WHERE hole = ?`, hole)
	if err != nil {
		return snap, false, err
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var lang, code string
		var idx int
		if err := rows.Scan(&lang, &idx, &code); err != nil {
			return snap, false, err
		}
		m, err := metric.Parse(fmt.Sprint(idx))
		if err != nil {
			continue
		}
		snap.Get(m)[lang] = code
		found = true
	}
	return snap, found, rows.Err()
}

// SaveSnapshot replaces the persisted solutions for hole.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, hole string, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM solutions WHERE hole = ?`, hole); err != nil {
		return fmt.Errorf("clear solutions: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range metric.All {
		for lang, code := range snap.Get(m) {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO solutions (hole, lang, metric, code, updated_at) VALUES (?, ?, ?, ?, ?)`,
				hole, lang, m.Index(), code, now)
			if err != nil {
				return fmt.Errorf("insert solution: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
