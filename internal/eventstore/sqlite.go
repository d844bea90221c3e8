package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS build_events (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	at_ms    INTEGER NOT NULL,
	payload  BLOB
);
CREATE INDEX IF NOT EXISTS build_events_build ON build_events(build_id, seq);
`

// SQLiteStore is a Store backed by a single sqlite file.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the history database at dbPath.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" coherent and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores r. A zero At is stamped with the current time.
func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO build_events (build_id, kind, at_ms, payload) VALUES (?, ?, ?, ?)`,
		r.BuildID, r.Kind, at.UnixMilli(), []byte(r.Payload))
	if err != nil {
		return fmt.Errorf("append %s event: %w", r.Kind, err)
	}
	return nil
}

// Events returns the records of buildID in append order.
func (s *SQLiteStore) Events(ctx context.Context, buildID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, build_id, kind, at_ms, payload FROM build_events WHERE build_id = ? ORDER BY seq`,
		buildID)
	if err != nil {
		return nil, fmt.Errorf("query build %s: %w", buildID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var r Record
		var atMS int64
		var payload []byte
		if err := rows.Scan(&r.Seq, &r.BuildID, &r.Kind, &atMS, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.At = time.UnixMilli(atMS)
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recent returns the ids of the last n builds, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent(ctx, n)
}

func (s *SQLiteStore) recent(ctx context.Context, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id FROM build_events GROUP BY build_id ORDER BY MIN(seq) DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan build id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Prune keeps the newest keep builds and deletes the events of all others.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT build_id) FROM build_events`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count builds: %w", err)
	}
	if total <= keep {
		return 0, nil
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM build_events WHERE build_id NOT IN (
			SELECT build_id FROM build_events GROUP BY build_id ORDER BY MIN(seq) DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return total - keep, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
