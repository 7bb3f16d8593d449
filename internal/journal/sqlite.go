// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS handoff_outcomes (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	page_id     TEXT NOT NULL DEFAULT '',
	platform    TEXT NOT NULL,
	state       TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS handoff_outcome_counts (
	platform TEXT NOT NULL,
	state    TEXT NOT NULL,
	n        INTEGER NOT NULL,
	PRIMARY KEY (platform, state)
);`

// SQLiteConfig defines SQLite operational parameters.
type SQLiteConfig struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
	// Retain bounds the rows kept in handoff_outcomes.
	Retain int
}

// SQLiteStore persists outcomes in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	retain int
}

// OpenSQLite opens the database with WAL mode and busy_timeout applied to
// every pooled connection and creates the schema.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.Retain <= 0 {
		cfg.Retain = DefaultCapacity
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg.Path, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db, retain: cfg.Retain}, nil
}

// sqliteDSN builds a file: URI for path. The path is percent-encoded so that
// '?', '#' and '%' in it are not taken as URI syntax. modernc.org/sqlite
// applies the _pragma parameters to each new connection.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	u := url.URL{
		Scheme:   "file",
		Path:     path,
		OmitHost: true,
		RawQuery: fmt.Sprintf("_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
			busyTimeout.Milliseconds()),
	}
	return u.String()
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO handoff_outcomes (id, page_id, platform, state, reason, started_at, finished_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PageID, e.Platform, e.State, e.Reason,
		e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.DurationMS, e.Error,
	); err != nil {
		return fmt.Errorf("sqlite: insert outcome: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO handoff_outcome_counts (platform, state, n) VALUES (?, ?, 1)
		 ON CONFLICT (platform, state) DO UPDATE SET n = n + 1`,
		e.Platform, e.State,
	); err != nil {
		return fmt.Errorf("sqlite: count outcome: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM handoff_outcomes WHERE seq <= (SELECT MAX(seq) FROM handoff_outcomes) - ?`,
		s.retain,
	); err != nil {
		return fmt.Errorf("sqlite: prune: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.retain
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, platform, state, reason, started_at, finished_at, duration_ms, error
		 FROM handoff_outcomes ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished int64
		)
		if err := rows.Scan(&e.ID, &e.PageID, &e.Platform, &e.State, &e.Reason,
			&started, &finished, &e.DurationMS, &e.Error); err != nil {
			return nil, fmt.Errorf("sqlite: scan outcome: %w", err)
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform, state, n FROM handoff_outcome_counts`)
	if err != nil {
		return Summary{}, fmt.Errorf("sqlite: query counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sum := newSummary()
	for rows.Next() {
		var (
			platform, state string
			n               int64
		)
		if err := rows.Scan(&platform, &state, &n); err != nil {
			return Summary{}, fmt.Errorf("sqlite: scan count: %w", err)
		}
		sum.add(platform, state, n)
	}
	return sum, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
