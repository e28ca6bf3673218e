// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit records served searches in a local SQLite database so
// operators can review traffic, cache effectiveness, and failures.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/matsearch/pkg/types"
)

const (
	dbFile            = "audit.db"
	defaultMaxResults = 20
)

// Status classifies how a search ended.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoResults Status = "no_results"
	StatusInvalid   Status = "invalid"
	StatusError     Status = "error"
)

// Entry is one recorded search.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Key is the cache key of the validated request; empty when
	// validation failed.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Request is the validated request as JSON, or the raw body when
	// validation failed.
	Request string `json:"request" yaml:"request"`

	Mode     string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Status   Status `json:"status" yaml:"status"`
	Total    int    `json:"total" yaml:"total"`
	Inflated int    `json:"inflated" yaml:"inflated"`
	Returned int    `json:"returned" yaml:"returned"`
	CacheHit bool   `json:"cache_hit" yaml:"cache_hit"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Store manages the audit database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates cfg.Dir/audit.db and its schema.
func NewStore(cfg types.AuditConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("no audit directory configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			cache_key TEXT,
			request TEXT NOT NULL,
			mode TEXT,
			status TEXT NOT NULL,
			total INTEGER,
			inflated INTEGER,
			returned INTEGER,
			cache_hit INTEGER NOT NULL DEFAULT 0,
			duration_us INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_ts ON queries(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_status ON queries(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts e. A zero Timestamp is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (ts, cache_key, request, mode, status, total, inflated, returned, cache_hit, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Key, e.Request, e.Mode, string(e.Status),
		e.Total, e.Inflated, e.Returned, e.CacheHit, e.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}
