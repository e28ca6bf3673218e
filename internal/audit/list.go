// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ListOptions filters List results.
type ListOptions struct {
	// Contains matches a substring of the request JSON.
	Contains string

	// Status filters by outcome.
	Status Status

	// Mode filters by retrieval mode ("lexical" or "vector").
	Mode string

	// Since drops entries older than this time.
	Since time.Time

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// List returns recorded entries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, ts, cache_key, request, mode, status, total, inflated, returned, cache_hit, duration_us
		FROM queries WHERE 1=1`)

	if opts.Contains != "" {
		qb.WriteString(` AND instr(request, ?) > 0`)
		args = append(args, opts.Contains)
	}
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Mode != "" {
		qb.WriteString(` AND mode = ?`)
		args = append(args, opts.Mode)
	}
	if !opts.Since.IsZero() {
		qb.WriteString(` AND ts >= ?`)
		args = append(args, opts.Since.UTC().Format(time.RFC3339Nano))
	}

	qb.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			ts       string
			key      sql.NullString
			mode     sql.NullString
			status   string
			total    sql.NullInt64
			inflated sql.NullInt64
			returned sql.NullInt64
			micros   sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &ts, &key, &e.Request, &mode, &status,
			&total, &inflated, &returned, &e.CacheHit, &micros); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Key = key.String
		e.Mode = mode.String
		e.Status = Status(status)
		e.Total = int(total.Int64)
		e.Inflated = int(inflated.Int64)
		e.Returned = int(returned.Int64)
		e.Duration = time.Duration(micros.Int64) * time.Microsecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats summarizes the audit log.
type Stats struct {
	Queries   int `json:"queries" yaml:"queries"`
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`
	NoResults int `json:"no_results" yaml:"no_results"`
	Invalid   int `json:"invalid" yaml:"invalid"`
	Errors    int `json:"errors" yaml:"errors"`
	Vector    int `json:"vector" yaml:"vector"`
}

// Stats returns aggregate counts over every entry.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
			coalesce(sum(cache_hit), 0),
			coalesce(sum(status = ?), 0),
			coalesce(sum(status = ?), 0),
			coalesce(sum(status = ?), 0),
			coalesce(sum(mode = 'vector'), 0)
		FROM queries`,
		string(StatusNoResults), string(StatusInvalid), string(StatusError),
	).Scan(&st.Queries, &st.CacheHits, &st.NoResults, &st.Invalid, &st.Errors, &st.Vector)
	if err != nil {
		return Stats{}, fmt.Errorf("computing audit stats: %w", err)
	}
	return st, nil
}
