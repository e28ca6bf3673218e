// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache memoizes search results under a key derived from the
// validated request. Store failures degrade to misses and are never
// returned to callers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/matsearch/pkg/types"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// DefaultTTL is the lifetime of a cached result.
const DefaultTTL = time.Hour

const keyPrefix = "papers_"

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DeriveKey builds the cache key for req. Equal requests give equal keys;
// requests that differ in any clause, in clause order, or in sorting,
// page, page size, or date bounds give different keys.
func DeriveKey(req types.SearchRequest) string {
	clauses := make([]string, 0, len(req.Clauses))
	for _, c := range req.Clauses {
		// SearchClause holds only strings and a bool; Marshal cannot fail.
		b, _ := json.Marshal(c)
		clauses = append(clauses, string(b))
	}

	parts := []string{
		"[" + strings.Join(clauses, ",") + "]",
		string(req.Sorting),
		strconv.Itoa(req.Page),
		strconv.Itoa(req.PageSize),
		strconv.Itoa(req.DateRange.Start),
		strconv.Itoa(req.DateRange.End),
	}
	return keyPrefix + strings.Join(parts, "_")
}

// Gateway reads and writes SearchResults through a Store.
type Gateway struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTTL sets the entry lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewGateway wraps store. A nil store yields a pass-through gateway that
// never hits.
func NewGateway(store Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get returns the cached result for key. Store errors and corrupt payloads
// are logged and reported as a miss.
func (g *Gateway) Get(ctx context.Context, key string) (types.SearchResult, bool) {
	if g == nil || g.store == nil {
		return types.SearchResult{}, false
	}

	data, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			g.logger.Warn("cache read failed", "key", key, "err", err)
		}
		return types.SearchResult{}, false
	}

	var result types.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		g.logger.Warn("cache payload corrupt", "key", key, "err", err)
		return types.SearchResult{}, false
	}
	return result, true
}

// Put stores result under key. Failures are logged and otherwise ignored.
func (g *Gateway) Put(ctx context.Context, key string, result types.SearchResult) {
	if g == nil || g.store == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		g.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := g.store.SetWithExpiry(ctx, key, data, g.ttl); err != nil {
		g.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
