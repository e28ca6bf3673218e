// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs the paper search pipeline: validate the request,
// consult the result cache, compile and dispatch the query, post-process
// the hits, and record the outcome.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/matsearch/internal/audit"
	"github.com/pdiddy/matsearch/internal/cache"
	"github.com/pdiddy/matsearch/internal/highlight"
	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/paperid"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/results"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/pkg/types"
)

// ErrNoResults is returned when a search matches no papers. Empty results
// are not cached.
var ErrNoResults = errors.New("no results found")

// Recorder receives one audit entry per search.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Service is the search pipeline. It is safe for concurrent use.
type Service struct {
	index      index.Client
	dispatcher *retrieve.Dispatcher
	processor  *results.Processor
	cache      *cache.Gateway
	recorder   Recorder
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache sets the result cache. Without one every search hits the
// index.
func WithCache(g *cache.Gateway) Option {
	return func(s *Service) { s.cache = g }
}

// WithRecorder sets the audit recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the clock used for the default date range.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService assembles the pipeline.
func NewService(client index.Client, dispatcher *retrieve.Dispatcher, processor *results.Processor, opts ...Option) *Service {
	s := &Service{
		index:      client,
		dispatcher: dispatcher,
		processor:  processor,
		now:        time.Now,
		logger:     slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates raw and runs it. Errors wrap query.ErrInvalidRequest,
// retrieve.ErrRetrieval, or ErrNoResults.
func (s *Service) Search(ctx context.Context, raw query.RawRequest) (types.SearchResult, error) {
	req, err := query.Validate(raw, s.now())
	if err != nil {
		body, _ := json.Marshal(raw)
		s.record(ctx, audit.Entry{Request: string(body), Status: audit.StatusInvalid})
		return types.SearchResult{}, err
	}
	return s.Run(ctx, req)
}

// Run executes a validated request through the cache.
func (s *Service) Run(ctx context.Context, req types.SearchRequest) (types.SearchResult, error) {
	start := time.Now()
	key := cache.DeriveKey(req)
	body, _ := json.Marshal(req)
	entry := audit.Entry{Key: key, Request: string(body)}

	if cached, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug("cache hit", "key", key)
		entry.Status = audit.StatusOK
		entry.CacheHit = true
		entry.Total, entry.Inflated, entry.Returned = cached.Total, cached.Inflated, len(cached.Papers)
		entry.Duration = time.Since(start)
		s.record(ctx, entry)
		return cached, nil
	}

	result, mode, err := s.execute(ctx, req)
	entry.Mode = string(mode)
	entry.Duration = time.Since(start)
	switch {
	case errors.Is(err, ErrNoResults):
		entry.Status = audit.StatusNoResults
		s.record(ctx, entry)
		return types.SearchResult{}, err
	case errors.Is(err, query.ErrInvalidRequest):
		entry.Status = audit.StatusInvalid
		s.record(ctx, entry)
		return types.SearchResult{}, err
	case err != nil:
		entry.Status = audit.StatusError
		s.record(ctx, entry)
		s.logger.Error("search failed", "key", key, "err", err)
		return types.SearchResult{}, err
	}

	s.cache.Put(ctx, key, result)

	entry.Status = audit.StatusOK
	entry.Total, entry.Inflated, entry.Returned = result.Total, result.Inflated, len(result.Papers)
	s.record(ctx, entry)
	s.logger.Info("search served", "mode", mode, "returned", len(result.Papers),
		"total", result.Total, "elapsed", entry.Duration)
	return result, nil
}

func (s *Service) execute(ctx context.Context, req types.SearchRequest) (types.SearchResult, retrieve.Mode, error) {
	compiled, err := query.Compile(req.Clauses, req.DateRange, req.Sorting)
	if err != nil {
		return types.SearchResult{}, "", err
	}

	outcome, err := s.dispatcher.Dispatch(ctx, compiled, req.Sorting, req.Page, req.PageSize)
	if err != nil {
		return types.SearchResult{}, "", err
	}
	if len(outcome.Hits) == 0 {
		return types.SearchResult{}, outcome.Mode, ErrNoResults
	}

	return s.processor.Process(outcome), outcome.Mode, nil
}

// Paper returns one paper without its internal fields. id may be an
// arXiv identifier in any of the forms paperid accepts. Unknown IDs wrap
// index.ErrNotFound.
func (s *Service) Paper(ctx context.Context, id string) (types.PaperRecord, error) {
	id = paperid.ID(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty paper id", index.ErrNotFound)
	}
	rec, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.StripInternal(), nil
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.recorder == nil {
		return
	}
	e.Timestamp = s.now()
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("audit record failed", "err", err)
	}
}

// FormatTable writes a page of results as a human-readable table to w.
// Highlight markers are removed.
func FormatTable(result types.SearchResult, w io.Writer) {
	if len(result.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-8s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Date", "Score", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 116))

	for i, p := range result.Papers {
		title := truncate(unmark(p.Title()), 60)
		authors := formatAuthors(p.Authors())
		date := ""
		if d := p.Date(); d > 0 {
			date = fmt.Sprintf("%08d", d)
		}
		score := ""
		if acc, ok := result.Accuracy[p.ID()]; ok {
			score = fmt.Sprintf("%.3f", acc)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-8s  %-6s  %s\n",
			i+1, title, authors, date, score, p.ID())
	}

	fmt.Fprintf(w, "\n%d of %d results", len(result.Papers), result.Total)
	if result.IsInflated() {
		fmt.Fprintf(w, " (%d exact matches)", result.Inflated)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the result as indented JSON to w.
func FormatJSON(result types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var markReplacer = strings.NewReplacer(highlight.OpenTag, "", highlight.CloseTag, "")

func unmark(s string) string {
	return markReplacer.Replace(s)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(unmark(authors[0]), 20)
	default:
		return truncate(unmark(authors[0]), 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
