// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results turns retrieval outcomes into the client-facing payload:
// internal fields are stripped, semantic hits get accuracy scores, and
// query terms are highlighted in the text fields.
package results

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/matsearch/internal/highlight"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/pkg/types"
)

// Processor post-processes retrieval outcomes. It is safe for concurrent
// use; records are highlighted on a shared worker pool.
type Processor struct {
	pool      *ants.Pool
	threshold int
	fields    []string
	logger    *slog.Logger

	// mark is replaceable in tests to exercise failure isolation.
	mark func(types.PaperRecord, map[string][]string, []string, int) types.PaperRecord
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithThreshold sets the highlight similarity threshold (0-100).
func WithThreshold(threshold int) Option {
	return func(p *Processor) {
		if threshold > 0 {
			p.threshold = threshold
		}
	}
}

// WithFields overrides the highlightable fields.
func WithFields(fields []string) Option {
	return func(p *Processor) {
		if len(fields) > 0 {
			p.fields = fields
		}
	}
}

// NewProcessor creates a Processor with a pool of workers goroutines. A
// non-positive workers uses GOMAXPROCS.
func NewProcessor(workers int, opts ...Option) (*Processor, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating highlight pool: %w", err)
	}

	p := &Processor{
		pool:      pool,
		threshold: highlight.DefaultThreshold,
		fields:    query.HighlightFields,
		logger:    slog.Default().With("component", "results"),
		mark:      highlight.Apply,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Release stops the worker pool.
func (p *Processor) Release() {
	p.pool.Release()
}

// Process builds the SearchResult for out. The outcome is not modified.
func (p *Processor) Process(out retrieve.Outcome) types.SearchResult {
	result := types.SearchResult{
		Papers:   make([]types.PaperRecord, len(out.Hits)),
		Total:    out.Total,
		Inflated: out.Inflated,
		Accuracy: map[string]float64{},
	}

	if out.Mode == retrieve.ModeVector {
		for _, h := range out.Hits {
			result.Accuracy[h.PaperID()] = h.Score
		}
	}

	terms := out.Query.HighlightTerms()
	var wg sync.WaitGroup
	for i, h := range out.Hits {
		task := func() {
			defer wg.Done()
			result.Papers[i] = p.record(h.Source, terms)
		}
		wg.Add(1)
		if err := p.pool.Submit(task); err != nil {
			p.logger.Warn("highlight pool unavailable, running inline", "err", err)
			task()
		}
	}
	wg.Wait()

	return result
}

// record strips and highlights one record. A highlighting panic yields the
// stripped record without markup.
func (p *Processor) record(src types.PaperRecord, terms map[string][]string) (rec types.PaperRecord) {
	stripped := src.StripInternal()
	if len(terms) == 0 {
		return stripped
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("highlighting failed, returning unmarked record",
				"paper_id", stripped.ID(), "panic", r)
			rec = stripped
		}
	}()
	return p.mark(stripped, terms, p.fields, p.threshold)
}
