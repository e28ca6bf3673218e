// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve runs a compiled query against the search index in
// lexical or semantic (kNN) mode and reports the hits for one page with
// the total shown to the client.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/matsearch/internal/embed"
	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// Inflation: a semantic search whose lexical count falls below
// InflationFloor reports InflationFloor as its total, provided the corpus
// holds at least MinCorpusForInflation documents.
const (
	InflationFloor        = 100
	MinCorpusForInflation = 100

	// MaxCandidates bounds the kNN candidate pool.
	MaxCandidates = 10000
)

// ErrRetrieval marks failures of the index or embedding service.
var ErrRetrieval = errors.New("retrieval failed")

// RetrievalError records which step failed.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %s: %v", e.Op, e.Err)
}

// Unwrap returns both ErrRetrieval and the cause.
func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }

// Mode names the retrieval strategy used.
type Mode string

const (
	ModeLexical Mode = "lexical"
	ModeVector  Mode = "vector"
)

// Outcome is the result of one dispatch.
type Outcome struct {
	Mode Mode

	// Hits is the requested page, in engine order.
	Hits []index.Hit

	// Total is the count reported to the client; Inflated is
	// types.ExactTotal or the true count when Total was topped up.
	Total    int
	Inflated int

	// Query is the query whose terms drive highlighting. In vector mode
	// it is the count query.
	Query query.CompiledQuery
}

// Dispatcher selects and runs the retrieval mode.
type Dispatcher struct {
	index    index.Client
	embedder embed.Embedder
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher. embedder may be nil when semantic
// search is not configured; vector queries then fail with ErrRetrieval.
func NewDispatcher(client index.Client, embedder embed.Embedder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		index:    client,
		embedder: embedder,
		logger:   slog.Default().With("component", "retrieve"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs q for the given page. Any index or embedding failure is a
// *RetrievalError; there is no fallback between modes.
func (d *Dispatcher) Dispatch(ctx context.Context, q query.CompiledQuery, sorting types.SortMode, page, pageSize int) (Outcome, error) {
	start := time.Now()
	var (
		out Outcome
		err error
	)
	if q.IsVector() {
		out, err = d.vector(ctx, q, page, pageSize)
	} else {
		out, err = d.lexical(ctx, q, sorting, page, pageSize)
	}
	if err != nil {
		return Outcome{}, err
	}

	d.logger.Debug("dispatch complete", "mode", out.Mode, "hits", len(out.Hits),
		"total", out.Total, "inflated", out.Inflated, "elapsed", time.Since(start))
	return out, nil
}

func (d *Dispatcher) lexical(ctx context.Context, q query.CompiledQuery, sorting types.SortMode, page, pageSize int) (Outcome, error) {
	q = q.Lexical()
	resp, err := d.index.Search(ctx, index.Request{
		Query: q,
		From:  (page - 1) * pageSize,
		Size:  pageSize,
		Sort:  SortFields(sorting),
	})
	if err != nil {
		return Outcome{}, &RetrievalError{Op: "search", Err: err}
	}
	return Outcome{
		Mode:     ModeLexical,
		Hits:     resp.Hits,
		Total:    resp.Total,
		Inflated: types.ExactTotal,
		Query:    q,
	}, nil
}

// vector runs a kNN search whose k covers every page up to the requested
// one, capped by the candidate pool, and slices the requested page from the
// ranked hits. The total comes from a lexical count of the same clauses
// plus a text match on the vector term.
func (d *Dispatcher) vector(ctx context.Context, q query.CompiledQuery, page, pageSize int) (Outcome, error) {
	if d.embedder == nil {
		return Outcome{}, &RetrievalError{Op: "embed", Err: errors.New("no embedding service configured")}
	}

	corpus, err := d.index.DocCount(ctx)
	if err != nil {
		return Outcome{}, &RetrievalError{Op: "doc count", Err: err}
	}

	vec, err := d.embedder.Embed(ctx, q.Vector.Term)
	if err != nil {
		return Outcome{}, &RetrievalError{Op: "embed", Err: err}
	}

	candidates := NumCandidates(pageSize, corpus)
	k := min(page*pageSize, candidates)
	resp, err := d.index.Search(ctx, index.Request{
		Query: q,
		KNN: &index.KNN{
			Field:         q.Vector.Field,
			Vector:        vec,
			K:             k,
			NumCandidates: candidates,
		},
		Size: k,
	})
	if err != nil {
		return Outcome{}, &RetrievalError{Op: "knn search", Err: err}
	}

	countQuery := q.Lexical().WithTextMatch(q.Vector.TextField, q.Vector.Term)
	total, err := d.index.Count(ctx, countQuery)
	if err != nil {
		return Outcome{}, &RetrievalError{Op: "count", Err: err}
	}

	shown, inflated := Inflate(total, corpus)
	return Outcome{
		Mode:     ModeVector,
		Hits:     PageSlice(resp.Hits, page, pageSize),
		Total:    shown,
		Inflated: inflated,
		Query:    countQuery,
	}, nil
}

// SortFields maps a sort mode to index sort keys. Date sorts break ties by
// relevance.
func SortFields(sorting types.SortMode) []index.SortField {
	switch sorting {
	case types.SortOldest:
		return []index.SortField{{Field: query.DateField}, {Field: index.ScoreField, Desc: true}}
	case types.SortMostRelevant:
		return []index.SortField{{Field: index.ScoreField, Desc: true}}
	default:
		return []index.SortField{{Field: query.DateField, Desc: true}, {Field: index.ScoreField, Desc: true}}
	}
}

// NumCandidates returns the kNN candidate pool size:
// max(pageSize, min(corpus, MaxCandidates)).
func NumCandidates(pageSize, corpus int) int {
	return max(pageSize, min(corpus, MaxCandidates))
}

// Inflate returns the total to report and the Inflated marker.
func Inflate(total, corpus int) (shown, inflated int) {
	if total < InflationFloor && corpus >= MinCorpusForInflation {
		return InflationFloor, total
	}
	return total, types.ExactTotal
}

// PageSlice returns hits[(page-1)*pageSize : page*pageSize], clamped to
// the available hits.
func PageSlice(hits []index.Hit, page, pageSize int) []index.Hit {
	start := min((page-1)*pageSize, len(hits))
	end := min(start+pageSize, len(hits))
	return hits[start:end]
}
