// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index is the boundary to the external search engine that holds
// the paper corpus. Client is implemented by Elastic for production and by
// index/mock for tests.
package index

import (
	"context"
	"errors"

	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// ErrNotFound is returned by Client.Get for an unknown paper ID.
var ErrNotFound = errors.New("paper not found")

// ScoreField sorts by relevance score.
const ScoreField = "_score"

// SortField orders hits by one field.
type SortField struct {
	Field string
	Desc  bool
}

// KNN is a k-nearest-neighbor clause against an embedding field.
type KNN struct {
	Field         string
	Vector        []float32
	K             int
	NumCandidates int
}

// Request is one search call. When KNN is set the compiled query restricts
// the neighbor candidates instead of scoring documents.
type Request struct {
	Query query.CompiledQuery
	KNN   *KNN
	From  int
	Size  int
	Sort  []SortField
}

// Hit is one returned document.
type Hit struct {
	ID     string
	Score  float64
	Source types.PaperRecord
}

// PaperID returns the record's id field, falling back to the index
// document ID.
func (h Hit) PaperID() string {
	if id := h.Source.ID(); id != "" {
		return id
	}
	return h.ID
}

// Response holds the hits and the engine's total-hit estimate.
type Response struct {
	Hits  []Hit
	Total int
}

// Client is the search engine protocol the service consumes.
type Client interface {
	// Search runs a lexical or kNN search.
	Search(ctx context.Context, req Request) (Response, error)

	// Count returns the number of documents matching q lexically. The
	// semantic clause of q is ignored.
	Count(ctx context.Context, q query.CompiledQuery) (int, error)

	// DocCount returns the corpus size.
	DocCount(ctx context.Context) (int, error)

	// Get returns one paper by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (types.PaperRecord, error)
}
