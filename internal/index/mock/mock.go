// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mock provides a scripted index.Client for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// Client returns canned responses and records every call.
type Client struct {
	mu sync.Mutex

	// Hits are returned by Search, windowed by From/Size for lexical
	// requests and truncated to K for kNN requests.
	Hits []index.Hit

	// Total is the engine-reported total. Zero means len(Hits).
	Total int

	// CountResult is returned by Count.
	CountResult int

	// Docs is the corpus size returned by DocCount.
	Docs int

	// Papers backs Get.
	Papers map[string]types.PaperRecord

	SearchErr   error
	CountErr    error
	DocCountErr error
	GetErr      error

	Searches []index.Request
	Counts   []query.CompiledQuery
	DocCalls int
	Gets     []string
}

var _ index.Client = (*Client)(nil)

// Search implements index.Client.
func (c *Client) Search(_ context.Context, req index.Request) (index.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Searches = append(c.Searches, req)
	if c.SearchErr != nil {
		return index.Response{}, c.SearchErr
	}

	total := c.Total
	if total == 0 {
		total = len(c.Hits)
	}

	var hits []index.Hit
	if req.KNN != nil {
		hits = c.Hits[:min(req.KNN.K, len(c.Hits))]
	} else {
		start := min(req.From, len(c.Hits))
		end := min(start+req.Size, len(c.Hits))
		hits = c.Hits[start:end]
	}
	return index.Response{Hits: append([]index.Hit(nil), hits...), Total: total}, nil
}

// Count implements index.Client.
func (c *Client) Count(_ context.Context, q query.CompiledQuery) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Counts = append(c.Counts, q)
	if c.CountErr != nil {
		return 0, c.CountErr
	}
	return c.CountResult, nil
}

// DocCount implements index.Client.
func (c *Client) DocCount(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DocCalls++
	if c.DocCountErr != nil {
		return 0, c.DocCountErr
	}
	return c.Docs, nil
}

// Get implements index.Client.
func (c *Client) Get(_ context.Context, id string) (types.PaperRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets = append(c.Gets, id)
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	p, ok := c.Papers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", index.ErrNotFound, id)
	}
	return p, nil
}

// Calls returns the total number of engine calls.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Searches) + len(c.Counts) + c.DocCalls + len(c.Gets)
}

// NewHits builds n hits with ids "p-0".."p-(n-1)", descending scores and
// the given title.
func NewHits(n int, title string) []index.Hit {
	hits := make([]index.Hit, n)
	for i := range hits {
		id := fmt.Sprintf("p-%d", i)
		hits[i] = index.Hit{
			ID:    id,
			Score: float64(n - i),
			Source: types.PaperRecord{
				"id":                        id,
				"title":                     title,
				"summary":                   title,
				"date":                      float64(20240101 + i),
				types.SummaryEmbeddingField: []any{0.1, 0.2},
			},
		}
	}
	return hits
}
