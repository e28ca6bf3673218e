// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mock provides a deterministic embed.Embedder for tests.
package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/pdiddy/matsearch/internal/embed"
)

// Dimension is the length of generated vectors.
const Dimension = 8

// Embedder derives a vector from an FNV hash of the text and counts calls.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	Texts []string
}

var _ embed.Embedder = (*Embedder)(nil)

// Embed implements embed.Embedder.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Texts = append(e.Texts, text)
	if e.Err != nil {
		return nil, e.Err
	}
	if text == "" {
		return nil, embed.ErrEmptyText
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, Dimension)
	for i := range v {
		v[i] = float32((seed>>(i*8))&0xff) / 255
	}
	return v, nil
}

// Calls returns how many times Embed was invoked.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Texts)
}
