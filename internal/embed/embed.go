// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns query text into dense vectors for semantic search.
// TEI talks to a text-embeddings-inference server, OpenAI to any
// OpenAI-compatible /v1/embeddings endpoint, and Cached memoizes either.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/matsearch/pkg/types"
)

// ErrEmptyText is returned when asked to embed an empty string.
var ErrEmptyText = errors.New("text cannot be empty")

// Embedder produces a vector for one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Defaults applied by New.
const (
	DefaultModel     = "all-MiniLM-L6-v2"
	DefaultCacheSize = 1024
	defaultTimeout   = 30 * time.Second
)

// New builds the embedder selected by cfg.Provider wrapped in an LRU
// cache. An empty provider selects TEI.
func New(cfg types.EmbeddingConfig, logger *slog.Logger) (Embedder, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("no embedding host configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var inner Embedder
	switch cfg.Provider {
	case "", types.EmbeddingTEI:
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		inner = &TEI{
			Client:    &http.Client{Timeout: timeout},
			Host:      cfg.Host,
			APIKey:    cfg.APIKey,
			UserAgent: cfg.UserAgent,
		}
	case types.EmbeddingOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultModel
		}
		oa, err := NewOpenAI(cfg.Host, model, cfg.APIKey, logger)
		if err != nil {
			return nil, err
		}
		inner = oa
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	return NewCached(inner, size), nil
}
