// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/matsearch/internal/audit"
	"github.com/pdiddy/matsearch/internal/cache"
	"github.com/pdiddy/matsearch/internal/embed"
	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/results"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/internal/search"
	"github.com/pdiddy/matsearch/pkg/types"
)

// pipeline holds the assembled search service and the resources that must
// be released on exit.
type pipeline struct {
	svc     *search.Service
	closers []func() error
}

func (p *pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type buildOptions struct {
	noCache bool
}

// buildPipeline wires the index client, embedder, cache, audit log and
// highlighter into a search.Service.
func buildPipeline(c types.Config, bo buildOptions) (*pipeline, error) {
	logger := slog.Default()
	p := &pipeline{}

	client, err := index.NewElastic(c.Elastic, index.WithLogger(logger.With("component", "elastic")))
	if err != nil {
		return nil, err
	}

	var emb embed.Embedder
	if c.Embedding.Host != "" {
		emb, err = embed.New(c.Embedding, logger.With("component", "embed"))
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no embedding host configured; semantic search disabled")
	}
	dispatcher := retrieve.NewDispatcher(client, emb, retrieve.WithLogger(logger.With("component", "retrieve")))

	proc, err := results.NewProcessor(c.Highlight.Workers,
		results.WithThreshold(c.Highlight.Threshold),
		results.WithLogger(logger.With("component", "results")),
	)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, func() error { proc.Release(); return nil })

	opts := []search.Option{search.WithLogger(logger.With("component", "search"))}

	if !bo.noCache {
		store, closeStore, err := openCacheStore(c.Cache, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		if store != nil {
			p.closers = append(p.closers, closeStore)
			opts = append(opts, search.WithCache(cache.NewGateway(store,
				cache.WithTTL(c.Cache.TTL),
				cache.WithLogger(logger.With("component", "cache")),
			)))
		}
	}

	if c.Audit.Enabled {
		rec, err := audit.NewStore(c.Audit)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, rec.Close)
		opts = append(opts, search.WithRecorder(rec))
	}

	p.svc = search.NewService(client, dispatcher, proc, opts...)
	return p, nil
}

// openCacheStore returns the configured store, or nil for "none".
func openCacheStore(c types.CacheConfig, logger *slog.Logger) (cache.Store, func() error, error) {
	switch c.Backend {
	case types.CacheRedis:
		s := cache.NewRedisStore(c)
		return s, s.Close, nil
	case types.CacheBadger:
		s, err := cache.OpenBadgerStore(c.BadgerDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case types.CacheNone, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q: use redis, badger or none", c.Backend)
	}
}
