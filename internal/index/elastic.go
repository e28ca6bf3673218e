// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pdiddy/matsearch/internal/httputil"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

const defaultMaxRetries = 3

// Elastic implements Client against an Elasticsearch cluster.
type Elastic struct {
	es         *elasticsearch.Client
	index      string
	paperIndex string
	timeout    time.Duration
	logger     *slog.Logger
}

var _ Client = (*Elastic)(nil)

// Option configures an Elastic client.
type Option func(*Elastic)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Elastic) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewElastic creates a client for cfg.Index. Transient 429/5xx responses
// are retried by the transport using httputil.Backoff.
func NewElastic(cfg types.ElasticConfig, opts ...Option) (*Elastic, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("no elasticsearch addresses configured")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("no elasticsearch index configured")
	}

	var caCert []byte
	if cfg.CACertPath != "" {
		data, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate %s: %w", cfg.CACertPath, err)
		}
		caCert = data
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	header := http.Header{}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		APIKey:        cfg.APIKey,
		CACert:        caCert,
		Header:        header,
		RetryOnStatus: httputil.RetryStatuses,
		MaxRetries:    maxRetries,
		RetryBackoff:  httputil.Backoff,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	e := &Elastic{
		es:         es,
		index:      cfg.Index,
		paperIndex: cfg.LookupIndex(),
		timeout:    cfg.Timeout,
		logger:     slog.Default().With("component", "elastic"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Elastic) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// Search implements Client.
func (e *Elastic) Search(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	body, err := encode(searchBody(req))
	if err != nil {
		return Response{}, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(body),
	)
	if err != nil {
		return Response{}, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Response{}, responseError("search", res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return Response{}, fmt.Errorf("parsing search response: %w", err)
	}

	out := Response{Total: sr.Hits.Total.Value, Hits: make([]Hit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if hit.Source == nil {
			hit.Source = types.PaperRecord{}
		}
		out.Hits = append(out.Hits, hit)
	}

	e.logger.Debug("search complete", "index", e.index, "knn", req.KNN != nil,
		"hits", len(out.Hits), "total", out.Total)
	return out, nil
}

// Count implements Client.
func (e *Elastic) Count(ctx context.Context, q query.CompiledQuery) (int, error) {
	body, err := encode(countBody(q))
	if err != nil {
		return 0, err
	}
	return e.count(ctx, body)
}

// DocCount implements Client.
func (e *Elastic) DocCount(ctx context.Context) (int, error) {
	return e.count(ctx, nil)
}

func (e *Elastic) count(ctx context.Context, body io.Reader) (int, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.CountRequest){
		e.es.Count.WithContext(ctx),
		e.es.Count.WithIndex(e.index),
	}
	if body != nil {
		opts = append(opts, e.es.Count.WithBody(body))
	}

	res, err := e.es.Count(opts...)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("count", res)
	}

	var cr struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("parsing count response: %w", err)
	}
	return cr.Count, nil
}

// Get implements Client.
func (e *Elastic) Get(ctx context.Context, id string) (types.PaperRecord, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	res, err := e.es.Get(e.paperIndex, id, e.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if res.IsError() {
		return nil, responseError("get", res)
	}

	var gr struct {
		Found  bool              `json:"found"`
		Source types.PaperRecord `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("parsing get response: %w", err)
	}
	if !gr.Found || gr.Source == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return gr.Source, nil
}

func encode(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return &buf, nil
}

// responseError summarizes an error response, keeping the engine's error
// type and reason when the body carries them.
func responseError(op string, res *esapi.Response) error {
	var er struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(data, &er); err == nil && er.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s returned HTTP %d: %s: %s", op, res.StatusCode, er.Error.Type, er.Error.Reason)
	}
	if len(data) == 0 {
		return errors.New("elasticsearch " + op + " returned HTTP " + http.StatusText(res.StatusCode))
	}
	return fmt.Errorf("elasticsearch %s returned HTTP %d: %s", op, res.StatusCode, bytes.TrimSpace(data))
}

// Elasticsearch JSON structures.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string            `json:"_id"`
	Score  *float64          `json:"_score"`
	Source types.PaperRecord `json:"_source"`
}
