// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/matsearch/internal/audit"
	"github.com/pdiddy/matsearch/internal/cache"
	cachemock "github.com/pdiddy/matsearch/internal/cache/mock"
	embedmock "github.com/pdiddy/matsearch/internal/embed/mock"
	"github.com/pdiddy/matsearch/internal/index"
	indexmock "github.com/pdiddy/matsearch/internal/index/mock"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/results"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/pkg/types"
)

// --- test helpers ---

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memRecorder) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memRecorder) last(t *testing.T) audit.Entry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatal("no audit entries recorded")
	}
	return r.entries[len(r.entries)-1]
}

type fixture struct {
	svc      *Service
	index    *indexmock.Client
	embedder *embedmock.Embedder
	store    *cachemock.Store
	recorder *memRecorder
}

func newFixture(t *testing.T, client *indexmock.Client) fixture {
	t.Helper()
	emb := &embedmock.Embedder{}
	proc, err := results.NewProcessor(2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(proc.Release)

	store := cachemock.New()
	rec := &memRecorder{}
	svc := NewService(client, retrieve.NewDispatcher(client, emb), proc,
		WithCache(cache.NewGateway(store)),
		WithRecorder(rec),
		WithClock(func() time.Time { return testNow }),
	)
	return fixture{svc: svc, index: client, embedder: emb, store: store, recorder: rec}
}

func decodeRaw(t *testing.T, body string) query.RawRequest {
	t.Helper()
	var raw query.RawRequest
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatal(err)
	}
	return raw
}

// --- Search ---

func TestSearchEmptyRequestReturnsFirstPage(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(37, "Magnon transport"), Total: 37})

	res, err := f.svc.Search(context.Background(), decodeRaw(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Papers) != 10 {
		t.Errorf("papers = %d, want 10", len(res.Papers))
	}
	if res.Total < 10 {
		t.Errorf("total = %d, want >= 10", res.Total)
	}
	if res.Inflated != types.ExactTotal {
		t.Errorf("inflated = %d, want exact", res.Inflated)
	}

	req := f.index.Searches[0]
	if req.Query.Filter != (types.DateRange{Start: 0, End: 20261019}) {
		t.Errorf("filter = %+v, want 00000000-20261019", req.Query.Filter)
	}
	if req.Sort[0].Field != query.DateField || !req.Sort[0].Desc {
		t.Errorf("sort = %+v, want date desc first", req.Sort)
	}
	for _, p := range res.Papers {
		if _, ok := p[types.SummaryEmbeddingField]; ok {
			t.Errorf("paper %s leaks embedding field", p.ID())
		}
	}
}

func TestSearchWildcardLexical(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(12, "Spin ice"), Total: 12})

	raw := decodeRaw(t, `{"page":"1","results":"10","sorting":"Most-Recent","date":"20000101-20261019",
		"searches":[{"field":"Title","term":"all","operator":""}]}`)
	res, err := f.svc.Search(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Papers) != 10 || res.Total != 12 {
		t.Errorf("got %d papers, total %d", len(res.Papers), res.Total)
	}
	if !f.index.Searches[0].Query.Wildcard {
		t.Error("expected wildcard query")
	}
	if res.Papers[0]["title"] != "Spin ice" {
		t.Errorf("wildcard should not highlight, got %v", res.Papers[0]["title"])
	}
}

func TestSearchHighlightsLexicalTerms(t *testing.T) {
	client := &indexmock.Client{Hits: []index.Hit{{
		ID: "d1",
		Source: types.PaperRecord{
			"id":    "p-1",
			"title": "High spin-orbit coupling in iridates",
		},
	}}}
	f := newFixture(t, client)

	raw := decodeRaw(t, `{"searches":[{"field":"title","term":"spin orbit","operator":"AND"}]}`)
	res, err := f.svc.Search(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Papers[0]["title"]; got != "High <mark>spin-orbit</mark> coupling in iridates" {
		t.Errorf("title = %q", got)
	}
}

func TestSearchVectorInflated(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(10, "Kitaev spin liquid"), Docs: 2000, CountResult: 40})

	raw := decodeRaw(t, `{"sorting":"Most-Relevant","searches":[{"field":"abstract","term":"Spin Liquid","isVector":true}]}`)
	res, err := f.svc.Search(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 100 || res.Inflated != 40 {
		t.Errorf("total/inflated = %d/%d, want 100/40", res.Total, res.Inflated)
	}
	if len(res.Accuracy) != 10 {
		t.Errorf("accuracy entries = %d, want 10", len(res.Accuracy))
	}
	if f.embedder.Calls() != 1 || f.embedder.Texts[0] != "spin liquid" {
		t.Errorf("embedder texts = %v", f.embedder.Texts)
	}
	if got := res.Papers[0]["summary"]; got != "Kitaev <mark>spin liquid</mark>" {
		t.Errorf("summary = %q", got)
	}
	if e := f.recorder.last(t); e.Mode != string(retrieve.ModeVector) || e.Inflated != 40 {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestSearchCachesResults(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(15, "x")})
	raw := decodeRaw(t, `{"searches":[{"field":"material","term":"Fe3O4"}]}`)
	ctx := context.Background()

	first, err := f.svc.Search(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	calls := f.index.Calls()

	second, err := f.svc.Search(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if f.index.Calls() != calls {
		t.Errorf("index called on cache hit: %d -> %d", calls, f.index.Calls())
	}
	if second.Total != first.Total || len(second.Papers) != len(first.Papers) {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
	if !f.recorder.last(t).CacheHit {
		t.Error("audit entry should be a cache hit")
	}
	if f.store.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", f.store.Len())
	}
}

func TestSearchCacheFailureFallsThrough(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(3, "x")})
	f.store.GetErr = errors.New("connection refused")
	f.store.SetErr = errors.New("connection refused")

	res, err := f.svc.Search(context.Background(), decodeRaw(t, `{}`))
	if err != nil {
		t.Fatalf("cache failure surfaced: %v", err)
	}
	if len(res.Papers) != 3 {
		t.Errorf("papers = %d, want 3", len(res.Papers))
	}
}

func TestSearchNoResultsNotCached(t *testing.T) {
	f := newFixture(t, &indexmock.Client{})

	_, err := f.svc.Search(context.Background(), decodeRaw(t, `{"searches":[{"field":"title","term":"zzz"}]}`))
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if f.store.Len() != 0 {
		t.Error("empty result was cached")
	}
	if e := f.recorder.last(t); e.Status != audit.StatusNoResults {
		t.Errorf("status = %q", e.Status)
	}
}

func TestSearchInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"page zero", `{"page":0}`},
		{"page size", `{"results":15}`},
		{"sorting", `{"sorting":"Newest"}`},
		{"date", `{"date":"2020-2021"}`},
		{"date order", `{"date":"20240101-20230101"}`},
		{"field", `{"searches":[{"field":"color","term":"red"}]}`},
		{"operator", `{"searches":[{"field":"title","term":"x","operator":"XOR"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &indexmock.Client{Hits: indexmock.NewHits(3, "x")})
			_, err := f.svc.Search(context.Background(), decodeRaw(t, tt.body))
			if !errors.Is(err, query.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if f.index.Calls() != 0 {
				t.Error("index called for invalid request")
			}
			if e := f.recorder.last(t); e.Status != audit.StatusInvalid {
				t.Errorf("status = %q", e.Status)
			}
		})
	}
}

func TestSearchRetrievalError(t *testing.T) {
	f := newFixture(t, &indexmock.Client{SearchErr: errors.New("index unavailable")})

	_, err := f.svc.Search(context.Background(), decodeRaw(t, `{}`))
	if !errors.Is(err, retrieve.ErrRetrieval) {
		t.Fatalf("err = %v, want ErrRetrieval", err)
	}
	if f.store.Len() != 0 {
		t.Error("failure was cached")
	}
	if e := f.recorder.last(t); e.Status != audit.StatusError {
		t.Errorf("status = %q", e.Status)
	}
}

func TestServiceWithoutCacheOrRecorder(t *testing.T) {
	client := &indexmock.Client{Hits: indexmock.NewHits(2, "x")}
	proc, err := results.NewProcessor(1)
	if err != nil {
		t.Fatal(err)
	}
	defer proc.Release()

	svc := NewService(client, retrieve.NewDispatcher(client, nil), proc)
	if _, err := svc.Search(context.Background(), query.RawRequest{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Search(context.Background(), query.RawRequest{}); err != nil {
		t.Fatal(err)
	}
	if len(client.Searches) != 2 {
		t.Errorf("searches = %d, want 2 without cache", len(client.Searches))
	}
}

// --- Paper ---

func TestPaper(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Papers: map[string]types.PaperRecord{
		"p-1": {"id": "p-1", "title": "Magnons", types.TitleEmbeddingField: []any{0.1}},
	}})

	rec, err := f.svc.Paper(context.Background(), "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title() != "Magnons" {
		t.Errorf("title = %q", rec.Title())
	}
	if _, ok := rec[types.TitleEmbeddingField]; ok {
		t.Error("embedding field not stripped")
	}

	if _, err := f.svc.Paper(context.Background(), "nope"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Paper(context.Background(), "  "); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPaperNormalizesArxivIDs(t *testing.T) {
	f := newFixture(t, &indexmock.Client{Papers: map[string]types.PaperRecord{
		"2301.07041v2": {"id": "2301.07041v2", "title": "Altermagnets"},
	}})

	for _, id := range []string{"arXiv:2301.07041v2", "https://arxiv.org/abs/2301.07041v2", " 2301.07041v2 "} {
		rec, err := f.svc.Paper(context.Background(), id)
		if err != nil {
			t.Fatalf("Paper(%q): %v", id, err)
		}
		if rec.ID() != "2301.07041v2" {
			t.Errorf("Paper(%q) id = %q", id, rec.ID())
		}
	}
	if got := f.index.Gets[len(f.index.Gets)-1]; got != "2301.07041v2" {
		t.Errorf("index lookup id = %q", got)
	}
}

// --- Formatting ---

func TestFormatTable(t *testing.T) {
	res := types.SearchResult{
		Papers: []types.PaperRecord{
			{"id": "p-1", "title": "High <mark>spin-orbit</mark> coupling", "authors": []any{"Ada Lovelace", "Piers Coleman"}, "date": float64(20240301)},
		},
		Total:    100,
		Inflated: 40,
		Accuracy: map[string]float64{"p-1": 0.931},
	}
	var buf bytes.Buffer
	FormatTable(res, &buf)
	out := buf.String()

	for _, want := range []string{"High spin-orbit coupling", "Ada Lovelace et al.", "20240301", "0.931", "p-1", "1 of 100 results", "(40 exact matches)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<mark>") {
		t.Error("table contains highlight markers")
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.SearchResult{}, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	res := types.SearchResult{
		Papers:   []types.PaperRecord{{"id": "p-1"}},
		Total:    1,
		Inflated: types.ExactTotal,
		Accuracy: map[string]float64{},
	}
	var buf bytes.Buffer
	if err := FormatJSON(res, &buf); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["inflated"] != float64(-1) || decoded["total"] != float64(1) {
		t.Errorf("decoded = %v", decoded)
	}
	if acc, ok := decoded["accuracy"].(map[string]any); !ok || len(acc) != 0 {
		t.Errorf("lexical result accuracy = %v, want empty object", decoded["accuracy"])
	}
}

// --- Query files ---

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	raw := decodeRaw(t, `{"page":2,"results":20,"sorting":"Oldest-First","searches":[{"field":"material","term":"MoS2","operator":"OR"}]}`)
	res := types.SearchResult{Papers: []types.PaperRecord{{"id": "p-1"}}, Total: 30, Inflated: types.ExactTotal}

	if err := WriteQueryFile(path, raw, res, testNow); err != nil {
		t.Fatal(err)
	}
	qf, err := ReadQueryFile(path)
	if err != nil {
		t.Fatal(err)
	}

	req, err := query.Validate(qf.Request, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if req.Page != 2 || req.PageSize != 20 || req.Sorting != types.SortOldest {
		t.Errorf("request = %+v", req)
	}
	if len(req.Clauses) != 1 || req.Clauses[0].Operator != types.OperatorOr {
		t.Errorf("clauses = %+v", req.Clauses)
	}
	if qf.Summary == nil || qf.Summary.Total != 30 || qf.Summary.Returned != 1 {
		t.Errorf("summary = %+v", qf.Summary)
	}
}

func TestReadQueryFileMissing(t *testing.T) {
	if _, err := ReadQueryFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
