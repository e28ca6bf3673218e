// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedmock "github.com/pdiddy/matsearch/internal/embed/mock"
	indexmock "github.com/pdiddy/matsearch/internal/index/mock"
	"github.com/pdiddy/matsearch/internal/results"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/internal/search"
	"github.com/pdiddy/matsearch/pkg/types"
)

func newTestServer(t *testing.T, client *indexmock.Client) *httptest.Server {
	t.Helper()
	proc, err := results.NewProcessor(2)
	require.NoError(t, err)
	t.Cleanup(proc.Release)

	svc := search.NewService(client, retrieve.NewDispatcher(client, &embedmock.Embedder{}), proc)
	ts := httptest.NewServer(New(svc, types.ServerConfig{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func get(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSearch_EmptyBody(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{Hits: indexmock.NewHits(25, "Spin waves")})

	for _, body := range []string{"{}", ""} {
		resp, out := post(t, ts.URL+"/api/papers", body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Len(t, out["papers"], 10)
		assert.GreaterOrEqual(t, out["total"], float64(10))
		assert.Equal(t, float64(types.ExactTotal), out["inflated"])
		assert.Equal(t, map[string]any{}, out["accuracy"])
	}
}

func TestSearch_Alias(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{Hits: indexmock.NewHits(5, "Magnons")})

	resp, out := post(t, ts.URL+"/search", `{"results": "10", "searches": [{"field": "Title", "term": "magnon"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["papers"], 5)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *indexmock.Client
		body   string
		status int
		msg    string
	}{
		{"malformed json", &indexmock.Client{}, `{"page":`, http.StatusBadRequest, msgInvalid},
		{"bad page", &indexmock.Client{}, `{"page": 0}`, http.StatusBadRequest, msgInvalid},
		{"bad field", &indexmock.Client{}, `{"searches": [{"field": "color", "term": "red"}]}`, http.StatusBadRequest, msgInvalid},
		{"no results", &indexmock.Client{}, `{}`, http.StatusNotFound, msgNoResults},
		{"engine down", &indexmock.Client{SearchErr: errors.New("connection refused")}, `{}`, http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.client)
			resp, out := post(t, ts.URL+"/api/papers", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, out["error"])
		})
	}
}

func TestPaper(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{Papers: map[string]types.PaperRecord{
		"p-1":              {"id": "p-1", "title": "Spin waves", types.SummaryEmbeddingField: []any{0.1}},
		"cond-mat/0101001": {"id": "cond-mat/0101001", "title": "Kagome magnets"},
		"2301.07041v2":     {"id": "2301.07041v2", "title": "Altermagnets"},
	}})

	resp, out := get(t, ts.URL+"/api/papers/p-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Spin waves", out["title"])
	assert.NotContains(t, out, types.SummaryEmbeddingField)

	resp, out = get(t, ts.URL+"/api/papers/cond-mat/0101001")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kagome magnets", out["title"])

	resp, out = get(t, ts.URL+"/papers/arXiv:2301.07041v2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Altermagnets", out["title"])

	resp, out = get(t, ts.URL+"/papers/p-2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, msgNotFound, out["error"])
}

func TestPaper_EngineError(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{GetErr: errors.New("timeout")})

	resp, out := get(t, ts.URL+"/api/papers/p-1")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, msgInternal, out["error"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{})

	for _, path := range []string{"/api/health", "/health"} {
		resp, out := get(t, ts.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, msgHealthy, out["message"])
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &indexmock.Client{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/papers", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")

	resp, _ = get(t, ts.URL+"/health")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_ConfiguredOrigin(t *testing.T) {
	srv := New(nil, types.ServerConfig{AllowedOrigin: "https://app.example.org"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/papers", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(nil, types.ServerConfig{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/papers"},
		{http.MethodDelete, "/api/papers"},
		{http.MethodGet, "/search"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
		})
	}
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(nil, types.ServerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_Defaults(t *testing.T) {
	srv := New(nil, types.ServerConfig{})
	assert.Equal(t, DefaultAddr, srv.cfg.Addr)
	assert.Equal(t, DefaultReadTimeout, srv.cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, srv.cfg.WriteTimeout)
	assert.Equal(t, DefaultAllowedOrigin, srv.cfg.AllowedOrigin)
}
