// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/matsearch/internal/highlight"
	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/retrieve"
	"github.com/pdiddy/matsearch/pkg/types"
)

func newProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(4, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func hit(id string, score float64, title string) index.Hit {
	return index.Hit{
		ID:    "doc-" + id,
		Score: score,
		Source: types.PaperRecord{
			"id":                        id,
			"title":                     title,
			types.SummaryEmbeddingField: []any{0.1},
			types.TitleEmbeddingField:   []any{0.2},
		},
	}
}

func TestProcess_LexicalStripsAndHighlights(t *testing.T) {
	p := newProcessor(t)
	out := retrieve.Outcome{
		Mode:     retrieve.ModeLexical,
		Hits:     []index.Hit{hit("p-1", 2, "High spin-orbit coupling"), hit("p-2", 1, "Phonons")},
		Total:    2,
		Inflated: types.ExactTotal,
		Query: query.CompiledQuery{
			Must: []query.Match{{Field: query.BackendTitle, Query: "spin orbit"}},
		},
	}

	res := p.Process(out)

	require.Len(t, res.Papers, 2)
	assert.Equal(t, "High <mark>spin-orbit</mark> coupling", res.Papers[0]["title"])
	assert.Equal(t, "Phonons", res.Papers[1]["title"])
	for _, rec := range res.Papers {
		assert.NotContains(t, rec, types.SummaryEmbeddingField)
		assert.NotContains(t, rec, types.TitleEmbeddingField)
	}
	assert.NotNil(t, res.Accuracy)
	assert.Empty(t, res.Accuracy)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, types.ExactTotal, res.Inflated)

	// The outcome's sources are untouched.
	assert.Equal(t, "High spin-orbit coupling", out.Hits[0].Source["title"])
	assert.Contains(t, out.Hits[0].Source, types.SummaryEmbeddingField)
}

func TestProcess_VectorAccuracy(t *testing.T) {
	p := newProcessor(t)
	noID := hit("", 0.5, "Untitled")
	delete(noID.Source, "id")

	res := p.Process(retrieve.Outcome{
		Mode:     retrieve.ModeVector,
		Hits:     []index.Hit{hit("p-1", 0.93, "Kitaev spin liquid"), noID},
		Total:    100,
		Inflated: 40,
		Query: query.CompiledQuery{
			Must: []query.Match{{Field: query.BackendSummary, Query: "spin liquid"}},
		},
	})

	assert.Equal(t, map[string]float64{"p-1": 0.93, "doc-": 0.5}, res.Accuracy)
	assert.Equal(t, 100, res.Total)
	assert.Equal(t, 40, res.Inflated)
}

func TestProcess_PreservesOrder(t *testing.T) {
	p := newProcessor(t)
	var hits []index.Hit
	for i := range 50 {
		hits = append(hits, hit(string(rune('A'+i)), float64(i), "Magnons"))
	}

	res := p.Process(retrieve.Outcome{
		Hits:  hits,
		Query: query.CompiledQuery{Must: []query.Match{{Field: query.BackendTitle, Query: "magnon"}}},
	})

	require.Len(t, res.Papers, 50)
	for i, rec := range res.Papers {
		assert.Equal(t, hits[i].Source.ID(), rec.ID())
	}
}

func TestProcess_HighlightFailureIsolated(t *testing.T) {
	p := newProcessor(t)
	p.mark = func(rec types.PaperRecord, terms map[string][]string, fields []string, threshold int) types.PaperRecord {
		if rec.ID() == "bad" {
			panic("malformed field")
		}
		return highlight.Apply(rec, terms, fields, threshold)
	}

	res := p.Process(retrieve.Outcome{
		Hits: []index.Hit{hit("good", 1, "spin glass"), hit("bad", 1, "spin glass")},
		Query: query.CompiledQuery{
			Must: []query.Match{{Field: query.BackendTitle, Query: "spin"}},
		},
	})

	require.Len(t, res.Papers, 2)
	assert.Equal(t, "<mark>spin</mark> glass", res.Papers[0]["title"])
	assert.Equal(t, "spin glass", res.Papers[1]["title"])
	assert.NotContains(t, res.Papers[1], types.SummaryEmbeddingField)
}

func TestProcess_MustNotTermsNotHighlighted(t *testing.T) {
	p := newProcessor(t)
	res := p.Process(retrieve.Outcome{
		Hits: []index.Hit{hit("p-1", 1, "A review of magnons")},
		Query: query.CompiledQuery{
			MustNot: []query.Match{{Field: query.BackendTitle, Query: "review"}},
		},
	})
	assert.Equal(t, "A review of magnons", res.Papers[0]["title"])
}

func TestProcess_Empty(t *testing.T) {
	res := newProcessor(t).Process(retrieve.Outcome{})
	assert.Empty(t, res.Papers)
	assert.NotNil(t, res.Papers)
}
