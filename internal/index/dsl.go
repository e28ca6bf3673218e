// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// boolQuery renders q as an Elasticsearch bool query. A wildcard query
// renders as a single match_all plus the date filter.
func boolQuery(q query.CompiledQuery) map[string]any {
	filter := []any{
		map[string]any{
			"range": map[string]any{
				query.DateField: map[string]any{
					"gte": q.Filter.Start,
					"lte": q.Filter.End,
				},
			},
		},
	}

	if q.Wildcard {
		return map[string]any{
			"bool": map[string]any{
				"must":   []any{map[string]any{"match_all": map[string]any{}}},
				"filter": filter,
			},
		}
	}

	return map[string]any{
		"bool": map[string]any{
			"must":     matchClauses(q.Must),
			"should":   matchClauses(q.Should),
			"must_not": matchClauses(q.MustNot),
			"filter":   filter,
		},
	}
}

func matchClauses(ms []query.Match) []any {
	out := make([]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, map[string]any{
			"match": map[string]any{
				m.Field: map[string]any{
					"query":     m.Query,
					"fuzziness": query.Fuzziness,
				},
			},
		})
	}
	return out
}

func sortClauses(fields []SortField) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		order := "asc"
		if f.Desc {
			order = "desc"
		}
		out = append(out, map[string]any{f.Field: map[string]any{"order": order}})
	}
	return out
}

// searchBody renders a search request body. Embedding fields are excluded
// from the returned sources.
func searchBody(req Request) map[string]any {
	body := map[string]any{
		"from":             req.From,
		"size":             req.Size,
		"track_total_hits": true,
		"_source": map[string]any{
			"excludes": []string{types.SummaryEmbeddingField, types.TitleEmbeddingField},
		},
	}

	if req.KNN != nil {
		body["knn"] = map[string]any{
			"field":          req.KNN.Field,
			"query_vector":   req.KNN.Vector,
			"k":              req.KNN.K,
			"num_candidates": req.KNN.NumCandidates,
			"filter":         boolQuery(req.Query.Lexical()),
		}
	} else {
		body["query"] = boolQuery(req.Query)
	}

	if len(req.Sort) > 0 {
		body["sort"] = sortClauses(req.Sort)
	}
	return body
}

func countBody(q query.CompiledQuery) map[string]any {
	return map[string]any{"query": boolQuery(q.Lexical())}
}
