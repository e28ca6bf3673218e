// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/matsearch/pkg/types"
)

// Fuzziness is the edit-distance tolerance on every text match. "AUTO"
// scales the tolerance with term length.
const Fuzziness = "AUTO"

// Match is a fuzzy full-text predicate on one backend field.
type Match struct {
	Field string `json:"field" yaml:"field"`
	Query string `json:"query" yaml:"query"`
}

// VectorClause is the semantic clause diverted out of the boolean groups.
type VectorClause struct {
	// Field is the embedding field searched by kNN.
	Field string `json:"field" yaml:"field"`

	// TextField is the text field the embedding was computed from.
	TextField string `json:"text_field" yaml:"text_field"`

	// Term is the lowercased query text to embed.
	Term string `json:"term" yaml:"term"`
}

// CompiledQuery is a backend-neutral boolean query.
type CompiledQuery struct {
	// Wildcard marks a match-everything query. When set the clause groups
	// are empty and Vector is nil.
	Wildcard bool `json:"wildcard" yaml:"wildcard"`

	Must    []Match `json:"must,omitempty" yaml:"must,omitempty"`
	Should  []Match `json:"should,omitempty" yaml:"should,omitempty"`
	MustNot []Match `json:"must_not,omitempty" yaml:"must_not,omitempty"`

	// Filter is always applied with inclusive bounds.
	Filter types.DateRange `json:"filter" yaml:"filter"`

	Vector *VectorClause `json:"vector,omitempty" yaml:"vector,omitempty"`
}

// IsVector reports whether the query runs in semantic mode.
func (q CompiledQuery) IsVector() bool {
	return q.Vector != nil && !q.Wildcard
}

// Compile turns validated clauses into a CompiledQuery. Clauses are read in
// order. The first wildcard clause ends compilation and yields a
// match-everything query limited only by the date filter. The first vector
// clause on a vectorizable field under Most-Relevant sorting becomes the
// semantic clause, and any later such clause is dropped. Every other clause
// lands in exactly one boolean group chosen by its operator.
func Compile(clauses []types.SearchClause, dates types.DateRange, sorting types.SortMode) (CompiledQuery, error) {
	q := CompiledQuery{Filter: dates}

	for i, c := range clauses {
		if c.IsWildcard() {
			return CompiledQuery{Wildcard: true, Filter: dates}, nil
		}

		backend, ok := BackendField(c.Field)
		if !ok {
			return CompiledQuery{}, invalid(fmt.Sprintf("searches[%d].field", i), "unknown field %q", c.Field)
		}

		if c.IsVector && sorting == types.SortMostRelevant {
			if vf, ok := VectorField(c.Field); ok {
				if q.Vector == nil {
					q.Vector = &VectorClause{
						Field:     vf,
						TextField: backend,
						Term:      strings.ToLower(c.Term),
					}
				}
				continue
			}
		}

		m := Match{Field: backend, Query: c.Term}
		switch c.Operator {
		case types.OperatorNone, types.OperatorAnd:
			q.Must = append(q.Must, m)
		case types.OperatorOr:
			q.Should = append(q.Should, m)
		case types.OperatorNot:
			q.MustNot = append(q.MustNot, m)
		default:
			return CompiledQuery{}, invalid(fmt.Sprintf("searches[%d].operator", i), "unknown operator %q", c.Operator)
		}
	}

	return q, nil
}

// WithTextMatch returns a copy of q with one more Must match. The receiver
// is not modified.
func (q CompiledQuery) WithTextMatch(field, term string) CompiledQuery {
	out := q
	out.Must = append(slices.Clone(q.Must), Match{Field: field, Query: term})
	out.Should = slices.Clone(q.Should)
	out.MustNot = slices.Clone(q.MustNot)
	return out
}

// Lexical returns q with the semantic clause removed.
func (q CompiledQuery) Lexical() CompiledQuery {
	out := q
	out.Vector = nil
	return out
}

// HighlightTerms groups the Must and Should query strings by backend field,
// dropping duplicates and keeping first-seen order. MustNot terms are
// excluded.
func (q CompiledQuery) HighlightTerms() map[string][]string {
	terms := make(map[string][]string)
	for _, group := range [][]Match{q.Must, q.Should} {
		for _, m := range group {
			if m.Query == "" || slices.Contains(terms[m.Field], m.Query) {
				continue
			}
			terms[m.Field] = append(terms[m.Field], m.Query)
		}
	}
	return terms
}
