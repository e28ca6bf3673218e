// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the matsearch service:
// search requests and clauses, the client-facing search result, paper
// records projected from the index, and configuration.
package types

import (
	"fmt"
	"strings"
)

// FieldName is a searchable domain field as named by clients.
type FieldName string

const (
	FieldMaterial         FieldName = "material"
	FieldDescription      FieldName = "description"
	FieldSymmetry         FieldName = "symmetry or phase labels"
	FieldSynthesis        FieldName = "synthesis"
	FieldCharacterization FieldName = "characterization"
	FieldProperty         FieldName = "property"
	FieldApplication      FieldName = "application"
	FieldAbstract         FieldName = "abstract"
	FieldTitle            FieldName = "title"
	FieldCategory         FieldName = "category"
	FieldAuthors          FieldName = "authors"
)

// Operator places a clause in one boolean group of the compiled query.
type Operator string

const (
	OperatorNone Operator = ""
	OperatorAnd  Operator = "AND"
	OperatorOr   Operator = "OR"
	OperatorNot  Operator = "NOT"
)

// ParseOperator maps a wire operator to an Operator. Matching ignores case
// and surrounding whitespace; the empty string is OperatorNone.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.ToUpper(strings.TrimSpace(s))); op {
	case OperatorNone, OperatorAnd, OperatorOr, OperatorNot:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// SortMode orders search results.
type SortMode string

const (
	SortMostRecent   SortMode = "Most-Recent"
	SortOldest       SortMode = "Oldest-First"
	SortMostRelevant SortMode = "Most-Relevant"
)

// Descending reports whether the mode sorts in descending order. Only
// SortOldest is ascending.
func (s SortMode) Descending() bool {
	return s != SortOldest
}

// ByDate reports whether results are ordered by publication date rather
// than by relevance score.
func (s SortMode) ByDate() bool {
	return s == SortMostRecent || s == SortOldest
}

// SearchClause is one field/term/operator unit of a boolean search.
type SearchClause struct {
	Field    FieldName `json:"field" yaml:"field"`
	Term     string    `json:"term" yaml:"term"`
	Operator Operator  `json:"operator" yaml:"operator"`
	IsVector bool      `json:"isVector" yaml:"is_vector"`
}

// WildcardTerm is the clause term that matches every paper.
const WildcardTerm = "all"

// IsWildcard reports whether the clause is the match-everything sentinel.
func (c SearchClause) IsWildcard() bool {
	return c.Term == WildcardTerm
}

// DateRange is an inclusive publication date range with YYYYMMDD bounds.
type DateRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// String renders the range in its wire form, e.g. "20200101-20231231".
func (d DateRange) String() string {
	return fmt.Sprintf("%08d-%08d", d.Start, d.End)
}

// Allowed page sizes.
var PageSizes = []int{10, 20, 50, 100}

// SearchRequest is a validated search request. It is not modified after
// validation.
type SearchRequest struct {
	Page      int            `json:"page" yaml:"page"`
	PageSize  int            `json:"results" yaml:"results"`
	Sorting   SortMode       `json:"sorting" yaml:"sorting"`
	DateRange DateRange      `json:"date" yaml:"date"`
	Clauses   []SearchClause `json:"searches" yaml:"searches"`
}

// Offset returns the index of the first hit on the requested page.
func (r SearchRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// ExactTotal is the Inflated value that marks Total as exact.
const ExactTotal = -1

// SearchResult is the client-facing payload for one page of results.
type SearchResult struct {
	// Papers holds the stripped, highlighted records for the page.
	Papers []PaperRecord `json:"papers" yaml:"papers"`

	// Total is the result-set size reported to the client.
	Total int `json:"total" yaml:"total"`

	// Inflated is ExactTotal when Total is exact. Otherwise Total was
	// raised for display and Inflated carries the true count.
	Inflated int `json:"inflated" yaml:"inflated"`

	// Accuracy maps paper IDs to similarity scores. It is empty outside
	// vector mode.
	Accuracy map[string]float64 `json:"accuracy" yaml:"accuracy"`
}

// IsInflated reports whether Total was topped up for display.
func (r SearchResult) IsInflated() bool {
	return r.Inflated != ExactTotal
}
