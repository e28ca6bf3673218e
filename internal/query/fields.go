// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"strings"

	"github.com/pdiddy/matsearch/pkg/types"
)

// Backend index fields. The annotation tags (MAT, DSC, ...) are produced by
// the named-entity annotation pipeline that populates the index.
const (
	BackendMaterial         = "MAT"
	BackendDescription      = "DSC"
	BackendSymmetry         = "SPL"
	BackendSynthesis        = "SMT"
	BackendCharacterization = "CMT"
	BackendProperty         = "PRO"
	BackendPropertyValue    = "PVL"
	BackendPropertyUnit     = "PUT"
	BackendApplication      = "APL"
	BackendSummary          = "summary"
	BackendTitle            = "title"
	BackendCategories       = "categories"
	BackendAuthors          = "authors"

	// DateField holds the YYYYMMDD publication date used by the range
	// filter and date sorting.
	DateField = "date"
)

// fieldTable maps every client field name to exactly one backend field.
var fieldTable = map[types.FieldName]string{
	types.FieldMaterial:         BackendMaterial,
	types.FieldDescription:      BackendDescription,
	types.FieldSymmetry:         BackendSymmetry,
	types.FieldSynthesis:        BackendSynthesis,
	types.FieldCharacterization: BackendCharacterization,
	types.FieldProperty:         BackendProperty,
	types.FieldApplication:      BackendApplication,
	types.FieldAbstract:         BackendSummary,
	types.FieldTitle:            BackendTitle,
	types.FieldCategory:         BackendCategories,
	types.FieldAuthors:          BackendAuthors,
}

// vectorFields lists the fields that support semantic search, with the
// embedding field searched by kNN.
var vectorFields = map[types.FieldName]string{
	types.FieldAbstract: types.SummaryEmbeddingField,
	types.FieldTitle:    types.TitleEmbeddingField,
}

// HighlightFields are the record fields that receive highlight markup.
var HighlightFields = []string{
	BackendSummary,
	BackendTitle,
	BackendAuthors,
	BackendApplication,
	BackendCharacterization,
	BackendDescription,
	BackendMaterial,
	BackendProperty,
	BackendPropertyValue,
	BackendPropertyUnit,
	BackendSynthesis,
	BackendSymmetry,
}

// ParseField resolves a client field name, ignoring case and surrounding
// whitespace.
func ParseField(name string) (types.FieldName, bool) {
	f := types.FieldName(strings.ToLower(strings.TrimSpace(name)))
	_, ok := fieldTable[f]
	return f, ok
}

// BackendField returns the index field searched for f.
func BackendField(f types.FieldName) (string, bool) {
	b, ok := fieldTable[f]
	return b, ok
}

// VectorField returns the embedding field for f when f supports semantic
// search.
func VectorField(f types.FieldName) (string, bool) {
	v, ok := vectorFields[f]
	return v, ok
}

// Fields returns every recognized client field name.
func Fields() []types.FieldName {
	return []types.FieldName{
		types.FieldMaterial,
		types.FieldDescription,
		types.FieldSymmetry,
		types.FieldSynthesis,
		types.FieldCharacterization,
		types.FieldProperty,
		types.FieldApplication,
		types.FieldAbstract,
		types.FieldTitle,
		types.FieldCategory,
		types.FieldAuthors,
	}
}
