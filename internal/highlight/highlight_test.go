// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package highlight

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/matsearch/pkg/types"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("spin", "spin"))
	assert.Equal(t, 90, Similarity("spin-orbit", "spin orbit"))
	assert.Equal(t, 0, Similarity("abcd", "wxyz"))
	assert.Equal(t, 100, Similarity("", ""))
}

func TestMark_HyphenTolerated(t *testing.T) {
	got := Mark("High spin-orbit coupling", []string{"spin orbit"}, DefaultThreshold)
	assert.Equal(t, "High <mark>spin-orbit</mark> coupling", got)
}

func TestMark_PreservesCase(t *testing.T) {
	got := Mark("Graphene on SiC", []string{"graphene"}, DefaultThreshold)
	assert.Equal(t, "<mark>Graphene</mark> on SiC", got)
}

func TestMark_NoMatch(t *testing.T) {
	text := "Magnetic skyrmions in thin films"
	assert.Equal(t, text, Mark(text, []string{"perovskite"}, DefaultThreshold))
	assert.Equal(t, text, Mark(text, nil, DefaultThreshold))
	assert.Equal(t, text, Mark(text, []string{""}, DefaultThreshold))
}

func TestMark_TermLongerThanText(t *testing.T) {
	assert.Equal(t, "MoS2", Mark("MoS2", []string{"molybdenum disulfide"}, DefaultThreshold))
}

func TestMark_MultipleOccurrences(t *testing.T) {
	got := Mark("spin waves and spin liquids", []string{"spin"}, DefaultThreshold)
	assert.Equal(t, "<mark>spin</mark> waves and <mark>spin</mark> liquids", got)
}

func TestMark_HigherScoreWinsConflict(t *testing.T) {
	// Both terms score 100 at offset 0; only one span may cover those runes.
	got := Mark("spin ordering", []string{"spin", "spin o"}, DefaultThreshold)
	assert.Equal(t, 1, strings.Count(got, OpenTag))
	assert.True(t, strings.HasPrefix(got, "<mark>spin"))
}

var markRE = regexp.MustCompile(`<mark>(.*?)</mark>`)

func TestMark_SpansNeverOverlap(t *testing.T) {
	texts := []string{
		"aaaa aaaa aaaa",
		"ferromagnetic ferroelectric ferrite",
		"High spin-orbit spin orbit coupling",
	}
	terms := []string{"aaa", "aaaa a", "ferro", "ferrite", "spin orbit", "orbit"}
	for _, text := range texts {
		got := Mark(text, terms, DefaultThreshold)

		// Removing the markers restores the input exactly.
		stripped := strings.NewReplacer(OpenTag, "", CloseTag, "").Replace(got)
		assert.Equal(t, text, stripped)

		// No nested markers.
		for _, m := range markRE.FindAllStringSubmatch(got, -1) {
			assert.NotContains(t, m[1], OpenTag)
		}
		assert.Equal(t, strings.Count(got, OpenTag), strings.Count(got, CloseTag))
	}
}

func TestMark_Unicode(t *testing.T) {
	got := Mark("Études of Néel order", []string{"néel"}, DefaultThreshold)
	assert.Equal(t, "Études of <mark>Néel</mark> order", got)
}

func TestApply(t *testing.T) {
	rec := types.PaperRecord{
		"title":   "High spin-orbit coupling",
		"authors": []any{"Ada Lovelace", "Piers Coleman", 7},
		"MAT":     []string{"Sr2IrO4"},
		"date":    float64(20240101),
	}
	terms := map[string][]string{
		"title":   {"spin orbit"},
		"authors": {"piers coleman"},
		"MAT":     {"Sr2IrO4"},
		"date":    {"2024"},
	}

	got := Apply(rec, terms, []string{"title", "authors", "MAT", "summary"}, DefaultThreshold)

	assert.Equal(t, "High <mark>spin-orbit</mark> coupling", got["title"])
	assert.Equal(t, []any{"Ada Lovelace", "<mark>Piers Coleman</mark>", 7}, got["authors"])
	assert.Equal(t, []string{"<mark>Sr2IrO4</mark>"}, got["MAT"])
	assert.Equal(t, float64(20240101), got["date"])
	assert.NotContains(t, got, "summary")

	// Input untouched.
	assert.Equal(t, "High spin-orbit coupling", rec["title"])
	assert.Equal(t, []string{"Sr2IrO4"}, rec["MAT"])
}
