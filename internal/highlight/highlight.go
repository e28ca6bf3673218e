// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package highlight marks fuzzy occurrences of query terms in paper text.
package highlight

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/matsearch/pkg/types"
)

// DefaultThreshold is the minimum window similarity (0-100) that counts
// as a match.
const DefaultThreshold = 80

// Highlight markers.
const (
	OpenTag  = "<mark>"
	CloseTag = "</mark>"
)

// span is a candidate match over rune offsets [start, end).
type span struct {
	start, end int
	score      int
}

// Similarity scores two strings 0-100 as 100*(1 - distance/maxLen),
// rounded, where distance is the Levenshtein distance in runes.
func Similarity(a, b string) int {
	n := max(len([]rune(a)), len([]rune(b)))
	if n == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(n))))
}

// Mark wraps fuzzy occurrences of terms in text with OpenTag/CloseTag.
//
// Each term slides a window of its own length across the lowercased text.
// Windows scoring at least threshold are candidates. Candidates are taken
// by descending score, then ascending start, and a candidate is dropped if
// it intersects one already kept. Kept spans never overlap. The original
// casing of text is preserved inside the markers.
func Mark(text string, terms []string, threshold int) string {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	var candidates []span
	for _, term := range terms {
		t := strings.ToLower(term)
		width := len([]rune(t))
		if width == 0 || width > len(lower) {
			continue
		}
		for i := 0; i+width <= len(lower); i++ {
			score := Similarity(string(lower[i:i+width]), t)
			if score >= threshold {
				candidates = append(candidates, span{start: i, end: i + width, score: score})
			}
		}
	}
	if len(candidates) == 0 {
		return text
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].start < candidates[j].start
	})

	var kept []span
	for _, c := range candidates {
		if !overlapsAny(c, kept) {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	var b strings.Builder
	last := 0
	for _, s := range kept {
		b.WriteString(string(runes[last:s.start]))
		b.WriteString(OpenTag)
		b.WriteString(string(runes[s.start:s.end]))
		b.WriteString(CloseTag)
		last = s.end
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}

func overlapsAny(s span, kept []span) bool {
	for _, k := range kept {
		if s.start < k.end && s.end > k.start {
			return true
		}
	}
	return false
}

// Apply returns a copy of rec with the terms for each field in fields
// marked. String values and lists of strings are marked; other values are
// left unchanged. rec is not modified.
func Apply(rec types.PaperRecord, terms map[string][]string, fields []string, threshold int) types.PaperRecord {
	out := make(types.PaperRecord, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, field := range fields {
		ts := terms[field]
		if len(ts) == 0 {
			continue
		}
		switch v := rec[field].(type) {
		case string:
			out[field] = Mark(v, ts, threshold)
		case []string:
			marked := make([]string, len(v))
			for i, s := range v {
				marked[i] = Mark(s, ts, threshold)
			}
			out[field] = marked
		case []any:
			marked := make([]any, len(v))
			for i, item := range v {
				if s, ok := item.(string); ok {
					marked[i] = Mark(s, ts, threshold)
				} else {
					marked[i] = item
				}
			}
			out[field] = marked
		}
	}
	return out
}
