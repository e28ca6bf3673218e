// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// PaperRecord is a document projected from the search index. The service
// treats it as opaque apart from the highlightable text fields and the
// internal embedding fields.
type PaperRecord map[string]any

// Index fields that hold embeddings. They are internal and are removed
// before a record leaves the service.
const (
	SummaryEmbeddingField = "summary_embedding"
	TitleEmbeddingField   = "title_embedding"
)

// ID returns the record's "id" field as a string, or "" when absent.
func (p PaperRecord) ID() string {
	switch v := p["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// Title returns the record's title, or "" when absent or not a string.
func (p PaperRecord) Title() string {
	s, _ := p["title"].(string)
	return s
}

// Authors returns the record's authors as strings. A single string value
// is returned as a one-element slice.
func (p PaperRecord) Authors() []string {
	switch v := p["authors"].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Date returns the record's YYYYMMDD date, or 0 when absent.
func (p PaperRecord) Date() int {
	switch v := p["date"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// StripInternal returns a shallow copy of the record without the embedding
// fields. The receiver is not modified.
func (p PaperRecord) StripInternal() PaperRecord {
	out := make(PaperRecord, len(p))
	for k, v := range p {
		if k == SummaryEmbeddingField || k == TitleEmbeddingField {
			continue
		}
		out[k] = v
	}
	return out
}
