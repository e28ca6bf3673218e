// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package paperid normalizes user-supplied paper identifiers to the
// document IDs used by the paper index. Papers are keyed by their arXiv
// identifier without the "arXiv:" prefix, e.g. "2301.07041v2" or
// "cond-mat/0101001".
package paperid

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind classifies an identifier.
type Kind int

const (
	KindOther Kind = iota
	KindArxiv
	KindDOI
)

func (k Kind) String() string {
	switch k {
	case KindArxiv:
		return "arxiv"
	case KindDOI:
		return "doi"
	default:
		return "other"
	}
}

// arxivPattern matches new-style IDs ("2301.07041", "2301.07041v2") and
// old-style IDs ("cond-mat/0101001", "math.GT/0309136v1").
var arxivPattern = regexp.MustCompile(`^(?i:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?|[a-z\-]+(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1103/PhysRevB.99.064413".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

var arxivHosts = map[string]bool{"arxiv.org": true, "www.arxiv.org": true, "export.arxiv.org": true}
var doiHosts = map[string]bool{"doi.org": true, "www.doi.org": true, "dx.doi.org": true}

// Normalize returns the kind of raw and its index form. arXiv abstract
// and PDF URLs reduce to the bare identifier and doi.org URLs to the DOI.
// Anything else is returned trimmed and otherwise unchanged.
func Normalize(raw string) (Kind, string) {
	id := strings.TrimSpace(raw)

	if u, err := url.Parse(id); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		host := strings.ToLower(u.Host)
		path := strings.Trim(u.Path, "/")
		switch {
		case arxivHosts[host]:
			for _, prefix := range []string{"abs/", "pdf/"} {
				if strings.HasPrefix(path, prefix) {
					id = strings.TrimSuffix(strings.TrimPrefix(path, prefix), ".pdf")
					break
				}
			}
		case doiHosts[host]:
			id = path
		}
	}

	if m := arxivPattern.FindStringSubmatch(id); m != nil {
		return KindArxiv, m[1]
	}
	if doiPattern.MatchString(id) {
		return KindDOI, id
	}
	return KindOther, id
}

// ID returns only the normalized form of raw.
func ID(raw string) string {
	_, id := Normalize(raw)
	return id
}
