// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/pkg/types"
)

// QueryFile is the on-disk form of a search request and, once run, its
// results. A file holding only the request section can be passed to
// `matsearch query --request`; --save writes the full form.
type QueryFile struct {
	Request query.RawRequest    `yaml:"request"`
	Result  *types.SearchResult `yaml:"result,omitempty"`
	Summary *QuerySummary       `yaml:"summary,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Returned  int       `yaml:"returned"`
	Total     int       `yaml:"total"`
	Inflated  int       `yaml:"inflated"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the request and its result to a YAML file.
func WriteQueryFile(path string, req query.RawRequest, result types.SearchResult, now time.Time) error {
	qf := QueryFile{
		Request: req,
		Result:  &result,
		Summary: &QuerySummary{
			Returned:  len(result.Papers),
			Total:     result.Total,
			Inflated:  result.Inflated,
			Timestamp: now,
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
