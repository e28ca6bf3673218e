// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query validates raw search requests and compiles their clauses
// into a backend-neutral boolean query with an optional semantic clause.
package query

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/matsearch/pkg/types"
)

// ErrInvalidRequest is the uniform signal for a request that failed
// validation or compilation. Callers match it with errors.Is.
var ErrInvalidRequest = errors.New("request invalid")

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request invalid: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Defaults applied to fields missing from a raw request.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	DefaultSorting  = types.SortMostRecent
)

const dateLayout = "20060102"

// LooseInt decodes from a JSON number or a numeric string. An unquoted
// number with no fractional part, such as 2.0, is accepted.
type LooseInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseInt) UnmarshalJSON(b []byte) error {
	quoted := len(b) > 0 && b[0] == '"'
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if v, err := strconv.Atoi(s); err == nil {
		*n = LooseInt(v)
		return nil
	}
	if !quoted {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
			*n = LooseInt(f)
			return nil
		}
	}
	return fmt.Errorf("%s is not an integer", b)
}

// RawClause is a search clause as received on the wire.
type RawClause struct {
	Field    string `json:"field" yaml:"field"`
	Term     string `json:"term" yaml:"term"`
	Operator string `json:"operator" yaml:"operator"`
	IsVector bool   `json:"isVector" yaml:"is_vector"`
}

// RawRequest is a search request body before validation. Pointer fields
// distinguish a missing value from an explicit zero.
type RawRequest struct {
	Page     *LooseInt   `json:"page" yaml:"page"`
	Results  *LooseInt   `json:"results" yaml:"results"`
	Sorting  *string     `json:"sorting" yaml:"sorting"`
	Date     *string     `json:"date" yaml:"date"`
	Searches []RawClause `json:"searches" yaml:"searches"`
}

// Validate normalizes raw into a SearchRequest. now supplies the default
// end date. Every failure is a *ValidationError.
func Validate(raw RawRequest, now time.Time) (types.SearchRequest, error) {
	req := types.SearchRequest{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
		Sorting:  DefaultSorting,
	}

	if raw.Page != nil {
		req.Page = int(*raw.Page)
	}
	if req.Page < 1 {
		return types.SearchRequest{}, invalid("page", "must be at least 1, got %d", req.Page)
	}

	if raw.Results != nil {
		req.PageSize = int(*raw.Results)
	}
	if !slices.Contains(types.PageSizes, req.PageSize) {
		return types.SearchRequest{}, invalid("results", "must be one of %v, got %d", types.PageSizes, req.PageSize)
	}

	if raw.Sorting != nil {
		sorting, err := ParseSortMode(*raw.Sorting)
		if err != nil {
			return types.SearchRequest{}, invalid("sorting", "%v", err)
		}
		req.Sorting = sorting
	}

	dateStr := ""
	if raw.Date != nil {
		dateStr = *raw.Date
	}
	dr, err := ParseDateRange(dateStr, now)
	if err != nil {
		return types.SearchRequest{}, invalid("date", "%v", err)
	}
	req.DateRange = dr

	req.Clauses = make([]types.SearchClause, 0, len(raw.Searches))
	for i, rc := range raw.Searches {
		c, err := validateClause(rc)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("searches[%d].%s", i, ve.Field)
			}
			return types.SearchRequest{}, err
		}
		req.Clauses = append(req.Clauses, c)
	}

	return req, nil
}

func validateClause(rc RawClause) (types.SearchClause, error) {
	field, ok := ParseField(rc.Field)
	if !ok {
		return types.SearchClause{}, invalid("field", "unknown field %q", rc.Field)
	}
	op, err := types.ParseOperator(rc.Operator)
	if err != nil {
		return types.SearchClause{}, invalid("operator", "%v", err)
	}
	term := strings.TrimSpace(rc.Term)
	if term == "" {
		return types.SearchClause{}, invalid("term", "must not be empty")
	}
	return types.SearchClause{
		Field:    field,
		Term:     term,
		Operator: op,
		IsVector: rc.IsVector,
	}, nil
}

// ParseSortMode maps a wire sorting value to a SortMode.
func ParseSortMode(s string) (types.SortMode, error) {
	switch m := types.SortMode(strings.TrimSpace(s)); m {
	case types.SortMostRecent, types.SortOldest, types.SortMostRelevant:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sorting %q", s)
	}
}

// ParseDateRange parses "YYYYMMDD-YYYYMMDD". An empty string yields the
// default range from 00000000 through now.
func ParseDateRange(s string, now time.Time) (types.DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDateRange(now), nil
	}

	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return types.DateRange{}, fmt.Errorf("%q is not start-end", s)
	}
	startN, err := parseDate(start)
	if err != nil {
		return types.DateRange{}, err
	}
	endN, err := parseDate(end)
	if err != nil {
		return types.DateRange{}, err
	}
	if startN > endN {
		return types.DateRange{}, fmt.Errorf("start %08d is after end %08d", startN, endN)
	}
	return types.DateRange{Start: startN, End: endN}, nil
}

// DefaultDateRange covers every date up to and including now.
func DefaultDateRange(now time.Time) types.DateRange {
	end, _ := strconv.Atoi(now.Format(dateLayout))
	return types.DateRange{Start: 0, End: end}
}

func parseDate(s string) (int, error) {
	if len(s) != len(dateLayout) {
		return 0, fmt.Errorf("date %q is not YYYYMMDD", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("date %q is not YYYYMMDD", s)
		}
	}
	return strconv.Atoi(s)
}
