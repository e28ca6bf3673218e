// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/search"
	"github.com/pdiddy/matsearch/pkg/types"
)

func searchPapersTool() mcp.Tool {
	return mcp.NewTool("search_papers",
		mcp.WithDescription("Search the materials science paper index with boolean field clauses. "+
			"An empty request returns the most recent papers."),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default 1)"),
		),
		mcp.WithNumber("results",
			mcp.Description("Page size: 10, 20, 50 or 100 (default 10)"),
		),
		mcp.WithString("sorting",
			mcp.Description("Result order (default Most-Recent)"),
			mcp.Enum(string(types.SortMostRecent), string(types.SortOldest), string(types.SortMostRelevant)),
		),
		mcp.WithString("date",
			mcp.Description("Inclusive publication range YYYYMMDD-YYYYMMDD"),
		),
		mcp.WithArray("searches",
			mcp.Description("Search clauses. Operator is AND, OR, NOT or empty; isVector requests semantic "+
				"search and applies only with Most-Relevant sorting."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field":    map[string]any{"type": "string"},
					"term":     map[string]any{"type": "string"},
					"operator": map[string]any{"type": "string"},
					"isVector": map[string]any{"type": "boolean"},
				},
				"required": []string{"field", "term"},
			}),
		),
	)
}

func getPaperTool() mcp.Tool {
	return mcp.NewTool("get_paper",
		mcp.WithDescription("Fetch one paper by its ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Paper ID"),
		),
	)
}

func listFieldsTool() mcp.Tool {
	return mcp.NewTool("list_fields",
		mcp.WithDescription("List the field names accepted in search clauses"),
	)
}

func (s *Server) handleSearchPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := decodeRequest(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request invalid: %v", err)), nil
	}

	result, err := s.svc.Search(ctx, raw)
	switch {
	case err == nil:
		return jsonResult(result)
	case errors.Is(err, query.ErrInvalidRequest):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, search.ErrNoResults):
		return mcp.NewToolResultError("No results found"), nil
	default:
		s.logger.Error("search_papers failed", "err", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}
}

func (s *Server) handleGetPaper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	rec, err := s.svc.Paper(ctx, id)
	switch {
	case err == nil:
		return jsonResult(rec)
	case errors.Is(err, index.ErrNotFound):
		return mcp.NewToolResultError("Paper not found: " + id), nil
	default:
		s.logger.Error("get_paper failed", "id", id, "err", err)
		return nil, fmt.Errorf("paper lookup failed: %w", err)
	}
}

func (s *Server) handleListFields(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields := query.Fields()
	out := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		_, vector := query.VectorField(f)
		out = append(out, map[string]any{"field": string(f), "vector": vector})
	}
	return jsonResult(out)
}

// decodeRequest maps tool arguments onto the wire request so that tool
// calls and HTTP bodies are validated identically.
func decodeRequest(args map[string]any) (query.RawRequest, error) {
	var raw query.RawRequest
	if len(args) == 0 {
		return raw, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return raw, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
