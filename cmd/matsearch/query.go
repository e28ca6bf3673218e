// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/search"
	"github.com/pdiddy/matsearch/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [field=term ...]",
	Short: "Run one search and print the results",
	Long: `Query runs a single search through the same pipeline as the HTTP API.

Clauses are given as field=term arguments, optionally prefixed by an
operator (AND:, OR:, NOT:) and suffixed with ~ for semantic search:

  matsearch query material=Fe3O4 OR:property=magnetic "NOT:title=review"
  matsearch query --sorting Most-Relevant "abstract=spin liquid~"

Alternatively --request reads a YAML request file whose request section
mirrors the HTTP body. --save writes the request and its results back to
a YAML file.`,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	raw, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	p, err := buildPipeline(cfg, buildOptions{noCache: noCache})
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.svc.Search(context.Background(), raw)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, raw, result, time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
	}

	format, _ := cmd.Flags().GetString("output")
	return writeResult(os.Stdout, result, format)
}

func writeResult(w io.Writer, result types.SearchResult, format string) error {
	switch format {
	case "table", "":
		search.FormatTable(result, w)
		return nil
	case "json":
		return search.FormatJSON(result, w)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output %q: use table, json or yaml", format)
	}
}

// requestFromFlags builds the raw request from --request or from the
// positional clauses and flags. Flags override values from the file.
func requestFromFlags(cmd *cobra.Command, args []string) (query.RawRequest, error) {
	var raw query.RawRequest
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return raw, err
		}
		raw = qf.Request
	}

	for _, arg := range args {
		c, err := parseClause(arg)
		if err != nil {
			return raw, err
		}
		raw.Searches = append(raw.Searches, c)
	}

	if cmd.Flags().Changed("page") {
		n, _ := cmd.Flags().GetInt("page")
		page := query.LooseInt(n)
		raw.Page = &page
	}
	if cmd.Flags().Changed("results") {
		n, _ := cmd.Flags().GetInt("results")
		size := query.LooseInt(n)
		raw.Results = &size
	}
	if cmd.Flags().Changed("sorting") {
		s, _ := cmd.Flags().GetString("sorting")
		raw.Sorting = &s
	}
	if cmd.Flags().Changed("date") {
		d, _ := cmd.Flags().GetString("date")
		raw.Date = &d
	}
	return raw, nil
}

// parseClause parses [OP:]field=term[~].
func parseClause(arg string) (query.RawClause, error) {
	var c query.RawClause
	for _, op := range []types.Operator{types.OperatorAnd, types.OperatorOr, types.OperatorNot} {
		prefix := string(op) + ":"
		if len(arg) > len(prefix) && strings.EqualFold(arg[:len(prefix)], prefix) {
			c.Operator = string(op)
			arg = arg[len(prefix):]
			break
		}
	}

	field, term, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(field) == "" {
		return c, fmt.Errorf("invalid clause %q: expected field=term", arg)
	}
	if strings.HasSuffix(term, "~") {
		c.IsVector = true
		term = strings.TrimSuffix(term, "~")
	}
	c.Field = strings.TrimSpace(field)
	c.Term = term
	return c, nil
}

var paperCmd = &cobra.Command{
	Use:   "paper <id>",
	Short: "Print one paper by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cfg, buildOptions{noCache: true})
		if err != nil {
			return err
		}
		defer p.Close()

		rec, err := p.svc.Paper(context.Background(), args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		switch format {
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(rec)
		case "json", "":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		default:
			return fmt.Errorf("unsupported output %q: use json or yaml", format)
		}
	},
}

func init() {
	queryCmd.Flags().String("request", "", "YAML request file")
	queryCmd.Flags().String("save", "", "write the request and results to this YAML file")
	queryCmd.Flags().Int("page", query.DefaultPage, "1-based page number")
	queryCmd.Flags().Int("results", query.DefaultPageSize, "page size: 10, 20, 50 or 100")
	queryCmd.Flags().String("sorting", string(query.DefaultSorting), "Most-Recent, Oldest-First or Most-Relevant")
	queryCmd.Flags().String("date", "", "publication range YYYYMMDD-YYYYMMDD")
	queryCmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")
	queryCmd.Flags().Bool("no-cache", false, "bypass the result cache")

	paperCmd.Flags().StringP("output", "o", "json", "output format: json or yaml")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(paperCmd)
}
