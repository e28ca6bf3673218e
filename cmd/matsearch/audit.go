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

	"github.com/pdiddy/matsearch/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Review the query audit log (list, stats, export)",
	Long: `Audit reads the SQLite log of served searches written when audit.enabled
is set. Use subcommands to list recent searches, print aggregate counts,
or export the log.`,
}

// --- list subcommand ---

var auditListCmd = &cobra.Command{
	Use:   "list [text]",
	Short: "List recorded searches, newest first",
	RunE:  runAuditList,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := listOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	entries, err := store.List(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatAuditList(os.Stdout, entries, jsonOutput)
}

func formatAuditList(w io.Writer, entries []audit.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-20s  %-10s  %-7s  %-8s  %-5s  %-9s  %s\n",
		"ID", "Time", "Status", "Mode", "Total", "Cache", "Elapsed", "Request")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, e := range entries {
		req := e.Request
		if len(req) > 40 {
			req = req[:37] + "..."
		}
		total := fmt.Sprintf("%d", e.Total)
		if e.Inflated >= 0 && e.Total != e.Inflated {
			total = fmt.Sprintf("%d*", e.Total)
		}
		cacheHit := ""
		if e.CacheHit {
			cacheHit = "hit"
		}
		fmt.Fprintf(w, "%-6d  %-20s  %-10s  %-7s  %-8s  %-5s  %-9s  %s\n",
			e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Status, e.Mode,
			total, cacheHit, e.Duration.Round(time.Millisecond), req)
	}

	fmt.Fprintf(w, "\n%d entries\n", len(entries))
	return nil
}

// --- stats subcommand ---

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate counts over the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := audit.NewStore(cfg.Audit)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(context.Background())
		if err != nil {
			return err
		}
		formatAuditStats(os.Stdout, st)
		return nil
	},
}

func formatAuditStats(w io.Writer, st audit.Stats) {
	fmt.Fprintf(w, "Queries:     %d\n", st.Queries)
	fmt.Fprintf(w, "Cache hits:  %d\n", st.CacheHits)
	fmt.Fprintf(w, "Vector:      %d\n", st.Vector)
	fmt.Fprintf(w, "No results:  %d\n", st.NoResults)
	fmt.Fprintf(w, "Invalid:     %d\n", st.Invalid)
	fmt.Fprintf(w, "Errors:      %d\n", st.Errors)
	if st.Queries > 0 {
		fmt.Fprintf(w, "Hit rate:    %.1f%%\n", 100*float64(st.CacheHits)/float64(st.Queries))
	}
}

// --- export subcommand ---

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit log to YAML or JSON",
	Long: `Export writes the audit log (or a filtered subset) to export.yaml or
export.json in the audit directory. Supports the same filter flags as list.`,
	RunE: runAuditExport,
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := listOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func listOptsFromFlags(cmd *cobra.Command, args []string) (audit.ListOptions, error) {
	contains, _ := cmd.Flags().GetString("contains")
	if contains == "" && len(args) > 0 {
		contains = strings.Join(args, " ")
	}
	status, _ := cmd.Flags().GetString("status")
	mode, _ := cmd.Flags().GetString("mode")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	switch audit.Status(status) {
	case "", audit.StatusOK, audit.StatusNoResults, audit.StatusInvalid, audit.StatusError:
	default:
		return audit.ListOptions{}, fmt.Errorf("unknown status %q", status)
	}

	opts := audit.ListOptions{
		Contains:   contains,
		Status:     audit.Status(status),
		Mode:       mode,
		MaxResults: limit,
	}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts, nil
}

func init() {
	for _, c := range []*cobra.Command{auditListCmd, auditExportCmd} {
		c.Flags().String("contains", "", "match a substring of the request")
		c.Flags().String("status", "", "filter by status: ok, no_results, invalid, error")
		c.Flags().String("mode", "", "filter by mode: lexical or vector")
		c.Flags().Duration("since", 0, "only entries newer than this (e.g. 24h)")
		c.Flags().Int("limit", 0, "maximum entries (0 = use default)")
	}
	auditListCmd.Flags().Bool("json", false, "output entries as JSON")
	auditExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditExportCmd)

	rootCmd.AddCommand(auditCmd)
}
