package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints rows as aligned columns.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// parseFilters turns name=value pairs into filter values. Names the
// collection does not declare are rejected.
func parseFilters(pairs []string, declared func(string) bool) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usageError("filter %q must look like name=value", pair)
		}
		if !declared(name) {
			return nil, usageError("unknown filter %q", name)
		}
		filters[name] = strings.TrimSpace(value)
	}
	return filters, nil
}

// parseSort reads "column", "column:asc" or "column:desc".
func parseSort(s string) (listing.Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return listing.Sort{}, nil
	}
	column, dir, hasDir := strings.Cut(s, ":")
	if column == "" {
		return listing.Sort{}, usageError("sort %q has no column", s)
	}
	if hasDir && !strings.EqualFold(dir, "asc") && !strings.EqualFold(dir, "desc") {
		return listing.Sort{}, usageError("sort direction %q must be asc or desc", dir)
	}
	return listing.Sort{Column: column, Direction: listing.ParseDirection(dir)}, nil
}

func sortable(columns []catalog.ColumnSpec, key string) bool {
	for _, col := range columns {
		if col.Key == key {
			return col.Sortable
		}
	}
	return false
}

// fieldErrors lists the per-field messages of a structured rejection.
func fieldErrors(err error) []string {
	var se *listing.ServerError
	if !errors.As(err, &se) {
		return nil
	}
	var out []string
	for _, fe := range se.Errors {
		if text := fe.Text(); text != "" {
			out = append(out, text)
		}
	}
	return out
}
