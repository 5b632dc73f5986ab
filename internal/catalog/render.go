package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

// TableColumns builds the engine's column descriptors for the collection.
func (c Collection) TableColumns() []listing.Column[remote.Record] {
	cols := make([]listing.Column[remote.Record], len(c.Columns))
	for i, spec := range c.Columns {
		cols[i] = spec.Column()
	}
	return cols
}

// Column builds one column descriptor.
func (s ColumnSpec) Column() listing.Column[remote.Record] {
	field := s.Field
	format := s.Format
	value := func(rec remote.Record) any { return sortValue(lookup(rec, field), format) }
	return listing.Column[remote.Record]{
		Key:      s.Key,
		Header:   s.Header,
		Sortable: s.Sortable,
		Required: s.Required,
		Hidden:   s.Hidden,
		Value:    value,
		Render: func(rec remote.Record) templ.Component {
			return renderCell(lookup(rec, field), format)
		},
	}
}

// CellText formats a record field as plain text, the way exports show it.
func (s ColumnSpec) CellText(rec remote.Record) string {
	return formatText(lookup(rec, s.Field), s.Format)
}

// lookup resolves a dotted field path.
func lookup(rec remote.Record, field string) any {
	var cur any = map[string]any(rec)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func renderCell(v any, format string) templ.Component {
	if format != FormatStatus {
		return listing.Text(formatText(v, format))
	}
	text := formatText(v, FormatText)
	if text == "" {
		return listing.Text("")
	}
	class := "badge badge-" + strings.ToLower(strings.ReplaceAll(text, " ", "-"))
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<span class="%s">%s</span>`, templ.EscapeString(class), templ.EscapeString(text))
		return err
	})
}

func formatText(v any, format string) string {
	if v == nil {
		return ""
	}
	switch format {
	case FormatMoney:
		if f, ok := toNumber(v); ok {
			return formatMoney(f)
		}
	case FormatDate:
		if t, ok := toTime(v); ok {
			return t.Format("Jan 2, 2006")
		}
	case FormatBool:
		switch b := v.(type) {
		case bool:
			return listing.FormatValue(b)
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return listing.FormatValue(parsed)
			}
		}
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return listing.FormatValue(v)
}

// sortValue returns a value that orders naturally for the format.
func sortValue(v any, format string) any {
	switch format {
	case FormatMoney:
		if f, ok := toNumber(v); ok {
			return f
		}
	case FormatDate:
		if t, ok := toTime(v); ok {
			return t
		}
	}
	return v
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// formatMoney renders 1234567.5 as "1,234,567.50".
func formatMoney(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}
