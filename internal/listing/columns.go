package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Column describes one table column over rows of type T.
type Column[T any] struct {
	Key      string // unique within a table
	Header   string
	Sortable bool
	Required bool // always visible; the user cannot hide it
	Hidden   bool // not visible until the user enables it

	// Value extracts the raw cell value, used for client-side sorting and
	// exports. Render falls back to it when nil.
	Value func(T) any

	// Render draws the cell.
	Render func(T) templ.Component
}

// Cell renders the column for item.
func (c Column[T]) Cell(item T) templ.Component {
	if c.Render != nil {
		return c.Render(item)
	}
	if c.Value != nil {
		return Text(FormatValue(c.Value(item)))
	}
	return Text("")
}

// Text renders escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// FormatValue renders a raw value as display text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(val)
	}
}

// Visibility is the set of visible columns of one table instance. It is reset
// only by creating a new one, never by a data refresh.
type Visibility[T any] struct {
	columns []Column[T]
	visible map[string]bool
}

// NewVisibility seeds the visible set with every column that is not hidden,
// plus every required column.
func NewVisibility[T any](columns []Column[T]) *Visibility[T] {
	v := &Visibility[T]{
		columns: columns,
		visible: make(map[string]bool, len(columns)),
	}
	for _, c := range columns {
		if !c.Hidden || c.Required {
			v.visible[c.Key] = true
		}
	}
	return v
}

// Columns returns every declared column.
func (v *Visibility[T]) Columns() []Column[T] {
	return v.columns
}

// Column returns the declared column with key.
func (v *Visibility[T]) Column(key string) (Column[T], bool) {
	for _, c := range v.columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// IsVisible reports whether key is shown.
func (v *Visibility[T]) IsVisible(key string) bool {
	return v.visible[key]
}

// Toggle flips key and reports whether anything changed. Required and
// unknown columns are left alone.
func (v *Visibility[T]) Toggle(key string) bool {
	col, ok := v.Column(key)
	if !ok || col.Required {
		return false
	}
	if v.visible[key] {
		delete(v.visible, key)
	} else {
		v.visible[key] = true
	}
	return true
}

// AllVisible reports whether every declared column is shown.
func (v *Visibility[T]) AllVisible() bool {
	for _, c := range v.columns {
		if !v.visible[c.Key] {
			return false
		}
	}
	return true
}

// ToggleAll hides every optional column when all columns are shown, and
// shows all columns otherwise.
func (v *Visibility[T]) ToggleAll() {
	if v.AllVisible() {
		v.visible = make(map[string]bool, len(v.columns))
		for _, c := range v.columns {
			if c.Required {
				v.visible[c.Key] = true
			}
		}
		return
	}
	for _, c := range v.columns {
		v.visible[c.Key] = true
	}
}

// Visible returns the shown columns in declaration order.
func (v *Visibility[T]) Visible() []Column[T] {
	out := make([]Column[T], 0, len(v.visible))
	for _, c := range v.columns {
		if v.visible[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// Keys returns the keys of the shown columns in declaration order.
func (v *Visibility[T]) Keys() []string {
	cols := v.Visible()
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}

// Search returns the declared columns whose header or key fuzzily matches
// query, in declaration order. An empty query returns all columns.
func (v *Visibility[T]) Search(query string) []Column[T] {
	if query == "" {
		return v.columns
	}
	var out []Column[T]
	for _, c := range v.columns {
		if fuzzy.MatchFold(query, c.Header) || fuzzy.MatchFold(query, c.Key) {
			out = append(out, c)
		}
	}
	return out
}
