package listing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Indicator is what a header shows for the sort state.
type Indicator string

const (
	IndicatorNone    Indicator = ""        // column is not sortable
	IndicatorNeutral Indicator = "neutral" // sortable, not active
	IndicatorAsc     Indicator = "asc"
	IndicatorDesc    Indicator = "desc"
)

// SortMode selects where sorting happens.
type SortMode int

const (
	// ServerSort folds the sort into the query key; the server returns sorted pages.
	ServerSort SortMode = iota
	// ClientSort reorders only the page currently displayed.
	ClientSort
)

// Sorter holds the single active sort of a table instance.
//
//	Unsorted      --click c-->  Ascending(c)
//	Ascending(c)  --click c-->  Descending(c)
//	Descending(c) --click c-->  Ascending(c)
//	any(c1)       --click c2--> Ascending(c2)
//
// Clicks on non-sortable columns, or while disabled, do nothing.
type Sorter[T any] struct {
	columns  map[string]Column[T]
	mode     SortMode
	state    Sort
	disabled bool
	onChange func(Sort)
}

// NewSorter creates a sorter. initial is ignored unless it names a sortable column.
func NewSorter[T any](columns []Column[T], mode SortMode, initial Sort) *Sorter[T] {
	s := &Sorter[T]{
		columns: make(map[string]Column[T], len(columns)),
		mode:    mode,
	}
	for _, c := range columns {
		s.columns[c.Key] = c
	}
	if c, ok := s.columns[initial.Column]; ok && c.Sortable {
		s.state = Sort{Column: initial.Column, Direction: ParseDirection(string(initial.Direction))}
	}
	return s
}

// Mode returns the sort mode.
func (s *Sorter[T]) Mode() SortMode {
	return s.mode
}

// State returns the active sort.
func (s *Sorter[T]) State() Sort {
	return s.state
}

// SetDisabled enables or disables header clicks.
func (s *Sorter[T]) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether clicks are ignored.
func (s *Sorter[T]) Disabled() bool {
	return s.disabled
}

// OnChange sets the function called after every state change.
func (s *Sorter[T]) OnChange(fn func(Sort)) {
	s.onChange = fn
}

// Bind makes a server-mode sorter drive the controller's sort. The
// controller returns to page 1 on every change.
func (s *Sorter[T]) Bind(c *Controller) {
	if s.mode != ServerSort {
		return
	}
	s.onChange = func(st Sort) { c.SetSort(st.Column, st.Direction) }
}

// Click applies a header click on key and reports whether the state changed.
func (s *Sorter[T]) Click(key string) (Sort, bool) {
	if s.disabled {
		return s.state, false
	}
	col, ok := s.columns[key]
	if !ok || !col.Sortable {
		return s.state, false
	}

	switch {
	case s.state.Column == key && s.state.Direction == Asc:
		s.state.Direction = Desc
	case s.state.Column == key:
		s.state.Direction = Asc
	default:
		s.state = Sort{Column: key, Direction: Asc}
	}

	if s.onChange != nil {
		s.onChange(s.state)
	}
	return s.state, true
}

// Indicator returns the header indicator for key.
func (s *Sorter[T]) Indicator(key string) Indicator {
	col, ok := s.columns[key]
	if !ok || !col.Sortable {
		return IndicatorNone
	}
	if s.state.Column != key {
		return IndicatorNeutral
	}
	if s.state.Direction == Desc {
		return IndicatorDesc
	}
	return IndicatorAsc
}

// SortItems returns items reordered by the active sort in client mode. In
// server mode, or when unsorted, items are returned as is.
func (s *Sorter[T]) SortItems(items []T) []T {
	if s.mode != ClientSort || s.state.IsZero() {
		return items
	}
	col, ok := s.columns[s.state.Column]
	if !ok || col.Value == nil {
		return items
	}

	out := make([]T, len(items))
	copy(out, items)
	desc := s.state.Direction == Desc
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareValues(col.Value(out[i]), col.Value(out[j]))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// CompareValues orders two cell values. nil sorts first; numbers compare
// numerically, strings case-insensitively, everything else by its text.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}

	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
