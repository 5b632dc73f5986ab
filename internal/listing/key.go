package listing

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultPageSize is used when a key or controller is built without a page size.
const DefaultPageSize = 10

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" (any case) and Asc otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort is the active sort column. An empty Column means unsorted.
type Sort struct {
	Column    string
	Direction Direction
}

// IsZero reports whether no sort is active.
func (s Sort) IsZero() bool {
	return s.Column == ""
}

func (s Sort) String() string {
	if s.IsZero() {
		return "none"
	}
	dir := s.Direction
	if dir == "" {
		dir = Asc
	}
	return s.Column + "." + string(dir)
}

// Key identifies one view of a collection: pagination, filters and sort.
// Keys are compared by value; String returns the canonical cache index.
type Key struct {
	Collection string
	Page       int
	PageSize   int
	Filters    map[string]any
	Sort       Sort
}

// NewKey builds a normalised key. Page is clamped to 1, a non-positive page size
// becomes DefaultPageSize, nil and empty-string filters are dropped and numeric
// filter values are widened so that 3 and int64(3) produce the same key.
func NewKey(collection string, page, pageSize int, filters map[string]any, s Sort) Key {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if s.Column == "" {
		s = Sort{}
	} else if s.Direction != Desc {
		s.Direction = Asc
	}

	var clean map[string]any
	for name, v := range filters {
		nv, ok := normalizeScalar(v)
		if !ok {
			continue
		}
		if clean == nil {
			clean = make(map[string]any, len(filters))
		}
		clean[name] = nv
	}

	return Key{
		Collection: collection,
		Page:       page,
		PageSize:   pageSize,
		Filters:    clean,
		Sort:       s,
	}
}

// Filter returns the value of a filter and whether it is set.
func (k Key) Filter(name string) (any, bool) {
	v, ok := k.Filters[name]
	return v, ok
}

// String renders the canonical form of the key:
//
//	currencies:page=2&size=25&sort=code.asc&f.active=bool:true&f.search=string:eu
//
// Filters are sorted by name and tagged with their type, so keys that are deep
// equal always render the same string and keys that differ never collide.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Collection)
	b.WriteString(":page=")
	b.WriteString(strconv.Itoa(k.Page))
	b.WriteString("&size=")
	b.WriteString(strconv.Itoa(k.PageSize))
	b.WriteString("&sort=")
	b.WriteString(url.QueryEscape(k.Sort.String()))

	names := make([]string, 0, len(k.Filters))
	for name := range k.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("&f.")
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(scalarString(k.Filters[name])))
	}
	return b.String()
}

// Equal reports whether two keys identify the same view.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// Matches reports whether the key belongs to collection. Invalidating a
// collection affects every key for which Matches is true.
func (k Key) Matches(collection string) bool {
	return k.Collection == collection
}

// WithPage returns a copy of the key pointing at another page.
func (k Key) WithPage(page int) Key {
	return NewKey(k.Collection, page, k.PageSize, k.Filters, k.Sort)
}

// normalizeScalar widens numbers and rejects values that cannot be part of a key.
func normalizeScalar(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string:
		if val == "" {
			return nil, false
		}
		return val, true
	case bool:
		return val, true
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return "string:" + val
	case bool:
		return "bool:" + strconv.FormatBool(val)
	case int64:
		return "int:" + strconv.FormatInt(val, 10)
	case float64:
		return "float:" + strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

// FilterString formats a filter value for transport (query strings, exports).
func FilterString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
