// Package catalog declares the collections the console can list and edit.
//
// Collections are described in TOML or YAML. The binary embeds a default
// catalog; CATALOG_PATH replaces it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

//go:embed default.toml
var defaultCatalog []byte

// Column formats.
const (
	FormatText   = "text"
	FormatMoney  = "money"
	FormatDate   = "date"
	FormatBool   = "bool"
	FormatStatus = "status"
)

// ColumnSpec declares one table column.
type ColumnSpec struct {
	Key      string `toml:"key" yaml:"key"`
	Header   string `toml:"header" yaml:"header"`
	Field    string `toml:"field" yaml:"field"` // dotted path into the record; defaults to Key
	Format   string `toml:"format" yaml:"format"`
	Sortable bool   `toml:"sortable" yaml:"sortable"`
	Required bool   `toml:"required" yaml:"required"`
	Hidden   bool   `toml:"hidden" yaml:"hidden"`
}

// Collection declares one remote collection and how it is shown.
type Collection struct {
	Name          string       `toml:"name" yaml:"name"`
	Label         string       `toml:"label" yaml:"label"`
	Group         string       `toml:"group" yaml:"group"`
	Path          string       `toml:"path" yaml:"path"`
	ItemsField    string       `toml:"items_field" yaml:"items_field"`
	IDField       string       `toml:"id_field" yaml:"id_field"`
	Single        bool         `toml:"single" yaml:"single"`
	StaleAfter    Duration     `toml:"stale_after" yaml:"stale_after"`
	PageSize      int          `toml:"page_size" yaml:"page_size"`
	Dependents    []string     `toml:"dependents" yaml:"dependents"`
	ClientSort    bool         `toml:"client_sort" yaml:"client_sort"`
	Mutations     []string     `toml:"mutations" yaml:"mutations"`
	ExportFormats []string     `toml:"export_formats" yaml:"export_formats"`
	Filters       []string     `toml:"filters" yaml:"filters"`
	Columns       []ColumnSpec `toml:"columns" yaml:"columns"`
}

// Endpoint returns the remote endpoint of the collection.
func (c Collection) Endpoint() remote.Endpoint {
	return remote.Endpoint{
		Collection: c.Name,
		Path:       c.Path,
		ItemsField: c.ItemsField,
		Single:     c.Single,
	}
}

// RowID returns the identifier of a record.
func (c Collection) RowID(rec remote.Record) string {
	return listing.FormatValue(lookup(rec, c.IDField))
}

// Allows reports whether the collection accepts mutations of kind.
func (c Collection) Allows(kind listing.MutationKind) bool {
	for _, m := range c.Mutations {
		if k, ok := listing.ParseMutationKind(m); ok && k == kind {
			return true
		}
	}
	return false
}

// Exports reports whether format is offered for the collection.
func (c Collection) Exports(format string) bool {
	for _, f := range c.ExportFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// HasFilter reports whether name is a declared filter.
func (c Collection) HasFilter(name string) bool {
	for _, f := range c.Filters {
		if f == name {
			return true
		}
	}
	return false
}

// SortMode returns where the collection is sorted.
func (c Collection) SortMode() listing.SortMode {
	if c.ClientSort {
		return listing.ClientSort
	}
	return listing.ServerSort
}

// Duration is a time.Duration written as "90s" or "5m".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML parses a duration scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type file struct {
	Collections []Collection `toml:"collections" yaml:"collections"`
}

// Load reads the catalog at path. An empty path loads the embedded default.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog, FormatTOML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	format, err := formatFromPath(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}

// Default returns the embedded catalog.
func Default() *Registry {
	reg, err := Parse(defaultCatalog, FormatTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return reg
}

// File formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

func formatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported catalog file %q (want .toml, .yaml or .yml)", path)
}

// Parse decodes a catalog and validates it.
func Parse(data []byte, format string) (*Registry, error) {
	var f file
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}

	reg := NewRegistry()
	var errs []error
	for _, c := range f.Collections {
		c = applyDefaults(c)
		if err := validate(c); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range reg.All() {
		for _, dep := range c.Dependents {
			if _, ok := reg.Get(dep); !ok {
				errs = append(errs, fmt.Errorf("collection %s: unknown dependent %q", c.Name, dep))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func applyDefaults(c Collection) Collection {
	c.Name = strings.TrimSpace(c.Name)
	if c.Label == "" {
		c.Label = c.Name
	}
	if c.Group == "" {
		c.Group = "General"
	}
	if c.IDField == "" {
		c.IDField = "id"
	}
	if c.PageSize <= 0 {
		c.PageSize = listing.DefaultPageSize
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = Duration(time.Minute)
	}
	for i := range c.Columns {
		col := &c.Columns[i]
		if col.Field == "" {
			col.Field = col.Key
		}
		if col.Header == "" {
			col.Header = col.Key
		}
		if col.Format == "" {
			col.Format = FormatText
		}
	}
	return c
}

func validate(c Collection) error {
	var problems []string
	if c.Name == "" {
		problems = append(problems, "name is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		problems = append(problems, "path must start with /")
	}
	if len(c.Columns) == 0 {
		problems = append(problems, "at least one column is required")
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		switch {
		case col.Key == "":
			problems = append(problems, "column key is required")
		case seen[col.Key]:
			problems = append(problems, fmt.Sprintf("duplicate column %q", col.Key))
		}
		seen[col.Key] = true
		switch col.Format {
		case FormatText, FormatMoney, FormatDate, FormatBool, FormatStatus:
		default:
			problems = append(problems, fmt.Sprintf("column %q: unknown format %q", col.Key, col.Format))
		}
	}
	for _, f := range c.Filters {
		if remote.ReservedParam(f) {
			problems = append(problems, fmt.Sprintf("filter %q clashes with a list query parameter", f))
		}
	}
	for _, m := range c.Mutations {
		if _, ok := listing.ParseMutationKind(m); !ok {
			problems = append(problems, fmt.Sprintf("unknown mutation %q", m))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("collection %q: %s", c.Name, strings.Join(problems, "; "))
	}
	return nil
}
