package listing

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Header is one rendered column header.
type Header struct {
	Key       string
	Label     string
	Sortable  bool
	Required  bool
	Indicator Indicator
}

// Row is one rendered data row.
type Row struct {
	ID    string
	Cells []templ.Component
}

// TableView is everything needed to draw a table for one result.
type TableView struct {
	Headers      []Header
	Rows         []Row
	Empty        bool   // loaded successfully with no rows
	Loading      bool   // nothing to show yet
	ErrorMessage string // set when the last fetch failed; rows may be last-good data
	Stale        bool
	Refreshing   bool
	Page         int
	PageSize     int
	Total        int
	TotalPages   int
	Disabled     bool
}

// Table projects a result through column visibility and sort state. It holds
// no data of its own.
type Table[T any] struct {
	visibility *Visibility[T]
	sorter     *Sorter[T]
	rowID      func(T) string
	message    func(error) string

	onSort func(key string)
	onRow  func(item T)
}

// NewTable creates a table. rowID may be nil, in which case rows are
// identified by position.
func NewTable[T any](visibility *Visibility[T], sorter *Sorter[T], rowID func(T) string) *Table[T] {
	return &Table[T]{
		visibility: visibility,
		sorter:     sorter,
		rowID:      rowID,
	}
}

// Visibility returns the column visibility state.
func (t *Table[T]) Visibility() *Visibility[T] {
	return t.visibility
}

// Sorter returns the sort state.
func (t *Table[T]) Sorter() *Sorter[T] {
	return t.sorter
}

// OnSort sets the function told about effective header clicks.
func (t *Table[T]) OnSort(fn func(key string)) {
	t.onSort = fn
}

// OnRow sets the function told about row clicks.
func (t *Table[T]) OnRow(fn func(item T)) {
	t.onRow = fn
}

// SetErrorMessage overrides how fetch errors are worded in the banner.
func (t *Table[T]) SetErrorMessage(fn func(error) string) {
	t.message = fn
}

// ClickHeader forwards a header click to the sorter and reports whether the
// sort changed.
func (t *Table[T]) ClickHeader(key string) bool {
	if _, changed := t.sorter.Click(key); !changed {
		return false
	}
	if t.onSort != nil {
		t.onSort(key)
	}
	return true
}

// ClickRow reports a row click upward.
func (t *Table[T]) ClickRow(item T) {
	if t.onRow != nil {
		t.onRow(item)
	}
}

// Project renders res into a view.
func (t *Table[T]) Project(res Result[T]) TableView {
	cols := t.visibility.Visible()

	view := TableView{
		Headers:    make([]Header, len(cols)),
		Page:       res.Key.Page,
		PageSize:   res.Key.PageSize,
		Stale:      res.Stale,
		Refreshing: res.Refreshing,
		Disabled:   t.sorter.Disabled(),
	}
	for i, c := range cols {
		view.Headers[i] = Header{
			Key:       c.Key,
			Label:     c.Header,
			Sortable:  c.Sortable,
			Required:  c.Required,
			Indicator: t.sorter.Indicator(c.Key),
		}
	}

	if res.Err != nil && res.Status == StatusError {
		view.ErrorMessage = MessageFor(res.Err, t.message)
	}

	if !res.HasData {
		view.Loading = res.Err == nil
		return view
	}

	view.Total = res.Page.Total
	view.TotalPages = res.Page.TotalPages

	items := t.sorter.SortItems(res.Page.Items)
	view.Empty = len(items) == 0
	view.Rows = make([]Row, len(items))
	for i, item := range items {
		row := Row{Cells: make([]templ.Component, len(cols))}
		if t.rowID != nil {
			row.ID = t.rowID(item)
		} else {
			row.ID = strconv.Itoa(i)
		}
		for j, c := range cols {
			row.Cells[j] = c.Cell(item)
		}
		view.Rows[i] = row
	}
	return view
}

// RenderOptions are the hooks a page passes to TableView.Component.
// SortURL is the header click target; nil renders plain headers.
type RenderOptions struct {
	ID        string
	SortURL   func(key string) string
	RowURL    func(id string) string
	EmptyText string
}

// Component renders the view as an HTML table.
func (v TableView) Component(opts RenderOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}

		if v.ErrorMessage != "" {
			p.printf(`<div class="table-error" role="alert">%s</div>`, templ.EscapeString(v.ErrorMessage))
		}
		if v.Stale || v.Refreshing {
			p.printf(`<div class="table-refreshing" aria-live="polite">Refreshing…</div>`)
		}

		p.printf(`<table id="%s" class="data-table">`, templ.EscapeString(opts.ID))
		p.printf(`<thead><tr>`)
		for _, h := range v.Headers {
			v.renderHeader(p, h, opts)
		}
		p.printf(`</tr></thead><tbody>`)

		switch {
		case v.Loading:
			p.printf(`<tr><td colspan="%d" class="table-loading">Loading…</td></tr>`, len(v.Headers))
		case v.Empty:
			text := opts.EmptyText
			if text == "" {
				text = "No records found"
			}
			p.printf(`<tr><td colspan="%d" class="table-empty">%s</td></tr>`, len(v.Headers), templ.EscapeString(text))
		}
		if p.err != nil {
			return p.err
		}

		for _, row := range v.Rows {
			if opts.RowURL != nil {
				p.printf(`<tr data-id="%s" hx-get="%s" hx-target="#detail">`,
					templ.EscapeString(row.ID), templ.EscapeString(opts.RowURL(row.ID)))
			} else {
				p.printf(`<tr data-id="%s">`, templ.EscapeString(row.ID))
			}
			for _, cell := range row.Cells {
				p.printf(`<td>`)
				if p.err == nil {
					p.err = cell.Render(ctx, w)
				}
				p.printf(`</td>`)
			}
			p.printf(`</tr>`)
		}
		p.printf(`</tbody></table>`)

		if v.TotalPages > 0 {
			p.printf(`<div class="table-summary">Page %d of %d (%d records)</div>`, v.Page, v.TotalPages, v.Total)
		}
		return p.err
	})
}

func (v TableView) renderHeader(p *printer, h Header, opts RenderOptions) {
	if !h.Sortable || opts.SortURL == nil || v.Disabled {
		p.printf(`<th data-key="%s">%s</th>`, templ.EscapeString(h.Key), templ.EscapeString(h.Label))
		return
	}
	sortAttr := "none"
	switch h.Indicator {
	case IndicatorAsc:
		sortAttr = "ascending"
	case IndicatorDesc:
		sortAttr = "descending"
	}
	p.printf(`<th data-key="%s" aria-sort="%s"><button hx-post="%s" hx-target="closest .table-container">%s <span class="sort-%s"></span></button></th>`,
		templ.EscapeString(h.Key), sortAttr, templ.EscapeString(opts.SortURL(h.Key)),
		templ.EscapeString(h.Label), h.Indicator)
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
