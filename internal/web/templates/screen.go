package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

// PageSizes are the page sizes offered by the page-size picker.
var PageSizes = []int{10, 25, 50, 100}

// ScreenParams is everything a collection screen renders.
type ScreenParams struct {
	Collection    catalog.Collection
	View          listing.TableView
	Params        listing.Params
	Search        string
	SearchPending bool
	MaxPageSize   int
	Perms         listing.Permissions
	Picker        *PickerParams // nil while the column picker is closed
}

// PickerParams is the state of the column picker overlay.
type PickerParams struct {
	ID         string
	Collection string
	Query      string
	Options    []core.ColumnOption
	AllVisible bool
}

// ScreenPage renders the full page of a collection screen.
func ScreenPage(sidebar SidebarParams, p ScreenParams) templ.Component {
	return Layout(p.Collection.Label, sidebar, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		name := p.Collection.Name
		base := ScreenURL(name)

		pr.printf(`<header class="screen-header"><h1>%s</h1>`, esc(p.Collection.Label))
		if p.Perms.CanExport {
			for _, f := range p.Collection.ExportFormats {
				pr.printf(`<a class="btn" href="%s/export/%s">Export %s</a>`, esc(base), esc(f), esc(f))
			}
		}
		pr.printf(`<button class="btn" hx-post="%s/reset" hx-swap="none">Reset view</button>`, esc(base))
		pr.printf(`</header>`)

		if !p.Collection.Single {
			pr.printf(`<div class="toolbar">`)
			pr.printf(`<input type="search" name="q" value="%s" placeholder="Search %s" hx-post="%s/search" hx-trigger="input changed" hx-target="#%s" hx-swap="outerHTML">`,
				esc(p.Search), esc(p.Collection.Label), esc(base), esc(ContainerID(name)))
			for _, f := range p.Collection.Filters {
				value := ""
				if v, ok := p.Params.Filters[f]; ok {
					value = listing.FilterString(v)
				}
				pr.printf(`<form hx-post="%s/filter" hx-trigger="change" hx-target="#%s" hx-swap="outerHTML"><input type="hidden" name="name" value="%s"><input name="value" value="%s" placeholder="%s"></form>`,
					esc(base), esc(ContainerID(name)), esc(f), esc(value), esc(f))
			}
			if len(p.Params.Filters) > 0 {
				pr.printf(`<button class="btn-link" hx-post="%s/filter" hx-target="#%s" hx-swap="outerHTML">Clear filters</button>`,
					esc(base), esc(ContainerID(name)))
			}
			pr.printf(`</div>`)
		}

		if p.Collection.Allows(listing.Create) && p.Perms.CanCreate {
			pr.printf(`<details class="create"><summary>New %s</summary><form hx-post="%s/mutations/create" hx-swap="none"><textarea name="data" rows="6">{}</textarea><button class="btn">Create</button></form></details>`,
				esc(p.Collection.Label), esc(base))
		}

		pr.render(ctx, ScreenContainer(p))
		pr.printf(`<aside id="detail"></aside>`)

		stream, err := json.Marshal(base + "/events")
		if err != nil {
			return err
		}
		container, err := json.Marshal(ContainerID(name))
		if err != nil {
			return err
		}
		pr.printf(`<script>(function(){var es=new EventSource(%s);es.addEventListener("reload",function(){var el=document.getElementById(%s);if(el){htmx.trigger(el,"reload");}});})();</script>`,
			stream, container)
		return pr.err
	}))
}

// ScreenContainer renders the swappable part of a screen: the table with its
// pager, page size and column picker. Controls inside it inherit the
// container as their swap target.
func ScreenContainer(p ScreenParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		name := p.Collection.Name
		base := ScreenURL(name)

		pr.printf(`<div id="%s" class="table-container" hx-get="%s/table" hx-trigger="reload" hx-target="this" hx-swap="outerHTML">`,
			esc(ContainerID(name)), esc(base))

		pr.printf(`<div class="table-controls">`)
		if p.Picker != nil {
			pr.printf(`<button class="btn" hx-post="%s/overlay/close" aria-expanded="true">Columns</button>`, esc(base))
		} else {
			pr.printf(`<button class="btn" hx-post="%s/overlay/open" aria-expanded="false">Columns</button>`, esc(base))
		}
		if p.SearchPending {
			pr.printf(`<span class="search-pending">Searching…</span>`)
		}
		if !p.Collection.Single {
			renderPageSize(pr, base, p.Params.PageSize, p.MaxPageSize)
		}
		pr.printf(`</div>`)

		if p.Picker != nil {
			pr.render(ctx, ColumnPicker(*p.Picker))
		}

		pr.render(ctx, p.View.Component(listing.RenderOptions{
			ID:        "grid-" + name,
			SortURL:   func(key string) string { return base + "/sort/" + key },
			RowURL:    func(id string) string { return base + "/rows/" + id },
			EmptyText: "No " + p.Collection.Label + " found",
		}))

		renderPager(pr, base, p.View)
		pr.printf(`</div>`)
		return pr.err
	})
}

func renderPageSize(pr *printer, base string, current, max int) {
	pr.printf(`<select name="size" hx-post="%s/page-size" hx-trigger="change">`, esc(base))
	for _, n := range PageSizes {
		if max > 0 && n > max {
			continue
		}
		selected := ""
		if n == current {
			selected = " selected"
		}
		pr.printf(`<option value="%d"%s>%d per page</option>`, n, selected, n)
	}
	pr.printf(`</select>`)
}

func renderPager(pr *printer, base string, v listing.TableView) {
	if v.TotalPages <= 1 {
		return
	}
	pr.printf(`<nav class="pager">`)
	if v.Page > 1 {
		pr.printf(`<button class="btn" hx-post="%s/page/%d">Previous</button>`, esc(base), v.Page-1)
	}
	if v.Page < v.TotalPages {
		pr.printf(`<button class="btn" hx-post="%s/page/%d">Next</button>`, esc(base), v.Page+1)
	}
	pr.printf(`</nav>`)
}

// ColumnPicker renders the column picker overlay.
func ColumnPicker(p PickerParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		base := ScreenURL(p.Collection)
		listID := p.ID + "/list"

		pr.printf(`<div id="%s" class="overlay" role="dialog" aria-label="Columns">`, esc(p.ID))
		pr.printf(`<input type="search" name="q" value="%s" placeholder="Find column" hx-get="%s/columns" hx-trigger="input changed" hx-target="[id='%s']" hx-swap="innerHTML">`,
			esc(p.Query), esc(base), esc(listID))
		label := "Show all"
		if p.AllVisible {
			label = "Required only"
		}
		pr.printf(`<button class="btn-link" hx-post="%s/columns/toggle-all">%s</button>`, esc(base), label)
		pr.printf(`<ul id="%s">`, esc(listID))
		pr.render(ctx, ColumnOptions(p))
		pr.printf(`</ul></div>`)
		return pr.err
	})
}

// ColumnOptions renders the picker entries matching the query.
func ColumnOptions(p PickerParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		base := ScreenURL(p.Collection)
		if len(p.Options) == 0 {
			pr.printf(`<li class="empty">No matching columns</li>`)
			return pr.err
		}
		for _, opt := range p.Options {
			checked := ""
			if opt.Visible {
				checked = " checked"
			}
			if opt.Required {
				pr.printf(`<li><label><input type="checkbox"%s disabled> %s</label></li>`, checked, esc(opt.Header))
				continue
			}
			pr.printf(`<li><label><input type="checkbox"%s hx-post="%s/columns/%s/toggle" hx-target="#%s" hx-swap="outerHTML"> %s</label></li>`,
				checked, esc(base), esc(opt.Key), esc(ContainerID(p.Collection)), esc(opt.Header))
		}
		return pr.err
	})
}

// RecordDetail renders the selected record with the actions the caller may
// take on it.
func RecordDetail(coll catalog.Collection, rec remote.Record, perms listing.Permissions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		id := coll.RowID(rec)
		base := ScreenURL(coll.Name)

		pr.printf(`<section class="record" data-id="%s"><dl>`, esc(id))
		for _, c := range coll.Columns {
			pr.printf(`<dt>%s</dt><dd>%s</dd>`, esc(c.Header), esc(c.CellText(rec)))
		}
		pr.printf(`</dl>`)

		vals, err := json.Marshal(map[string]string{"id": id, "version": rec.String("version")})
		if err != nil {
			return err
		}
		for _, kind := range []listing.MutationKind{listing.Update, listing.ToggleStatus, listing.SetDefault, listing.Delete} {
			if !coll.Allows(kind) || !perms.Allows(kind) {
				continue
			}
			confirm := ""
			if kind == listing.Delete {
				confirm = fmt.Sprintf(` hx-confirm="Delete %s?"`, esc(id))
			}
			if kind == listing.Update {
				data, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				pr.printf(`<form hx-post="%s/mutations/%s" hx-swap="none" hx-vals="%s"><textarea name="data" rows="6">%s</textarea><button class="btn">Save</button></form>`,
					esc(base), kind, esc(string(vals)), esc(string(data)))
				continue
			}
			pr.printf(`<button class="btn" hx-post="%s/mutations/%s" hx-swap="none" hx-vals="%s"%s>%s</button>`,
				esc(base), kind, esc(string(vals)), confirm, esc(actionLabel(kind)))
		}
		pr.printf(`</section>`)
		return pr.err
	})
}

func actionLabel(kind listing.MutationKind) string {
	switch kind {
	case listing.Delete:
		return "Delete"
	case listing.SetDefault:
		return "Make default"
	case listing.ToggleStatus:
		return "Toggle status"
	}
	return string(kind)
}

// Dashboard lists every collection by group.
func Dashboard(sidebar SidebarParams, reg *catalog.Registry) templ.Component {
	return Layout("Dashboard", sidebar, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pr := &printer{w: w}
		pr.printf(`<h1>Lists</h1><p>%s collections</p>`, strconv.Itoa(reg.Len()))
		for _, group := range reg.Groups() {
			title := group
			if title == "" {
				title = "General"
			}
			pr.printf(`<section class="group"><h2>%s</h2><ul class="cards">`, esc(title))
			for _, c := range reg.ByGroup(group) {
				pr.printf(`<li><a class="card" href="%s">%s</a></li>`, esc(ScreenURL(c.Name)), esc(c.Label))
			}
			pr.printf(`</ul></section>`)
		}
		return pr.err
	}))
}
