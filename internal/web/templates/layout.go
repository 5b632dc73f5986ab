// Package templates renders the console's HTML as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
)

// htmxSrc is the HTMX build the pages load.
const htmxSrc = "https://unpkg.com/htmx.org@2.0.4"

// NavGroup is one sidebar section.
type NavGroup struct {
	Name  string
	Items []NavItem
}

// NavItem is one sidebar link.
type NavItem struct {
	Name   string
	Label  string
	Active bool
}

// SidebarParams holds the navigation state.
type SidebarParams struct {
	Groups     []NavGroup
	ActivePage string
}

// Sidebar builds the navigation from the catalog, marking active.
func Sidebar(reg *catalog.Registry, active string) SidebarParams {
	params := SidebarParams{ActivePage: active}
	for _, group := range reg.Groups() {
		g := NavGroup{Name: group}
		for _, c := range reg.ByGroup(group) {
			g.Items = append(g.Items, NavItem{Name: c.Name, Label: c.Label, Active: c.Name == active})
		}
		params.Groups = append(params.Groups, g)
	}
	return params
}

// Layout wraps body in the page shell.
func Layout(title string, sidebar SidebarParams, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.printf(`<title>%s · ledgerdesk</title>`, esc(title))
		p.printf(`<script src="%s"></script>`, htmxSrc)
		p.printf(`</head><body><div class="app">`)
		renderSidebar(p, sidebar)
		p.printf(`<main class="content"><div id="toasts" aria-live="polite"></div>`)
		p.render(ctx, body)
		p.printf(`</main></div></body></html>`)
		return p.err
	})
}

func renderSidebar(p *printer, s SidebarParams) {
	p.printf(`<nav class="sidebar"><a class="brand" href="/">ledgerdesk</a>`)
	for _, g := range s.Groups {
		if g.Name != "" {
			p.printf(`<h3>%s</h3>`, esc(g.Name))
		}
		p.printf(`<ul>`)
		for _, item := range g.Items {
			class := ""
			if item.Active {
				class = ` class="active"`
			}
			p.printf(`<li><a href="%s"%s>%s</a></li>`, esc(ScreenURL(item.Name)), class, esc(item.Label))
		}
		p.printf(`</ul>`)
	}
	auditClass := ""
	if s.ActivePage == "audit" {
		auditClass = ` class="active"`
	}
	p.printf(`<a href="/audit"%s>Audit log</a></nav>`, auditClass)
}

// ScreenURL is the page of a collection screen.
func ScreenURL(collection string) string {
	return "/screens/" + collection
}

// ContainerID is the element id of a screen's table container.
func ContainerID(collection string) string {
	return "table-" + collection
}

func esc(s string) string {
	return templ.EscapeString(s)
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

func (p *printer) render(ctx context.Context, c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}
