package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
)

// AuditFilter is the audit log filter as typed into the form.
type AuditFilter struct {
	Collection string
	Action     string
	Severity   string
	Actor      string
	FailedOnly bool
	StartDate  string
	EndDate    string
}

// Query encodes the filter as URL parameters.
func (f AuditFilter) Query() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("collection", f.Collection)
	set("action", f.Action)
	set("severity", f.Severity)
	set("actor", f.Actor)
	set("from", f.StartDate)
	set("to", f.EndDate)
	if f.FailedOnly {
		v.Set("failed", "true")
	}
	return v
}

// AuditLogViewParams is one page of the audit log.
type AuditLogViewParams struct {
	Entries     []core.AuditEntry
	Page        int
	HasNext     bool
	Filter      AuditFilter
	Collections []string
}

// AuditLogPage renders the audit log with its filter form.
func AuditLogPage(sidebar SidebarParams, params AuditLogViewParams) templ.Component {
	return Layout("Audit log", sidebar, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		f := params.Filter
		p.printf(`<h1>Audit log</h1>`)
		p.printf(`<form class="toolbar" hx-get="/audit" hx-target="#audit-log" hx-swap="outerHTML" hx-trigger="change">`)
		p.printf(`<select name="collection"><option value="">All lists</option>`)
		for _, c := range params.Collections {
			sel := ""
			if c == f.Collection {
				sel = " selected"
			}
			p.printf(`<option value="%s"%s>%s</option>`, esc(c), sel, esc(c))
		}
		p.printf(`</select>`)
		p.printf(`<select name="severity"><option value="">Any severity</option>`)
		for _, s := range []core.AuditSeverity{core.SeverityLow, core.SeverityMedium, core.SeverityHigh} {
			sel := ""
			if string(s) == f.Severity {
				sel = " selected"
			}
			p.printf(`<option value="%s"%s>%s</option>`, s, sel, s)
		}
		p.printf(`</select>`)
		p.printf(`<input name="actor" value="%s" placeholder="Actor">`, esc(f.Actor))
		p.printf(`<input type="date" name="from" value="%s"><input type="date" name="to" value="%s">`, esc(f.StartDate), esc(f.EndDate))
		checked := ""
		if f.FailedOnly {
			checked = " checked"
		}
		p.printf(`<label><input type="checkbox" name="failed" value="true"%s> Failed only</label>`, checked)
		p.printf(`<a class="btn" href="/audit/export?%s">Export CSV</a></form>`, esc(f.Query().Encode()))
		p.render(ctx, AuditLogPartial(params))
		return p.err
	}))
}

// AuditLogPartial renders the audit table and pager.
func AuditLogPartial(params AuditLogViewParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<div id="audit-log"><table class="data-table"><thead><tr>`)
		p.printf(`<th>Time</th><th>Action</th><th>Severity</th><th>List</th><th>Record</th><th>Actor</th><th>Result</th>`)
		p.printf(`</tr></thead><tbody>`)
		if len(params.Entries) == 0 {
			p.printf(`<tr><td colspan="7" class="table-empty">No audit entries</td></tr>`)
		}
		for _, e := range params.Entries {
			result := "ok"
			if !e.OK {
				result = string(e.Failure)
				if e.Message != "" {
					result += ": " + e.Message
				}
			}
			p.printf(`<tr class="severity-%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				e.Severity, e.CreatedAt.Format("2006-01-02 15:04:05"), esc(string(e.Action)), e.Severity,
				esc(e.Collection), esc(e.RecordID), esc(e.Actor), esc(result))
		}
		p.printf(`</tbody></table>`)

		q := params.Filter.Query()
		p.printf(`<nav class="pager">`)
		if params.Page > 1 {
			q.Set("page", strconv.Itoa(params.Page-1))
			p.printf(`<a class="btn" hx-get="/audit?%s" hx-target="#audit-log" hx-swap="outerHTML">Newer</a>`, esc(q.Encode()))
		}
		if params.HasNext {
			q.Set("page", strconv.Itoa(params.Page+1))
			p.printf(`<a class="btn" hx-get="/audit?%s" hx-target="#audit-log" hx-swap="outerHTML">Older</a>`, esc(q.Encode()))
		}
		p.printf(`</nav></div>`)
		return p.err
	})
}
