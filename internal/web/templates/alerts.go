package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// ErrorAlert is the inline error fragment returned to HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<div class="alert alert-error" role="alert"><p>%s</p>`, esc(message))
		if action != "" {
			p.printf(`<p class="alert-action">%s</p>`, esc(action))
		}
		if code != "" {
			p.printf(`<small>Code: %s</small>`, esc(code))
		}
		p.printf(`</div>`)
		return p.err
	})
}

// Toast is an out-of-band notification appended to #toasts.
func Toast(level listing.Level, message string, errs []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<div hx-swap-oob="beforeend:#toasts"><div class="toast toast-%s" role="status">%s`, esc(string(level)), esc(message))
		if len(errs) > 0 {
			p.printf(`<ul>`)
			for _, e := range errs {
				p.printf(`<li>%s</li>`, esc(e))
			}
			p.printf(`</ul>`)
		}
		p.printf(`</div></div>`)
		return p.err
	})
}
