package web

// Shared utilities and helper functions used across handlers.

import (
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/logging"
	"github.com/JonMunkholm/ledgerdesk/internal/web/templates"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// screenFor returns the session's screen named in the URL. On failure the
// error response has been written.
func (s *Server) screenFor(w http.ResponseWriter, r *http.Request) (*core.Screen, bool) {
	screen, err := s.service.Screen(sessionID(r), chi.URLParam(r, "screen"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return screen, true
}

// screenParams collects what the screen templates render besides the table.
func (s *Server) screenParams(r *http.Request, screen *core.Screen, view listing.TableView) templates.ScreenParams {
	ctrl := screen.Controller()
	p := templates.ScreenParams{
		Collection:    screen.Collection(),
		View:          view,
		Params:        ctrl.Params(),
		Search:        ctrl.SearchInput(),
		SearchPending: ctrl.SearchPending(),
		MaxPageSize:   s.cfg.List.MaxPageSize,
		Perms:         listing.PermissionsFrom(r.Context()),
	}
	if screen.ColumnPickerOpen() {
		p.Picker = pickerParams(screen, "")
	}
	return p
}

func pickerParams(screen *core.Screen, query string) *templates.PickerParams {
	name := screen.Collection().Name
	opts, all := screen.ColumnPicker(query)
	return &templates.PickerParams{
		ID:         core.ColumnPickerID(name),
		Collection: name,
		Query:      query,
		Options:    opts,
		AllVisible: all,
	}
}

// renderContainer loads the screen's current key and renders the table
// container. Parameter handlers finish with it.
func (s *Server) renderContainer(w http.ResponseWriter, r *http.Request, screen *core.Screen) {
	view, err := screen.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, templates.ScreenContainer(s.screenParams(r, screen, view)))
}

// render writes an HTML component.
func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}
