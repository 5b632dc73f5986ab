package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/web/templates"
)

// handleDashboard renders the list of collections.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Registry()
	s.render(w, r, templates.Dashboard(templates.Sidebar(reg, ""), reg))
}

// handleScreen renders the full page of a collection screen.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	view, err := screen.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sidebar := templates.Sidebar(s.service.Registry(), screen.Collection().Name)
	s.render(w, r, templates.ScreenPage(sidebar, s.screenParams(r, screen, view)))
}

// handleTable renders the table container for the current parameters. The
// event stream triggers it after a reload event.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	s.renderContainer(w, r, screen)
}

// handleRefresh refetches the displayed page.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	view, err := screen.Refresh(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, templates.ScreenContainer(s.screenParams(r, screen, view)))
}

// handleSelectRow shows the detail panel of a displayed record.
func (s *Server) handleSelectRow(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	rec, found := screen.SelectRow(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "record is not on the displayed page")
		return
	}
	s.render(w, r, templates.RecordDetail(screen.Collection(), rec, listing.PermissionsFrom(r.Context())))
}

// handleResetScreen discards the screen state and reloads the page.
func (s *Server) handleResetScreen(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "screen")
	if _, err := s.service.Collection(name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.service.ResetScreen(sessionID(r), name)

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", templates.ScreenURL(name))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, templates.ScreenURL(name), http.StatusSeeOther)
}

// handleSearch updates the search text. The table keeps showing the current
// result until the search commits and the event stream asks for a reload.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	screen.Search(r.FormValue("q"))
	s.renderContainer(w, r, screen)
}

// handleFilter sets one declared filter. Without a name every filter,
// including the search, is cleared.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		screen.ClearFilters()
	} else if err := screen.SetFilter(name, r.FormValue("value")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.renderContainer(w, r, screen)
}

// handleSort applies a header click.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	screen.ClickHeader(chi.URLParam(r, "column"))
	s.renderContainer(w, r, screen)
}

// handlePage moves to another page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	screen.SetPage(n)
	s.renderContainer(w, r, screen)
}

// handlePageSize changes the page size.
func (s *Server) handlePageSize(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(r.FormValue("size"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid page size")
		return
	}
	screen.SetPageSize(n)
	s.renderContainer(w, r, screen)
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status       string             `json:"status"`
	Collections  int                `json:"collections"`
	Sessions     int                `json:"sessions"`
	CacheEntries int                `json:"cache_entries"`
	Inflight     int                `json:"inflight"`
	Limiter      core.LimiterStatus `json:"limiter"`
}

// handleHealth reports the state of the engine.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	client := s.service.Client()
	writeJSON(w, HealthResponse{
		Status:       "ok",
		Collections:  s.service.Registry().Len(),
		Sessions:     s.service.Sessions().Len(),
		CacheEntries: client.Store().Len(),
		Inflight:     client.Inflight(),
		Limiter:      s.service.LimiterStatus(),
	})
}
