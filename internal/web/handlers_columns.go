package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/web/templates"
)

// handleToggleColumn shows or hides an optional column. Unknown columns
// answer 404; required columns answer 409 and stay visible.
func (s *Server) handleToggleColumn(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	column := chi.URLParam(r, "column")
	if !screen.HasColumn(column) {
		writeError(w, http.StatusNotFound, "unknown column "+column)
		return
	}
	if !screen.ToggleColumn(column) {
		writeError(w, http.StatusConflict, "column "+column+" cannot be hidden")
		return
	}
	s.renderContainer(w, r, screen)
}

// handleToggleAllColumns flips between all columns and required columns only.
func (s *Server) handleToggleAllColumns(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	screen.ToggleAllColumns()
	s.renderContainer(w, r, screen)
}

// handleColumnSearch lists the picker entries matching ?q= by fuzzy match.
func (s *Server) handleColumnSearch(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	picker := pickerParams(screen, r.URL.Query().Get("q"))
	if wantsJSON(r) {
		writeJSON(w, picker.Options)
		return
	}
	s.render(w, r, templates.ColumnOptions(*picker))
}

// handleOverlayOpen opens the column picker.
func (s *Server) handleOverlayOpen(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	screen.OpenColumnPicker()
	s.renderContainer(w, r, screen)
}

// handleOverlayClose closes the column picker.
func (s *Server) handleOverlayClose(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	screen.CloseColumnPicker()
	s.renderContainer(w, r, screen)
}

// OverlayEventResponse tells the page what to do with a forwarded event.
type OverlayEventResponse struct {
	Open            bool `json:"open"`
	Closed          bool `json:"closed"`
	StopPropagation bool `json:"stopPropagation"`
}

// handleOverlayEvent feeds a pointer or scroll event to the column picker.
// The form carries type (pointerdown, wheel, scroll) and target, the
// slash-separated id path of the element the event happened on.
func (s *Server) handleOverlayEvent(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	ev := listing.Event{
		Type:   listing.EventType(r.FormValue("type")),
		Target: r.FormValue("target"),
	}
	switch ev.Type {
	case listing.PointerDown, listing.Wheel, listing.Scroll:
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	reaction := screen.HandleOverlayEvent(ev)
	writeJSON(w, OverlayEventResponse{
		Open:            screen.ColumnPickerOpen(),
		Closed:          reaction.Closed,
		StopPropagation: reaction.StopPropagation,
	})
}
