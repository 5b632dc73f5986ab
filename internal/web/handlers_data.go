package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgerdesk/internal/logging"
)

// keepAliveInterval is how often an idle event stream sends a comment so
// proxies keep the connection open.
const keepAliveInterval = 25 * time.Second

// handleExport streams the screen's collection in the requested format with
// the screen's current filters applied.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	screen, ok := s.screenFor(w, r)
	if !ok {
		return
	}
	coll := screen.Collection()
	format := chi.URLParam(r, "format")

	body, contentType, err := s.service.Export(r.Context(), coll.Name, format, screen.Key().Filters)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", coll.Name, timestamp, format)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	// Headers are sent; a copy error can only be logged.
	if _, err := io.Copy(w, body); err != nil && r.Context().Err() == nil {
		logging.FromContext(r.Context()).Error("export stream failed",
			"collection", coll.Name, "format", format, "error", err)
	}
}

// handleEvents streams reload events for one screen of the session as
// Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "screen")
	if _, err := s.service.Collection(name); err != nil {
		s.respondError(w, r, err)
		return
	}
	events, cancel, err := s.service.Subscribe(sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		logging.FromContext(r.Context()).Error("event stream not supported", "error", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Screen != name {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
