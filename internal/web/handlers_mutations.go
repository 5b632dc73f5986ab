package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/web/templates"
)

// maxMutationBody bounds the size of a write request.
const maxMutationBody = 1 << 20

// mutationRequest is the body of a write. Forms send data as a JSON string.
type mutationRequest struct {
	ID      string         `json:"id"`
	Version string         `json:"version"`
	Data    map[string]any `json:"data"`
}

// MutationResponse reports the outcome of a write.
type MutationResponse struct {
	OK          bool            `json:"ok"`
	Message     string          `json:"message"`
	Failure     listing.Failure `json:"failure,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	Record      any             `json:"record,omitempty"`
	Invalidated []string        `json:"invalidated,omitempty"`
}

// handleMutation performs a create, update, delete, setDefault or
// toggleStatus on the screen's collection. HTMX callers get a toast; the
// table reloads through the event stream once the cache is invalidated.
func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "screen")
	if _, err := s.service.Collection(name); err != nil {
		s.respondError(w, r, err)
		return
	}
	kind, ok := listing.ParseMutationKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	req, err := decodeMutation(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	intent := listing.Intent{
		Kind:       kind,
		Collection: name,
		ID:         req.ID,
		Version:    req.Version,
	}
	if req.Data != nil {
		intent.Payload = req.Data
	}

	ctx := WithRequestMetadata(r.Context(), r)
	out := s.service.Execute(ctx, intent)
	resp := MutationResponse{
		OK:          out.OK,
		Message:     out.Message,
		Failure:     out.Failure,
		Errors:      fieldErrors(out.Err),
		Record:      out.Record,
		Invalidated: out.Invalidated,
	}

	if isHTMX(r) {
		level := listing.LevelSuccess
		if !out.OK {
			level = listing.LevelError
		}
		s.render(w, r, templates.Toast(level, out.Message, resp.Errors))
		return
	}
	writeJSONStatus(w, mutationStatus(kind, out), resp)
}

// decodeMutation reads a JSON body or a form with id, version and data.
func decodeMutation(w http.ResponseWriter, r *http.Request) (mutationRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMutationBody)

	var req mutationRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("invalid request body")
		}
		return req, nil
	}

	req.ID = strings.TrimSpace(r.FormValue("id"))
	req.Version = strings.TrimSpace(r.FormValue("version"))
	if data := strings.TrimSpace(r.FormValue("data")); data != "" {
		if err := json.Unmarshal([]byte(data), &req.Data); err != nil {
			return req, errors.New("data must be a JSON object")
		}
	}
	return req, nil
}

// fieldErrors lists the per-field messages of a structured rejection.
func fieldErrors(err error) []string {
	var se *listing.ServerError
	if !errors.As(err, &se) {
		return nil
	}
	out := make([]string, 0, len(se.Errors))
	for _, fe := range se.Errors {
		if text := fe.Text(); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func mutationStatus(kind listing.MutationKind, out listing.Outcome) int {
	if out.OK {
		if kind == listing.Create {
			return http.StatusCreated
		}
		return http.StatusOK
	}
	switch out.Failure {
	case listing.FailureForbidden:
		return http.StatusForbidden
	case listing.FailureConflict:
		return http.StatusConflict
	case listing.FailureValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
