package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/logging"
	"github.com/JonMunkholm/ledgerdesk/internal/web/templates"
)

const (
	auditPageSize = 50

	// auditExportLimit caps how many entries one CSV export contains.
	auditExportLimit = 10000
)

// parseAuditFilter reads the audit filter from the query string.
func parseAuditFilter(r *http.Request) (templates.AuditFilter, core.AuditFilter) {
	q := r.URL.Query()
	view := templates.AuditFilter{
		Collection: q.Get("collection"),
		Action:     q.Get("action"),
		Severity:   q.Get("severity"),
		Actor:      q.Get("actor"),
		FailedOnly: q.Get("failed") == "true",
		StartDate:  q.Get("from"),
		EndDate:    q.Get("to"),
	}

	filter := core.AuditFilter{
		Collection: view.Collection,
		Severity:   core.AuditSeverity(view.Severity),
		Actor:      view.Actor,
	}
	if kind, ok := listing.ParseMutationKind(view.Action); ok {
		filter.Action = kind
	}
	if view.FailedOnly {
		failed := true
		filter.Failed = &failed
	}
	if view.StartDate != "" {
		if t, err := time.Parse("2006-01-02", view.StartDate); err == nil {
			filter.Since = t
		}
	}
	if view.EndDate != "" {
		if t, err := time.Parse("2006-01-02", view.EndDate); err == nil {
			filter.Until = t.Add(24*time.Hour - time.Second)
		}
	}
	return view, filter
}

// handleAuditLog renders the audit log page with filtering and pagination.
// JSON callers get the entries.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1)
	view, filter := parseAuditFilter(r)

	// One extra row tells whether an older page exists.
	filter.Limit = auditPageSize + 1
	filter.Offset = (page - 1) * auditPageSize

	entries, err := s.service.Recent(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hasNext := len(entries) > auditPageSize
	if hasNext {
		entries = entries[:auditPageSize]
	}

	if wantsJSON(r) {
		writeJSON(w, entries)
		return
	}

	reg := s.service.Registry()
	collections := make([]string, 0, reg.Len())
	for _, c := range reg.All() {
		collections = append(collections, c.Name)
	}

	params := templates.AuditLogViewParams{
		Entries:     entries,
		Page:        page,
		HasNext:     hasNext,
		Filter:      view,
		Collections: collections,
	}

	if isHTMX(r) {
		s.render(w, r, templates.AuditLogPartial(params))
		return
	}
	s.render(w, r, templates.AuditLogPage(templates.Sidebar(reg, "audit"), params))
}

// handleAuditLogExport exports audit log entries as a CSV file.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	_, filter := parseAuditFilter(r)
	filter.Limit = auditExportLimit

	entries, err := s.service.Recent(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("audit_log_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	csvWriter := csv.NewWriter(w)
	_ = csvWriter.Write([]string{
		"ID", "Timestamp", "Action", "Severity", "Collection", "Record ID",
		"Actor", "IP Address", "OK", "Failure", "Message", "Invalidated",
	})
	for _, e := range entries {
		ok := "yes"
		if !e.OK {
			ok = "no"
		}
		if err := csvWriter.Write([]string{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Action),
			string(e.Severity),
			e.Collection,
			csvSafe(e.RecordID),
			csvSafe(e.Actor),
			e.IPAddress,
			ok,
			string(e.Failure),
			csvSafe(e.Message),
			strings.Join(e.Invalidated, " "),
		}); err != nil {
			break
		}
	}
	csvWriter.Flush()

	if err := csvWriter.Error(); err != nil && r.Context().Err() == nil {
		logging.FromContext(r.Context()).Error("audit export failed", "error", err)
	}
}

// csvSafe keeps spreadsheet programs from evaluating a cell as a formula.
func csvSafe(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
