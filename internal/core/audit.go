package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry is one settled mutation.
type AuditEntry struct {
	ID          string               `json:"id"`
	Action      listing.MutationKind `json:"action"`
	Severity    AuditSeverity        `json:"severity"`
	Collection  string               `json:"collection"`
	RecordID    string               `json:"recordId,omitempty"`
	Actor       string               `json:"actor,omitempty"`
	IPAddress   string               `json:"ipAddress,omitempty"`
	UserAgent   string               `json:"userAgent,omitempty"`
	SessionID   string               `json:"sessionId,omitempty"`
	OK          bool                 `json:"ok"`
	Failure     listing.Failure      `json:"failure,omitempty"`
	Message     string               `json:"message,omitempty"`
	Payload     json.RawMessage      `json:"payload,omitempty"`
	Invalidated []string             `json:"invalidated,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// AuditFilter narrows Recent. Zero fields match everything.
type AuditFilter struct {
	Collection string
	Action     listing.MutationKind
	Severity   AuditSeverity
	Actor      string
	Failed     *bool
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// Matches reports whether entry passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	switch {
	case f.Collection != "" && e.Collection != f.Collection:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Severity != "" && e.Severity != f.Severity:
		return false
	case f.Actor != "" && e.Actor != f.Actor:
		return false
	case f.Failed != nil && e.OK == *f.Failed:
		return false
	case !f.Since.IsZero() && e.CreatedAt.Before(f.Since):
		return false
	case !f.Until.IsZero() && e.CreatedAt.After(f.Until):
		return false
	}
	return true
}

// where builds the SQL condition for the filter.
func (f AuditFilter) where() *WhereBuilder {
	wb := NewWhereBuilder()
	wb.Add("collection", f.Collection)
	wb.Add("action", string(f.Action))
	wb.Add("severity", string(f.Severity))
	wb.Add("actor", f.Actor)
	if f.Failed != nil {
		ok := !*f.Failed
		wb.AddBool("ok", &ok)
	}
	var since, until any
	if !f.Since.IsZero() {
		since = f.Since
	}
	if !f.Until.IsZero() {
		until = f.Until
	}
	wb.AddTimestampRange("created_at", since, until)
	return wb
}

// DefaultAuditLimit is the page size of Recent when no limit is given.
const DefaultAuditLimit = 50

// AuditSink stores mutation audit entries.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(kind listing.MutationKind) AuditSeverity {
	switch kind {
	case listing.Delete:
		return SeverityHigh
	case listing.Create:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// NewAuditEntry builds the entry for a settled intent. Request metadata is
// taken from ctx.
func NewAuditEntry(ctx context.Context, intent listing.Intent, out listing.Outcome, now time.Time) AuditEntry {
	entry := AuditEntry{
		ID:          uuid.New().String(),
		Action:      intent.Kind,
		Severity:    determineSeverity(intent.Kind),
		Collection:  intent.Collection,
		RecordID:    intent.ID,
		Actor:       GetActorFromContext(ctx),
		IPAddress:   GetIPAddressFromContext(ctx),
		UserAgent:   GetUserAgentFromContext(ctx),
		SessionID:   GetSessionIDFromContext(ctx),
		OK:          out.OK,
		Failure:     out.Failure,
		Message:     out.Message,
		Invalidated: out.Invalidated,
		CreatedAt:   now,
	}
	if intent.Payload != nil {
		if data, err := json.Marshal(intent.Payload); err == nil {
			entry.Payload = data
		}
	}
	return entry
}

// AuditObserver returns an executor observer that records every settled
// intent. Recording failures are logged and never affect the outcome.
func AuditObserver(sink AuditSink, now func() time.Time) listing.Observer {
	return func(ctx context.Context, intent listing.Intent, out listing.Outcome) {
		entry := NewAuditEntry(ctx, intent, out, now())
		// The request may already be finished; keep the metadata, drop the deadline.
		if err := sink.Record(context.WithoutCancel(ctx), entry); err != nil {
			slog.Error("audit record failed",
				"collection", entry.Collection,
				"action", entry.Action,
				"error", err,
			)
		}
	}
}

// ----------------------------------------------------------------------------
// Log-only sink
// ----------------------------------------------------------------------------

// LogAudit writes entries to the structured log and keeps the most recent
// ones in memory. It is used when no database is configured.
type LogAudit struct {
	logger *slog.Logger
	keep   int

	mu      sync.RWMutex
	entries []AuditEntry // newest last
}

// NewLogAudit creates a log sink keeping the last keep entries.
func NewLogAudit(logger *slog.Logger, keep int) *LogAudit {
	if logger == nil {
		logger = slog.Default()
	}
	if keep <= 0 {
		keep = 500
	}
	return &LogAudit{logger: logger, keep: keep}
}

// Record logs entry.
func (a *LogAudit) Record(ctx context.Context, entry AuditEntry) error {
	a.logger.InfoContext(ctx, "audit",
		"id", entry.ID,
		"action", entry.Action,
		"severity", entry.Severity,
		"collection", entry.Collection,
		"record_id", entry.RecordID,
		"actor", entry.Actor,
		"ip", entry.IPAddress,
		"ok", entry.OK,
		"failure", entry.Failure,
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	if over := len(a.entries) - a.keep; over > 0 {
		a.entries = append([]AuditEntry(nil), a.entries[over:]...)
	}
	return nil
}

// Recent returns the newest entries first.
func (a *LogAudit) Recent(_ context.Context, filter AuditFilter) ([]AuditEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []AuditEntry
	skipped := 0
	for i := len(a.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := a.entries[i]
		if !filter.Matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// ----------------------------------------------------------------------------
// Postgres sink
// ----------------------------------------------------------------------------

// pgQuerier is the subset of *pgxpool.Pool the audit sink uses.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const auditSchema = `CREATE TABLE IF NOT EXISTS mutation_audit (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	collection  TEXT NOT NULL,
	record_id   TEXT,
	actor       TEXT,
	ip_address  INET,
	user_agent  TEXT,
	session_id  TEXT,
	ok          BOOLEAN NOT NULL,
	failure     TEXT,
	message     TEXT,
	payload     JSONB,
	invalidated TEXT[],
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS mutation_audit_collection_created_idx
	ON mutation_audit (collection, created_at DESC)`

const insertAudit = `INSERT INTO mutation_audit
	(id, action, severity, collection, record_id, actor, ip_address, user_agent,
	 session_id, ok, failure, message, payload, invalidated, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const selectAudit = `SELECT id, action, severity, collection, record_id, actor,
	ip_address, user_agent, session_id, ok, failure, message, payload,
	invalidated, created_at
	FROM mutation_audit`

// PostgresAudit stores entries in the mutation_audit table.
type PostgresAudit struct {
	db pgQuerier
}

// NewPostgresAudit creates the sink and makes sure its table exists.
func NewPostgresAudit(ctx context.Context, db pgQuerier) (*PostgresAudit, error) {
	if _, err := db.Exec(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("create mutation_audit: %w", err)
	}
	return &PostgresAudit{db: db}, nil
}

// Record inserts entry.
func (a *PostgresAudit) Record(ctx context.Context, entry AuditEntry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("audit id %q: %w", entry.ID, err)
	}

	var ip *netip.Addr
	if addr, err := netip.ParseAddr(stripPort(entry.IPAddress)); err == nil {
		ip = &addr
	}

	var payload []byte
	if len(entry.Payload) > 0 {
		payload = entry.Payload
	}

	_, err = a.db.Exec(ctx, insertAudit,
		pgtype.UUID{Bytes: id, Valid: true},
		string(entry.Action),
		string(entry.Severity),
		entry.Collection,
		toPgText(entry.RecordID),
		toPgText(entry.Actor),
		ip,
		toPgText(entry.UserAgent),
		toPgText(entry.SessionID),
		entry.OK,
		toPgText(string(entry.Failure)),
		toPgText(entry.Message),
		payload,
		entry.Invalidated,
		pgtype.Timestamptz{Time: entry.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (a *PostgresAudit) Recent(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}

	wb := filter.where()
	whereClause, args := wb.Build()
	query := selectAudit + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// scanAuditRow scans a single row from mutation_audit into an AuditEntry.
func scanAuditRow(rows pgx.Rows) (*AuditEntry, error) {
	var (
		id          pgtype.UUID
		action      string
		severity    string
		collection  string
		recordID    pgtype.Text
		actor       pgtype.Text
		ipAddress   *netip.Addr
		userAgent   pgtype.Text
		sessionID   pgtype.Text
		ok          bool
		failure     pgtype.Text
		message     pgtype.Text
		payload     []byte
		invalidated []string
		createdAt   pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &action, &severity, &collection, &recordID, &actor,
		&ipAddress, &userAgent, &sessionID, &ok, &failure, &message, &payload,
		&invalidated, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry := &AuditEntry{
		Action:      listing.MutationKind(action),
		Severity:    AuditSeverity(severity),
		Collection:  collection,
		RecordID:    recordID.String,
		Actor:       actor.String,
		UserAgent:   userAgent.String,
		SessionID:   sessionID.String,
		OK:          ok,
		Failure:     listing.Failure(failure.String),
		Message:     message.String,
		Payload:     payload,
		Invalidated: invalidated,
		CreatedAt:   createdAt.Time,
	}
	if id.Valid {
		entry.ID = uuid.UUID(id.Bytes).String()
	}
	if ipAddress != nil {
		entry.IPAddress = ipAddress.String()
	}
	return entry, nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// stripPort removes a port from a host:port address.
func stripPort(addr string) string {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().String()
	}
	return strings.Trim(addr, "[]")
}
