// Package core provides the console service behind the web UI and the CLI.
//
// It owns everything that is shared between browser sessions and everything
// that is specific to one of them. It can be used by web handlers, CLI tools,
// or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Service: the entry point. It builds one [listing.Query] per catalog
//     collection over a single cache and fetch coordinator, and one
//     [listing.Executor] for writes.
//   - Sessions: each browser gets a session id. A session holds one [Screen]
//     per collection it visited, with its own query parameters, column
//     visibility, sort and column picker.
//   - Events: screens publish an [Event] when their debounced key changes or
//     a fetch for the displayed key settles. Successful writes publish one to
//     every session showing an invalidated collection.
//   - Audit: every settled mutation is recorded through an [AuditSink].
//
// # Screens
//
// A screen is created on first visit and discarded by [Service.ResetScreen]
// or when its session expires:
//
//	id := svc.StartSession()
//	screen, err := svc.Screen(id, "vendors")
//	screen.Search("acme")          // committed after the debounce window
//	view, err := screen.Load(ctx)  // resolves the current key
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - NET001-NET003: the back-office API is unreachable, slow or busy
//   - VAL001, CNF001: rejected writes (validation, concurrent edit)
//   - AUTH001, RATE001: permission and rate limit failures
//   - LST001-LST003: unknown list, expired session, cancelled request
//
// # Audit Logging
//
// Mutations are recorded with severity levels:
//
//   - Low: creates
//   - Medium: updates, default and status changes
//   - High: deletes
//
// [PostgresAudit] stores entries in the mutation_audit table. Without a
// database [LogAudit] writes them to the structured log and keeps the most
// recent ones in memory.
package core
