package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MutationKind is the kind of write an intent performs.
type MutationKind string

const (
	Create       MutationKind = "create"
	Update       MutationKind = "update"
	Delete       MutationKind = "delete"
	SetDefault   MutationKind = "setDefault"
	ToggleStatus MutationKind = "toggleStatus"
)

// ParseMutationKind accepts the canonical names and their kebab-case forms.
func ParseMutationKind(s string) (MutationKind, bool) {
	switch s {
	case "create":
		return Create, true
	case "update":
		return Update, true
	case "delete":
		return Delete, true
	case "setDefault", "set-default":
		return SetDefault, true
	case "toggleStatus", "toggle-status":
		return ToggleStatus, true
	}
	return "", false
}

var successMessages = map[MutationKind]string{
	Create:       "Created",
	Update:       "Updated",
	Delete:       "Deleted",
	SetDefault:   "Default set",
	ToggleStatus: "Status updated",
}

// Intent is a write issued by the UI.
type Intent struct {
	Kind       MutationKind
	Collection string
	ID         string // empty for Create
	Payload    any

	// Version is the record version the user edited, sent to the server as a
	// precondition. Servers that track versions reject stale writes with 409
	// or 412; servers that don't ignore it.
	Version string
}

// Validate checks the intent is well formed.
func (i Intent) Validate() error {
	if i.Collection == "" {
		return fmt.Errorf("intent has no collection")
	}
	if _, ok := successMessages[i.Kind]; !ok {
		return fmt.Errorf("unknown mutation kind %q", i.Kind)
	}
	if i.Kind != Create && i.ID == "" {
		return fmt.Errorf("%s requires a record id", i.Kind)
	}
	return nil
}

// Mutator performs writes against one remote collection.
type Mutator interface {
	Mutate(ctx context.Context, intent Intent) (any, error)
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc func(ctx context.Context, intent Intent) (any, error)

// Mutate calls f.
func (f MutatorFunc) Mutate(ctx context.Context, intent Intent) (any, error) {
	return f(ctx, intent)
}

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the user-visible result of a mutation.
type Notification struct {
	Level      Level
	Collection string
	Kind       MutationKind
	Message    string
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Outcome is what Execute reports. Errors never escape Execute; they are
// converted into an Outcome with OK false.
type Outcome struct {
	OK          bool
	Message     string
	Record      any
	Failure     Failure
	Err         error
	Invalidated []string // collections invalidated on success
}

// Observer sees every settled intent (auditing, metrics).
type Observer func(ctx context.Context, intent Intent, out Outcome)

// Permissions are the flags the console consumes read-only. They are resolved
// elsewhere.
type Permissions struct {
	CanCreate bool
	CanEdit   bool
	CanDelete bool
	CanExport bool
}

// AllowAll grants everything.
func AllowAll() Permissions {
	return Permissions{CanCreate: true, CanEdit: true, CanDelete: true, CanExport: true}
}

// Allows reports whether kind is permitted.
func (p Permissions) Allows(kind MutationKind) bool {
	switch kind {
	case Create:
		return p.CanCreate
	case Update, SetDefault, ToggleStatus:
		return p.CanEdit
	case Delete:
		return p.CanDelete
	}
	return false
}

type permissionsKey struct{}

// WithPermissions attaches permissions to ctx.
func WithPermissions(ctx context.Context, p Permissions) context.Context {
	return context.WithValue(ctx, permissionsKey{}, p)
}

// PermissionsFrom returns the permissions in ctx, or AllowAll when none were set.
func PermissionsFrom(ctx context.Context) Permissions {
	if p, ok := ctx.Value(permissionsKey{}).(Permissions); ok {
		return p
	}
	return AllowAll()
}

// Executor runs intents and invalidates the cache after successful writes.
type Executor struct {
	client   *Client
	notifier Notifier
	fallback func(error) string
	logger   *slog.Logger

	mu         sync.RWMutex
	mutators   map[string]Mutator
	dependents map[string][]string
	observers  []Observer
}

// NewExecutor creates an executor invalidating through client.
// notifier may be nil. fallback formats errors that carry no server message;
// nil uses FallbackMessage.
func NewExecutor(client *Client, notifier Notifier, fallback func(error) string) *Executor {
	return &Executor{
		client:     client,
		notifier:   notifier,
		fallback:   fallback,
		logger:     client.logger,
		mutators:   make(map[string]Mutator),
		dependents: make(map[string][]string),
	}
}

// Register sets the mutator for collection.
func (e *Executor) Register(collection string, m Mutator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mutators[collection] = m
}

// Depend declares collections whose cached data also changes when collection
// is written, e.g. "currencies" -> "currencyStats".
func (e *Executor) Depend(collection string, dependents ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dependents[collection] = append(e.dependents[collection], dependents...)
}

// Dependents returns the declared dependents of collection.
func (e *Executor) Dependents(collection string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.dependents[collection]...)
}

// Observe adds an observer.
func (e *Executor) Observe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Execute performs intent. On success the collection and its dependents are
// invalidated before Execute returns, so the next read refetches. On failure
// the cache is untouched.
func (e *Executor) Execute(ctx context.Context, intent Intent) Outcome {
	out := e.execute(ctx, intent)

	e.mu.RLock()
	observers := append([]Observer(nil), e.observers...)
	e.mu.RUnlock()
	for _, o := range observers {
		o(ctx, intent, out)
	}

	if e.notifier != nil {
		level := LevelSuccess
		if !out.OK {
			level = LevelError
		}
		e.notifier.Notify(ctx, Notification{
			Level:      level,
			Collection: intent.Collection,
			Kind:       intent.Kind,
			Message:    out.Message,
		})
	}
	return out
}

func (e *Executor) execute(ctx context.Context, intent Intent) (out Outcome) {
	if err := intent.Validate(); err != nil {
		return e.fail(intent, err, FailureValidation, err.Error())
	}

	e.mu.RLock()
	m, ok := e.mutators[intent.Collection]
	deps := append([]string(nil), e.dependents[intent.Collection]...)
	e.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownCollection, intent.Collection)
		return e.fail(intent, err, FailureValidation, "This list cannot be changed")
	}

	if !PermissionsFrom(ctx).Allows(intent.Kind) {
		err := fmt.Errorf("%w: %s on %s", ErrForbidden, intent.Kind, intent.Collection)
		return e.fail(intent, err, FailureForbidden, MessageFor(err, nil))
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("mutation %s on %s panicked: %v", intent.Kind, intent.Collection, r)
			out = e.fail(intent, err, FailureTransport, MessageFor(err, e.fallback))
		}
	}()

	record, err := m.Mutate(ctx, intent)
	if err != nil {
		return e.fail(intent, err, Classify(err), MessageFor(err, e.fallback))
	}

	invalidated := append([]string{intent.Collection}, deps...)
	n := e.client.Invalidate(invalidated...)

	e.logger.Info("mutation succeeded",
		"collection", intent.Collection,
		"kind", intent.Kind,
		"id", intent.ID,
		"invalidated_keys", n,
	)

	return Outcome{
		OK:          true,
		Message:     successMessages[intent.Kind],
		Record:      record,
		Invalidated: invalidated,
	}
}

func (e *Executor) fail(intent Intent, err error, f Failure, msg string) Outcome {
	e.logger.Warn("mutation failed",
		"collection", intent.Collection,
		"kind", intent.Kind,
		"id", intent.ID,
		"failure", f,
		"error", err,
	)
	return Outcome{
		OK:      false,
		Message: msg,
		Failure: f,
		Err:     err,
	}
}
