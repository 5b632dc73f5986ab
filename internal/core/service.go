package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

var (
	// ErrMutationNotSupported is returned for intents a collection does not
	// declare.
	ErrMutationNotSupported = errors.New("action not available for this list")

	// ErrExportNotSupported is returned for export formats a collection does
	// not offer.
	ErrExportNotSupported = errors.New("export format not available for this list")
)

// Backend is the remote side of every collection.
type Backend interface {
	Fetcher(ep remote.Endpoint) listing.Fetcher[remote.Record]
	Mutator(ep remote.Endpoint) listing.Mutator
	Export(ctx context.Context, ep remote.Endpoint, format string, filters map[string]any) (io.ReadCloser, string, error)
}

var _ Backend = (*remote.Client)(nil)

// ServiceConfig holds the tunables of a Service. Zero values select defaults.
type ServiceConfig struct {
	FetchTimeout   time.Duration
	MaxConcurrent  int
	MaxWait        time.Duration
	SearchDebounce time.Duration // negative commits searches immediately
	MaxPageSize    int
	SessionIdle    time.Duration
	Clock          listing.Clock
	Logger         *slog.Logger
	BaseContext    context.Context
}

// Service is the console's entry point: one cache, one fetch coordinator and
// one mutation executor shared by every browser session.
type Service struct {
	registry *catalog.Registry
	backend  Backend
	client   *listing.Client
	queries  map[string]*listing.Query[remote.Record]
	executor *listing.Executor
	audit    AuditSink
	limiter  *FetchLimiter
	sessions *SessionManager
	hub      *EventHub
	logger   *slog.Logger
	cfg      ServiceConfig
}

// NewService wires the collections of reg to backend.
func NewService(reg *catalog.Registry, backend Backend, audit AuditSink, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = listing.SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.SearchDebounce == 0 {
		cfg.SearchDebounce = listing.DefaultDebounce
	}
	if audit == nil {
		audit = NewLogAudit(cfg.Logger, 0)
	}

	limiter := NewFetchLimiter(cfg.MaxConcurrent, cfg.MaxWait)
	client := listing.NewClient(listing.NewMemoryStore(cfg.Clock),
		listing.WithClock(cfg.Clock),
		listing.WithLogger(cfg.Logger),
		listing.WithLimiter(limiter),
		listing.WithFetchTimeout(cfg.FetchTimeout),
		listing.WithBaseContext(cfg.BaseContext),
	)

	s := &Service{
		registry: reg,
		backend:  backend,
		client:   client,
		queries:  make(map[string]*listing.Query[remote.Record]),
		executor: listing.NewExecutor(client, nil, UserMessageText),
		audit:    audit,
		limiter:  limiter,
		hub:      NewEventHub(),
		logger:   cfg.Logger,
		cfg:      cfg,
	}

	for _, coll := range reg.All() {
		ep := coll.Endpoint()
		s.queries[coll.Name] = listing.NewQuery(client, coll.Name, backend.Fetcher(ep), coll.StaleAfter.Std())
		if len(coll.Mutations) > 0 {
			s.executor.Register(coll.Name, backend.Mutator(ep))
		}
		if len(coll.Dependents) > 0 {
			s.executor.Depend(coll.Name, coll.Dependents...)
		}
	}
	s.executor.Observe(AuditObserver(audit, client.Now))

	s.sessions = newSessionManager(cfg.SessionIdle, client.Now, s.hub, s.openScreen)
	return s
}

func (s *Service) openScreen(session, collection string) (*Screen, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	return newScreen(session, coll, s.queries[coll.Name], s.client, s.hub, ScreenOptions{
		Debounce:    s.cfg.SearchDebounce,
		MaxPageSize: s.cfg.MaxPageSize,
		Clock:       s.cfg.Clock,
		Message:     UserMessageText,
	}), nil
}

// Registry returns the catalog.
func (s *Service) Registry() *catalog.Registry {
	return s.registry
}

// Collection returns the collection called name.
func (s *Service) Collection(name string) (catalog.Collection, error) {
	coll, ok := s.registry.Get(name)
	if !ok {
		return catalog.Collection{}, fmt.Errorf("%w: %s", listing.ErrUnknownCollection, name)
	}
	return coll, nil
}

// Client returns the shared fetch coordinator.
func (s *Service) Client() *listing.Client {
	return s.client
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// StartSession creates a browser session and returns its id.
func (s *Service) StartSession() string {
	return s.sessions.Start()
}

// Screen returns the session's screen for collection.
func (s *Service) Screen(sessionID, collection string) (*Screen, error) {
	return s.sessions.Screen(sessionID, collection)
}

// ResetScreen discards a session's screen state.
func (s *Service) ResetScreen(sessionID, collection string) bool {
	return s.sessions.Reset(sessionID, collection)
}

// Subscribe returns the event stream of a session.
func (s *Service) Subscribe(sessionID string) (<-chan Event, func(), error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(sessionID)
	return ch, cancel, nil
}

// List resolves one page of collection outside any session.
func (s *Service) List(ctx context.Context, key listing.Key) (listing.Result[remote.Record], error) {
	q, ok := s.queries[key.Collection]
	if !ok {
		return listing.Result[remote.Record]{}, fmt.Errorf("%w: %s", listing.ErrUnknownCollection, key.Collection)
	}
	return q.Resolve(ctx, key)
}

// Execute performs intent. On success every session showing the collection
// or one of its dependents is told to reload.
func (s *Service) Execute(ctx context.Context, intent listing.Intent) listing.Outcome {
	if coll, ok := s.registry.Get(intent.Collection); ok && !coll.Allows(intent.Kind) {
		err := fmt.Errorf("%w: %s on %s", ErrMutationNotSupported, intent.Kind, intent.Collection)
		s.logger.Warn("mutation rejected", "collection", intent.Collection, "kind", intent.Kind)
		return listing.Outcome{
			Failure: listing.FailureValidation,
			Message: "This action is not available for " + coll.Label,
			Err:     err,
		}
	}

	out := s.executor.Execute(ctx, intent)
	if out.OK {
		n := s.sessions.Broadcast(out.Invalidated, ReasonInvalidated)
		s.logger.Debug("invalidation broadcast", "collections", out.Invalidated, "events", n)
	}
	return out
}

// Export streams collection in format with the given filters. The caller
// closes the returned body.
func (s *Service) Export(ctx context.Context, collection, format string, filters map[string]any) (io.ReadCloser, string, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, "", err
	}
	if !listing.PermissionsFrom(ctx).CanExport {
		return nil, "", fmt.Errorf("%w: export %s", listing.ErrForbidden, collection)
	}
	if !coll.Exports(format) {
		return nil, "", fmt.Errorf("%w: %s as %s", ErrExportNotSupported, collection, format)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, "", err
	}
	body, contentType, err := s.backend.Export(ctx, coll.Endpoint(), format, filters)
	if err != nil {
		s.limiter.Release()
		return nil, "", err
	}
	return &limitedBody{ReadCloser: body, release: s.limiter.Release}, contentType, nil
}

// limitedBody holds a limiter slot until the export is closed.
type limitedBody struct {
	io.ReadCloser
	release func()
	closed  bool
}

func (b *limitedBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.closed {
		b.closed = true
		b.release()
	}
	return err
}

// Recent returns the newest audit entries.
func (s *Service) Recent(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	return s.audit.Recent(ctx, filter)
}

// LimiterStatus returns the state of the fetch limiter.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Shutdown closes every session and waits for background revalidations and
// in-flight remote calls, or until ctx ends.
func (s *Service) Shutdown(ctx context.Context) error {
	s.sessions.Close()

	done := make(chan struct{})
	go func() {
		s.client.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for revalidations: %w", ctx.Err())
	}

	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("waiting for fetches: %w", err)
	}
	return nil
}
