package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Limiter bounds concurrent outbound fetches. Acquire blocks until a slot is
// free or ctx ends; every successful Acquire is paired with one Release.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// Client is the fetch coordinator shared by every screen. It owns the cache
// store handle and the single-flight group; construct one at the application
// root and pass it down.
type Client struct {
	store   Store
	clock   Clock
	logger  *slog.Logger
	limiter Limiter
	timeout time.Duration
	base    context.Context

	flights    singleflight.Group
	background sync.WaitGroup
	inflight   atomic.Int64

	flightMu sync.Mutex
	active   map[string]*activeFlight

	mu        sync.RWMutex
	listeners map[int]func(Entry)
	nextID    int
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for staleness.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithLimiter bounds concurrent fetches.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithFetchTimeout limits how long one fetch may take. Zero means no limit.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBaseContext sets the context fetches run under. Fetches are detached
// from the caller that started them so that a caller giving up does not abort
// the request for everyone else waiting on the same key.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Client) { c.base = ctx }
}

// NewClient creates a fetch coordinator over store.
func NewClient(store Store, opts ...Option) *Client {
	c := &Client{
		store:     store,
		clock:     SystemClock,
		logger:    slog.Default(),
		base:      context.Background(),
		listeners: make(map[int]func(Entry)),
		active:    make(map[string]*activeFlight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the cache store.
func (c *Client) Store() Store {
	return c.store
}

// Now returns the client's current time.
func (c *Client) Now() time.Time {
	return c.clock.Now()
}

// OnSettle registers fn to be called whenever a fetch settles (success or
// error). It returns a function that removes the listener.
func (c *Client) OnSettle(fn func(Entry)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Inflight returns the number of keys with a fetch in progress.
func (c *Client) Inflight() int {
	return int(c.inflight.Load())
}

// Wait blocks until background revalidations started so far have finished.
func (c *Client) Wait() {
	c.background.Wait()
}

// Invalidate marks every cached key of the collections stale. Fetches of
// those collections already in progress keep running and still settle, but
// later callers no longer join them.
func (c *Client) Invalidate(collections ...string) int {
	n := 0
	for _, col := range collections {
		n += c.store.Invalidate(col)
	}

	c.flightMu.Lock()
	for id, f := range c.active {
		for _, col := range collections {
			if f.key.Matches(col) {
				c.flights.Forget(id)
				break
			}
		}
	}
	c.flightMu.Unlock()
	return n
}

type activeFlight struct {
	key  Key
	runs int
}

func (c *Client) track(key Key) func() {
	id := key.String()
	c.flightMu.Lock()
	f, ok := c.active[id]
	if !ok {
		f = &activeFlight{key: key}
		c.active[id] = f
	}
	f.runs++
	c.flightMu.Unlock()

	return func() {
		c.flightMu.Lock()
		if f.runs--; f.runs == 0 {
			delete(c.active, id)
		}
		c.flightMu.Unlock()
	}
}

func (c *Client) notify(e Entry) {
	c.mu.RLock()
	fns := make([]func(Entry), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// fetchFunc performs the network call for one key and returns the page as any.
type fetchFunc func(ctx context.Context, key Key) (any, error)

// flight returns a channel delivering the settled entry for key. All callers
// for the same key share one underlying fetch until the key's collection is
// invalidated; callers after that start a new one.
func (c *Client) flight(key Key, staleAfter time.Duration, fetch fetchFunc) <-chan singleflight.Result {
	id := key.String()
	return c.flights.DoChan(id, func() (any, error) {
		done := c.track(key)
		defer done()
		return c.run(key, staleAfter, fetch), nil
	})
}

// run executes one fetch and writes its outcome. A run started before an
// invalidation may overlap the run started after it; the store keeps the
// newer outcome.
func (c *Client) run(key Key, staleAfter time.Duration, fetch fetchFunc) Entry {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	id := key.String()
	prev, _ := c.store.Get(id)

	loading := prev
	loading.Key = key
	loading.Status = StatusLoading
	loading.StaleAfter = staleAfter
	c.store.Set(loading)

	ctx := c.base
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.clock.Now()
	data, err := c.fetch(ctx, key, fetch)

	next := prev
	next.Key = key
	next.StaleAfter = staleAfter
	next.Generation = prev.Generation
	if err != nil {
		next.Status = StatusError
		next.Err = err
		c.logger.Warn("fetch failed",
			"key", id,
			"error", err,
			"kept_data", prev.HasData(),
		)
	} else {
		next.Status = StatusSuccess
		next.Err = nil
		next.Data = data
		next.FetchedAt = c.clock.Now()
		next.Invalidated = false
		c.logger.Debug("fetch completed",
			"key", id,
			"duration_ms", c.clock.Now().Sub(start).Milliseconds(),
		)
	}
	c.store.Set(next)

	settled, _ := c.store.Get(id)
	c.notify(settled)
	return settled
}

func (c *Client) fetch(ctx context.Context, key Key, fetch fetchFunc) (data any, err error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.limiter.Release()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s panicked: %v", key.Collection, r)
		}
	}()
	return fetch(ctx, key)
}

// revalidate starts a background refetch of key unless one is running.
func (c *Client) revalidate(key Key, staleAfter time.Duration, fetch fetchFunc) {
	c.background.Add(1)
	ch := c.flight(key, staleAfter, fetch)
	go func() {
		defer c.background.Done()
		<-ch
	}()
}

// await waits for a flight, giving up when ctx ends. The fetch itself keeps
// running and still populates the cache under its key.
func await(ctx context.Context, ch <-chan singleflight.Result) (Entry, error) {
	select {
	case res := <-ch:
		return res.Val.(Entry), nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}
