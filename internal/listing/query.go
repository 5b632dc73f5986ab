package listing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fetcher loads one page of a collection from the remote side.
type Fetcher[T any] func(ctx context.Context, key Key) (Page[T], error)

// Query binds a collection to its fetcher and staleness policy.
type Query[T any] struct {
	client     *Client
	collection string
	fetcher    Fetcher[T]
	staleAfter time.Duration
}

// NewQuery registers nothing; it is a typed handle over the shared client.
// staleAfter of zero means every read revalidates in the background.
func NewQuery[T any](client *Client, collection string, fetcher Fetcher[T], staleAfter time.Duration) *Query[T] {
	return &Query[T]{
		client:     client,
		collection: collection,
		fetcher:    fetcher,
		staleAfter: staleAfter,
	}
}

// Collection returns the collection name.
func (q *Query[T]) Collection() string {
	return q.collection
}

// StaleAfter returns the staleness window.
func (q *Query[T]) StaleAfter() time.Duration {
	return q.staleAfter
}

// Result is a typed view of a cache entry.
type Result[T any] struct {
	Key        Key
	Page       Page[T]
	HasData    bool
	Status     Status
	Err        error
	FetchedAt  time.Time
	Stale      bool // served from cache past its staleness window
	Refreshing bool // a background refetch was started or is running
}

// Resolve returns the data for key.
//
//   - A fresh entry is returned without a fetch.
//   - A stale entry with data is returned immediately and refetched in the
//     background (stale-while-revalidate).
//   - A missing entry, an entry invalidated by a mutation, or an entry that
//     has never loaded successfully is fetched; concurrent callers share one
//     request and all wait for it.
//
// A failed fetch yields Status == StatusError with the previous data kept.
// The returned error is non-nil only when ctx ends first or key belongs to
// another collection.
func (q *Query[T]) Resolve(ctx context.Context, key Key) (Result[T], error) {
	if key.Collection != q.collection {
		return Result[T]{}, fmt.Errorf("%w: key for %q resolved by %q", ErrUnknownCollection, key.Collection, q.collection)
	}

	now := q.client.clock.Now()
	entry, ok := q.client.store.Get(key.String())

	switch {
	case ok && entry.HasData() && !entry.Invalidated && !entry.Stale(now):
		return q.result(entry, false, false), nil

	case ok && entry.HasData() && !entry.Invalidated:
		q.client.revalidate(key, q.staleAfter, q.fetch)
		return q.result(entry, true, true), nil
	}

	settled, err := await(ctx, q.client.flight(key, q.staleAfter, q.fetch))
	if err != nil {
		return Result[T]{}, err
	}
	return q.result(settled, false, false), nil
}

// Peek returns the cached result for key without fetching.
func (q *Query[T]) Peek(key Key) (Result[T], bool) {
	entry, ok := q.client.store.Get(key.String())
	if !ok {
		return Result[T]{}, false
	}
	return q.result(entry, entry.Stale(q.client.clock.Now()), entry.Status == StatusLoading), true
}

// Refetch fetches key now, sharing an in-progress request if there is one.
func (q *Query[T]) Refetch(ctx context.Context, key Key) (Result[T], error) {
	settled, err := await(ctx, q.client.flight(key, q.staleAfter, q.fetch))
	if err != nil {
		return Result[T]{}, err
	}
	return q.result(settled, false, false), nil
}

// Load resolves key for a consumer and reports whether the result may still
// be applied, i.e. the view has not moved to another key meanwhile. A
// superseded result is still cached under its own key, and Load returns it
// together with ErrStaleRead.
func (q *Query[T]) Load(ctx context.Context, view *View, key Key) (Result[T], bool, error) {
	token := view.Track(key)
	res, err := q.Resolve(ctx, key)
	if err != nil {
		return res, false, err
	}
	if !view.Current(token) {
		q.client.logger.Debug("discarded superseded result", "key", key.String())
		return res, false, fmt.Errorf("%w: %s", ErrStaleRead, key.String())
	}
	return res, true, nil
}

func (q *Query[T]) fetch(ctx context.Context, key Key) (any, error) {
	page, err := q.fetcher(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := page.Validate(key.PageSize); err != nil {
		return nil, err
	}
	if page.TotalPages == 0 {
		page.TotalPages = PageCount(page.Total, key.PageSize)
	}
	return page, nil
}

func (q *Query[T]) result(e Entry, stale, refreshing bool) Result[T] {
	res := Result[T]{
		Key:        e.Key,
		Status:     e.Status,
		Err:        e.Err,
		FetchedAt:  e.FetchedAt,
		Stale:      stale,
		Refreshing: refreshing,
	}
	if page, ok := e.Data.(Page[T]); ok {
		res.Page = page
		res.HasData = true
	}
	return res
}

// View tracks which key a consumer currently displays so that late results
// for an earlier key are not applied.
type View struct {
	mu      sync.Mutex
	current string
	token   uint64
}

// Track records key as the one being displayed and returns a token for it.
func (v *View) Track(key Key) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := key.String()
	if id != v.current {
		v.current = id
		v.token++
	}
	return v.token
}

// Current reports whether token still identifies the displayed key.
func (v *View) Current(token uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return token == v.token
}

// Showing reports whether key is the displayed key.
func (v *View) Showing(key Key) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current == key.String()
}
