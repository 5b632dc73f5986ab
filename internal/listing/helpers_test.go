package listing_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type currency struct {
	Code   string
	Name   string
	Rate   float64
	Active bool
}

// fakeRemote serves pages of currencies and counts calls per key.
type fakeRemote struct {
	mu    sync.Mutex
	calls map[string]int
	total atomic.Int64
	err   error
	gate  chan struct{} // when set, fetches block until it is closed
	start chan string   // when set, receives the key of every fetch that begins
	items []currency
}

func newFakeRemote(items ...currency) *fakeRemote {
	return &fakeRemote{calls: make(map[string]int), items: items}
}

func (f *fakeRemote) fetch(ctx context.Context, key listing.Key) (listing.Page[currency], error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[key.String()]++
	gate, start, err := f.gate, f.start, f.err
	items := append([]currency(nil), f.items...)
	f.mu.Unlock()

	if start != nil {
		start <- key.String()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return listing.Page[currency]{}, ctx.Err()
		}
	}
	if err != nil {
		return listing.Page[currency]{}, err
	}

	from := (key.Page - 1) * key.PageSize
	if from > len(items) {
		from = len(items)
	}
	to := min(from+key.PageSize, len(items))
	return listing.Page[currency]{Items: items[from:to], Total: len(items)}, nil
}

func (f *fakeRemote) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeRemote) setItems(items ...currency) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

func (f *fakeRemote) callsFor(key listing.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key.String()]
}

func currencies(n int) []currency {
	out := make([]currency, n)
	for i := range out {
		out[i] = currency{Code: fmt.Sprintf("C%02d", i), Name: fmt.Sprintf("Currency %d", i), Rate: float64(i), Active: i%2 == 0}
	}
	return out
}

type harness struct {
	clock  *testutil.ManualClock
	store  *listing.MemoryStore
	client *listing.Client
	remote *fakeRemote
	query  *listing.Query[currency]
}

func newHarness(staleAfter time.Duration, items ...currency) *harness {
	clock := testutil.NewManualClock(epoch)
	store := listing.NewMemoryStore(clock)
	client := listing.NewClient(store, listing.WithClock(clock))
	remote := newFakeRemote(items...)
	return &harness{
		clock:  clock,
		store:  store,
		client: client,
		remote: remote,
		query:  listing.NewQuery(client, "currencies", remote.fetch, staleAfter),
	}
}

func currencyColumns() []listing.Column[currency] {
	return []listing.Column[currency]{
		{Key: "code", Header: "Code", Sortable: true, Required: true, Value: func(c currency) any { return c.Code }},
		{Key: "name", Header: "Name", Sortable: true, Value: func(c currency) any { return c.Name }},
		{Key: "rate", Header: "Exchange Rate", Sortable: true, Value: func(c currency) any { return c.Rate }},
		{Key: "active", Header: "Active", Value: func(c currency) any { return c.Active }},
		{Key: "notes", Header: "Notes", Hidden: true},
	}
}
