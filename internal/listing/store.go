package listing

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is the cached state of one query key.
type Entry struct {
	Key        Key
	Data       any // Page[T] of the owning query; nil until the first success
	Status     Status
	Err        error
	FetchedAt  time.Time // time of the last successful fetch
	StaleAfter time.Duration

	// Invalidated is set by a mutation. The data remains displayable but the
	// next read must refetch before trusting it.
	Invalidated bool

	// Generation increases on every invalidation. Writes carrying an older
	// generation are stored as invalidated.
	Generation uint64

	LastAccess time.Time
}

// Stale reports whether the entry needs revalidation at now.
func (e Entry) Stale(now time.Time) bool {
	if e.Invalidated || e.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(e.FetchedAt) >= e.StaleAfter
}

// HasData reports whether the entry holds a successfully fetched page.
func (e Entry) HasData() bool {
	return e.Data != nil
}

// Store is the shared cache of query results, indexed by Key.String().
// Only the fetch coordinator and the mutation executor write to it.
type Store interface {
	Get(id string) (Entry, bool)
	Set(entry Entry)
	// Invalidate marks every entry of collection stale and returns the count.
	Invalidate(collection string) int
	// Evict removes every entry of collection and returns the count.
	Evict(collection string) int
	// Sweep removes entries not accessed within idle of now.
	Sweep(idle time.Duration, now time.Time) int
	Len() int
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	clock Clock

	mu      sync.Mutex
	entries map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. A nil clock uses SystemClock.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryStore{
		clock:   clock,
		entries: make(map[string]*Entry),
	}
}

// Get returns a copy of the entry and records the access.
func (s *MemoryStore) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	e.LastAccess = s.clock.Now()
	return *e, true
}

// Set stores entry under entry.Key. If the stored entry has been invalidated
// since the writer read it, the write is kept but stays invalidated, unless a
// newer writer has already refreshed the entry, in which case it is dropped.
func (s *MemoryStore) Set(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entry.Key.String()
	if cur, ok := s.entries[id]; ok && entry.Generation < cur.Generation {
		if !cur.Invalidated {
			return
		}
		entry.Generation = cur.Generation
		entry.Invalidated = true
	}
	entry.LastAccess = s.clock.Now()
	s.entries[id] = &entry
}

// Invalidate marks all entries of collection stale.
func (s *MemoryStore) Invalidate(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.Key.Matches(collection) {
			continue
		}
		e.Invalidated = true
		e.Generation++
		n++
	}
	return n
}

// Evict deletes all entries of collection.
func (s *MemoryStore) Evict(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if e.Key.Matches(collection) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Sweep drops idle entries. Entries with a fetch in progress are kept.
func (s *MemoryStore) Sweep(idle time.Duration, now time.Time) int {
	if idle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if e.Status == StatusLoading {
			continue
		}
		if now.Sub(e.LastAccess) > idle {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of cached keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
