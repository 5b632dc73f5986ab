package listing

import (
	"sync"
	"time"
)

// SearchFilter is the filter name the debounced search text is committed to.
const SearchFilter = "search"

// Params are the mutable query parameters of one screen.
type Params struct {
	Page     int
	PageSize int
	Filters  map[string]any
	Sort     Sort
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	PageSize int
	Sort     Sort
	Filters  map[string]any
	Debounce time.Duration // zero uses DefaultDebounce; negative commits immediately
	Clock    Clock
}

// Controller owns the query parameters of one screen and derives its key.
// Changing the result set (search, filters, sort, page size) always returns
// the user to page 1.
type Controller struct {
	collection string
	debounce   *Debouncer

	mu          sync.Mutex
	params      Params
	searchInput string
	listeners   map[int]func(Key)
	nextID      int
}

// NewController creates a controller for collection.
func NewController(collection string, opts ControllerOptions) *Controller {
	delay := opts.Debounce
	switch {
	case delay == 0:
		delay = DefaultDebounce
	case delay < 0:
		delay = 0
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	c := &Controller{
		collection: collection,
		debounce:   NewDebouncer(opts.Clock, delay),
		params: Params{
			Page:     1,
			PageSize: pageSize,
			Filters:  copyFilters(opts.Filters),
			Sort:     opts.Sort,
		},
		listeners: make(map[int]func(Key)),
	}
	if s, ok := c.params.Filters[SearchFilter].(string); ok {
		c.searchInput = s
	}
	return c
}

// Collection returns the collection name.
func (c *Controller) Collection() string {
	return c.collection
}

// Key derives the query key from the current parameters.
func (c *Controller) Key() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyLocked()
}

func (c *Controller) keyLocked() Key {
	return NewKey(c.collection, c.params.Page, c.params.PageSize, c.params.Filters, c.params.Sort)
}

// Params returns a copy of the current parameters.
func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.params
	p.Filters = copyFilters(c.params.Filters)
	return p
}

// SearchInput returns the search box text, which may be ahead of the
// committed search filter while the debounce window is open.
func (c *Controller) SearchInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchInput
}

// SearchPending reports whether typed search text has not been committed yet.
func (c *Controller) SearchPending() bool {
	return c.debounce.Pending()
}

// SetSearch updates the displayed input immediately and commits it as the
// search filter once typing has paused.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.searchInput = text
	c.mu.Unlock()

	c.debounce.Schedule(func() {
		c.update(func(p *Params) {
			setFilter(p, SearchFilter, text)
			p.Page = 1
		})
	})
}

// SetFilter sets or, for nil and "", clears a filter and returns to page 1.
func (c *Controller) SetFilter(name string, value any) {
	c.update(func(p *Params) {
		setFilter(p, name, value)
		p.Page = 1
	})
}

// ClearFilters removes every filter, including the search, and returns to page 1.
func (c *Controller) ClearFilters() {
	c.debounce.Cancel()
	c.mu.Lock()
	c.searchInput = ""
	c.mu.Unlock()
	c.update(func(p *Params) {
		p.Filters = nil
		p.Page = 1
	})
}

// SetSort sets the sort and returns to page 1. An empty column clears it.
func (c *Controller) SetSort(column string, dir Direction) {
	c.update(func(p *Params) {
		if column == "" {
			p.Sort = Sort{}
		} else {
			p.Sort = Sort{Column: column, Direction: dir}
		}
		p.Page = 1
	})
}

// SetPage moves to page n (at least 1).
func (c *Controller) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.update(func(p *Params) { p.Page = n })
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	c.update(func(p *Params) {
		p.PageSize = n
		p.Page = 1
	})
}

// OnChange registers fn to receive every newly derived key. It returns a
// function that removes the listener.
func (c *Controller) OnChange(fn func(Key)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close cancels a pending search commit.
func (c *Controller) Close() {
	c.debounce.Cancel()
}

func (c *Controller) update(apply func(p *Params)) {
	c.mu.Lock()
	next := c.params
	next.Filters = copyFilters(c.params.Filters)
	apply(&next)
	c.params = next
	key := c.keyLocked()
	fns := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func setFilter(p *Params, name string, value any) {
	if v, ok := normalizeScalar(value); ok {
		if p.Filters == nil {
			p.Filters = make(map[string]any)
		}
		p.Filters[name] = v
		return
	}
	delete(p.Filters, name)
}

func copyFilters(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
