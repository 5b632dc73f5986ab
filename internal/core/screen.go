package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

// maxSupersededReloads bounds how often Load retries when the key moves while
// a fetch is in flight.
const maxSupersededReloads = 3

// Screen is the state of one collection screen inside one browser session:
// its query parameters, column visibility, sort and the column picker. It is
// created on first visit and lives until the session expires or the screen
// is reset.
type Screen struct {
	session    string
	collection catalog.Collection
	query      *listing.Query[remote.Record]
	controller *listing.Controller
	view       *listing.View
	now        func() time.Time
	maxPage    int

	mu       sync.Mutex
	table    *listing.Table[remote.Record]
	overlay  *listing.Overlay
	selected remote.Record
	lastUsed time.Time

	stop []func()
}

// ScreenOptions configure new screens.
type ScreenOptions struct {
	Debounce    time.Duration
	MaxPageSize int
	Clock       listing.Clock
	Message     func(error) string
}

func newScreen(session string, coll catalog.Collection, query *listing.Query[remote.Record], client *listing.Client, hub *EventHub, opts ScreenOptions) *Screen {
	cols := coll.TableColumns()
	visibility := listing.NewVisibility(cols)
	sorter := listing.NewSorter(cols, coll.SortMode(), listing.Sort{})
	sorter.SetDisabled(coll.Single)

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = -1 // commit immediately
	}
	controller := listing.NewController(coll.Name, listing.ControllerOptions{
		PageSize: coll.PageSize,
		Debounce: debounce,
		Clock:    opts.Clock,
	})
	sorter.Bind(controller)

	table := listing.NewTable(visibility, sorter, coll.RowID)
	table.SetErrorMessage(opts.Message)

	s := &Screen{
		session:    session,
		collection: coll,
		query:      query,
		controller: controller,
		view:       &listing.View{},
		now:        client.Now,
		maxPage:    opts.MaxPageSize,
		table:      table,
		overlay:    listing.NewOverlay(ColumnPickerID(coll.Name)),
		lastUsed:   client.Now(),
	}
	table.OnRow(func(rec remote.Record) { s.selected = rec })

	s.stop = append(s.stop,
		controller.OnChange(func(k listing.Key) {
			s.view.Track(k)
			hub.Publish(session, Event{Screen: coll.Name, Key: k.String(), Reason: ReasonParams})
		}),
		client.OnSettle(func(e listing.Entry) {
			if e.Key.Matches(coll.Name) && s.view.Showing(e.Key) {
				hub.Publish(session, Event{Screen: coll.Name, Key: e.Key.String(), Reason: ReasonRefreshed})
			}
		}),
	)
	return s
}

// ColumnPickerID is the element id of a screen's column picker overlay.
func ColumnPickerID(collection string) string {
	return "columns-" + collection
}

// Collection returns the collection the screen lists.
func (s *Screen) Collection() catalog.Collection {
	return s.collection
}

// Controller returns the screen's list controller.
func (s *Screen) Controller() *listing.Controller {
	return s.controller
}

// Key returns the current query key.
func (s *Screen) Key() listing.Key {
	return s.controller.Key()
}

// Load resolves the current key and projects it into a table view. When the
// key changes while the fetch is in flight the newer key is loaded instead.
func (s *Screen) Load(ctx context.Context) (listing.TableView, error) {
	s.touch()

	for attempt := 0; attempt < maxSupersededReloads; attempt++ {
		res, _, err := s.query.Load(ctx, s.view, s.controller.Key())
		if errors.Is(err, listing.ErrStaleRead) {
			continue
		}
		if err != nil {
			return listing.TableView{}, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.table.Project(res), nil
	}

	// The key kept moving. Show what is cached for the newest key, or a
	// loading state, never a result for a key the screen has left.
	key := s.controller.Key()
	res, ok := s.query.Peek(key)
	if !ok {
		res = listing.Result[remote.Record]{Key: key, Status: listing.StatusLoading}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Project(res), nil
}

// Refresh refetches the current key and projects the result.
func (s *Screen) Refresh(ctx context.Context) (listing.TableView, error) {
	s.touch()
	key := s.controller.Key()
	s.view.Track(key)
	res, err := s.query.Refetch(ctx, key)
	if err != nil {
		return listing.TableView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Project(res), nil
}

// Search sets the search box text. The filter is committed after the
// debounce window.
func (s *Screen) Search(text string) {
	s.touch()
	s.controller.SetSearch(text)
}

// SetFilter sets or clears a declared filter.
func (s *Screen) SetFilter(name string, value any) error {
	s.touch()
	if !s.collection.HasFilter(name) {
		return fmt.Errorf("unknown filter %q for %s", name, s.collection.Name)
	}
	s.controller.SetFilter(name, value)
	return nil
}

// ClearFilters removes every filter including the search.
func (s *Screen) ClearFilters() {
	s.touch()
	s.controller.ClearFilters()
}

// SetPage moves to page n.
func (s *Screen) SetPage(n int) {
	s.touch()
	s.controller.SetPage(n)
}

// SetPageSize changes the page size, capped at the configured maximum.
func (s *Screen) SetPageSize(n int) {
	s.touch()
	if s.maxPage > 0 && n > s.maxPage {
		n = s.maxPage
	}
	s.controller.SetPageSize(n)
}

// ClickHeader applies a header click and reports whether the sort changed.
func (s *Screen) ClickHeader(key string) bool {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ClickHeader(key)
}

// Sort returns the active sort.
func (s *Screen) Sort() listing.Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Sorter().State()
}

// HasColumn reports whether key is one of the screen's table columns.
func (s *Screen) HasColumn(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.table.Visibility().Column(key)
	return ok
}

// ToggleColumn shows or hides an optional column.
func (s *Screen) ToggleColumn(key string) bool {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Visibility().Toggle(key)
}

// ToggleAllColumns flips between all columns and required columns only.
func (s *Screen) ToggleAllColumns() {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Visibility().ToggleAll()
}

// ColumnOption is one entry of the column picker.
type ColumnOption struct {
	Key      string
	Header   string
	Required bool
	Visible  bool
}

// ColumnPicker lists the columns matching query for the picker and reports
// whether every column is visible.
func (s *Screen) ColumnPicker(query string) ([]ColumnOption, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vis := s.table.Visibility()
	cols := vis.Search(query)
	out := make([]ColumnOption, len(cols))
	for i, c := range cols {
		out[i] = ColumnOption{
			Key:      c.Key,
			Header:   c.Header,
			Required: c.Required,
			Visible:  vis.IsVisible(c.Key),
		}
	}
	return out, vis.AllVisible()
}

// VisibleColumns returns the keys of the shown columns.
func (s *Screen) VisibleColumns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Visibility().Keys()
}

// OpenColumnPicker opens the column picker overlay.
func (s *Screen) OpenColumnPicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Open()
}

// CloseColumnPicker closes the column picker overlay.
func (s *Screen) CloseColumnPicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Close()
}

// ColumnPickerOpen reports whether the column picker is open.
func (s *Screen) ColumnPickerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.IsOpen()
}

// HandleOverlayEvent forwards a pointer or scroll event to the column picker.
func (s *Screen) HandleOverlayEvent(ev listing.Event) listing.Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Handle(ev)
}

// SelectRow marks the displayed record with id as selected and returns it.
func (s *Screen) SelectRow(id string) (remote.Record, bool) {
	s.touch()
	res, ok := s.query.Peek(s.controller.Key())
	if !ok || !res.HasData {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range res.Page.Items {
		if s.collection.RowID(rec) == id {
			s.table.ClickRow(rec)
			return rec, true
		}
	}
	return nil, false
}

// Selected returns the last selected record.
func (s *Screen) Selected() (remote.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != nil
}

func (s *Screen) touch() {
	now := s.now()
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// LastUsed returns when the screen was last used.
func (s *Screen) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close releases the screen's listeners and pending debounce.
func (s *Screen) Close() {
	s.controller.Close()
	for _, stop := range s.stop {
		stop()
	}
}
