// Package listing is the list management engine behind every console screen.
//
// A screen shows one remote collection (accounts, vendors, currencies, ...) as a
// paged, searchable, sortable table. The same plumbing repeats for every screen,
// so it lives here once and is parameterised by the row type.
//
// # Architecture
//
// Components, leaf first:
//
//   - [Store]: keyed cache of [Entry] values shared by every consumer of a key.
//   - [Client] and [Query]: the fetch coordinator. Resolves a [Key] to cached or
//     fresh data, collapsing concurrent requests for the same key into one
//     (single-flight) and revalidating stale entries in the background.
//   - [Executor]: runs create/update/delete/setDefault/toggleStatus intents and
//     invalidates the affected collections before reporting success.
//   - [Controller]: owns page, page size, filters and sort for one screen and
//     derives the query key. Search input is debounced.
//   - [Visibility]: which columns are shown; required columns cannot be hidden.
//   - [Sorter]: the single active sort column and its direction.
//   - [Overlay]: open/close state machine for the column picker.
//   - [Table]: pure projection of the above into a [TableView].
//
// # Data Flow
//
//	Controller.Key() -> Query.Resolve -> Store entry -> Table.Project -> TableView
//	Executor.Execute -> Store.Invalidate -> next Resolve refetches
//
// # Concurrency
//
// The store, client, executor and controller are safe for concurrent use.
// Visibility, Sorter, Overlay and Table belong to one table instance and must be
// serialised by their owner.
package listing
