package listing

import "fmt"

// Page is one page of a collection in server order.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalPages int
}

// Validate checks the page against the page size it was requested with.
func (p Page[T]) Validate(pageSize int) error {
	if p.Total < 0 {
		return fmt.Errorf("invalid page: negative total %d", p.Total)
	}
	if p.TotalPages < 0 {
		return fmt.Errorf("invalid page: negative total pages %d", p.TotalPages)
	}
	if pageSize > 0 && len(p.Items) > pageSize {
		return fmt.Errorf("invalid page: %d items exceeds page size %d", len(p.Items), pageSize)
	}
	return nil
}

// Empty reports whether the page has no rows.
func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// PageCount computes the number of pages for total rows at pageSize.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
