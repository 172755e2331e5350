package repository

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a 1-based page of results.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to valid bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Page is one page of results plus the total row count.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// LastPage returns the number of the final page (at least 1).
func (p Page[T]) LastPage() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
