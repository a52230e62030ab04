package model

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is the {items, total} envelope returned by every list endpoint.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// PageRequest carries 1-based pagination parameters.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize applies defaults and caps the page size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}
