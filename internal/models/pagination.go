package models

// SortOrder is one "field,direction" pair of a page request. Column is the
// whitelisted database column the field maps to.
type SortOrder struct {
	Field      string
	Column     string
	Descending bool
}

// PageRequest is a zero-based page index with its size and ordering.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

type PaginatedResponse[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

// NewPage builds a PaginatedResponse, never returning a nil Items slice.
func NewPage[T any](items []T, page PageRequest, total int) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if page.Size > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}
	return &PaginatedResponse[T]{
		Items:       items,
		CurrentPage: page.Page,
		PageSize:    page.Size,
		TotalItems:  total,
		TotalPages:  totalPages,
	}
}
