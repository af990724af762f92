package httputil

import (
	"net/http"
	"strconv"
)

const (
	// MaxPageSize caps how many rows a single page may return.
	MaxPageSize     = 10
	defaultPageSize = 10
)

// Pagination holds the normalized page/size query parameters.
type Pagination struct {
	Page int
	Size int
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return p.Page * p.Size
}

// ParsePagination reads page and size from the query string. Negative or
// missing values fall back to page 0; size is clamped to 1..MaxPageSize.
func ParsePagination(r *http.Request) Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}

	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 || size > MaxPageSize {
		size = defaultPageSize
	}

	return Pagination{Page: page, Size: size}
}

// Paged is the envelope for paginated listings.
type Paged[T any] struct {
	Content    []T `json:"content"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"totalPages"`
}

// NewPaged builds the paged envelope from a page of rows and a total count.
func NewPaged[T any](content []T, p Pagination, total int) Paged[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := total / p.Size
	if total%p.Size != 0 {
		totalPages++
	}
	return Paged[T]{
		Content:    content,
		Page:       p.Page,
		Size:       p.Size,
		TotalPages: totalPages,
	}
}
