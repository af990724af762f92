package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults", "", 0, 10},
		{"explicit", "?page=2&size=5", 2, 5},
		{"negative page", "?page=-3&size=5", 0, 5},
		{"oversized clamped", "?page=1&size=100", 1, 10},
		{"zero size clamped", "?size=0", 0, 10},
		{"garbage", "?page=abc&size=xyz", 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/users"+tt.query, nil)
			p := ParsePagination(r)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.Size)
		})
	}
}

func TestNewPaged(t *testing.T) {
	p := Pagination{Page: 1, Size: 10}

	paged := NewPaged([]string{"a", "b"}, p, 25)
	assert.Equal(t, 3, paged.TotalPages)
	assert.Equal(t, 1, paged.Page)
	assert.Len(t, paged.Content, 2)

	empty := NewPaged[string](nil, Pagination{Page: 0, Size: 10}, 0)
	assert.NotNil(t, empty.Content)
	assert.Equal(t, 0, empty.TotalPages)
}
