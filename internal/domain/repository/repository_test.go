package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name           string
		page, size     int
		wantPage, want int
	}{
		{"defaults", 0, 0, 1, DefaultPageSize},
		{"negative page", -3, 5, 1, 5},
		{"clamped size", 2, 500, 2, MaxPageSize},
		{"kept", 3, 7, 3, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.want, p.PageSize)
		})
	}
}

func TestPaginationWindow(t *testing.T) {
	start, end := NewPagination(2, 2).Window(3)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, end)

	start, end = NewPagination(5, 2).Window(3)
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
}

func TestNewPagedResult(t *testing.T) {
	r := NewPagedResult[string](nil, 0, NewPagination(1, 10))
	assert.NotNil(t, r.Items)
	assert.Equal(t, 0, r.TotalPages)

	r = NewPagedResult([]string{"a"}, 21, NewPagination(3, 10))
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, 3, r.Page)
}
