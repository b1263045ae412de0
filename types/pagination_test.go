package types

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewPaginationHelperNormalises(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{1, 20, 1, 20},
		{0, 0, 1, DefaultPageSize},
		{2, 35, 2, 20},
		{1, 500, 1, 100},
		{1, 3, 1, 10},
		{-4, 50, 1, 50},
	}
	for _, tc := range cases {
		p := NewPaginationHelper(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, p.Page)
		assert.Equal(t, tc.wantLimit, p.Limit)
		assert.Equal(t, (p.Page-1)*p.Limit, p.Offset)
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	first := Paginate(items, NewPaginationHelper(1, 10))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, first.Docs)
	assert.Equal(t, 25, first.Total)
	assert.Equal(t, 3, first.Pages)
	assert.Equal(t, 10, first.Limit)

	last := Paginate(items, NewPaginationHelper(3, 10))
	assert.Equal(t, []int{20, 21, 22, 23, 24}, last.Docs)

	past := Paginate(items, NewPaginationHelper(9, 10))
	assert.Empty(t, past.Docs)
	assert.NotNil(t, past.Docs)
	assert.Equal(t, 25, past.Total)

	empty := Paginate([]string{}, NewPaginationHelper(1, 20))
	assert.Equal(t, 0, empty.Pages)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/activities/social?page=2&limit=50", nil)

	p := ParsePaginationParams(c)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 50, p.Offset)
}
