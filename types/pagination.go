package types

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

var AllowedPageSizes = []int{10, 20, 50, 100}

const DefaultPageSize = 20

// FeedPage is the paginated feed response.
type FeedPage[T any] struct {
	Docs  []T `json:"docs"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type PaginationHelper struct {
	Page   int
	Limit  int
	Offset int
}

// NewPaginationHelper normalises page and limit. A limit that is not one of
// AllowedPageSizes is rounded down to the nearest allowed size, or 10.
func NewPaginationHelper(page, limit int) *PaginationHelper {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if ValidatePageSize(limit) != nil {
		normalised := 0
		for i := len(AllowedPageSizes) - 1; i >= 0; i-- {
			if AllowedPageSizes[i] <= limit {
				normalised = AllowedPageSizes[i]
				break
			}
		}
		if normalised == 0 {
			normalised = AllowedPageSizes[0]
		}
		limit = normalised
	}
	return &PaginationHelper{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Paginate slices items for the helper's page. Pages past the end return an
// empty Docs with the real total.
func Paginate[T any](items []T, p *PaginationHelper) FeedPage[T] {
	total := len(items)
	docs := []T{}
	if p.Offset < total {
		end := min(p.Offset+p.Limit, total)
		docs = items[p.Offset:end]
	}
	return FeedPage[T]{
		Docs:  docs,
		Total: total,
		Page:  p.Page,
		Pages: (total + p.Limit - 1) / p.Limit,
		Limit: p.Limit,
	}
}

// ParsePaginationParams reads page and pageSize (or limit) from the query.
func ParsePaginationParams(c *gin.Context) *PaginationHelper {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	raw := c.Query("pageSize")
	if raw == "" {
		raw = c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize))
	}
	limit, _ := strconv.Atoi(raw)
	return NewPaginationHelper(page, limit)
}

func ValidatePageSize(pageSize int) error {
	for _, size := range AllowedPageSizes {
		if pageSize == size {
			return nil
		}
	}
	return fmt.Errorf("pageSize must be one of: %v", AllowedPageSizes)
}
