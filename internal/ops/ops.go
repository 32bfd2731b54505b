package ops

import (
	"slices"

	"github.com/hpungsan/grabtext/internal/capture"
)

// DefaultPageSize is used when a requested size is not one of PageSizes.
const DefaultPageSize = 10

// PageSizes are the page sizes a user may pick from.
var PageSizes = []int{5, 10, 20, 50}

// NormalizePageSize returns size if it is one of PageSizes, otherwise
// DefaultPageSize.
func NormalizePageSize(size int) int {
	if slices.Contains(PageSizes, size) {
		return size
	}
	return DefaultPageSize
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	Offset     int  `json:"offset"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Paginate clamps page to [0, totalPages-1] (0 when total is 0) and
// computes the navigation affordances. size must be positive.
func Paginate(page, size, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}

	page = max(page, 0)
	if totalPages == 0 {
		page = 0
	} else if page > totalPages-1 {
		page = totalPages - 1
	}

	return Pagination{
		Page:       page,
		Size:       size,
		Offset:     page * size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 0,
		HasNext:    page < totalPages-1,
	}
}

// Observer receives every new capture result after it is stored.
type Observer interface {
	Receive(r capture.Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r capture.Result)

// Receive calls f(r).
func (f ObserverFunc) Receive(r capture.Result) {
	f(r)
}
