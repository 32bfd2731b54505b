package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Page  int    // zero-based, clamped to the last page
	Size  int    // one of PageSizes, default: 10
	Order string // "newest" (default) or "oldest"
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []capture.Result `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List retrieves one page of capture results.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	size := NormalizePageSize(input.Size)
	order := db.ParseOrder(input.Order)

	total, err := db.Count(ctx, database)
	if err != nil {
		return nil, err
	}

	page := Paginate(input.Page, size, total)

	items, err := db.List(ctx, database, page.Offset, size, order)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []capture.Result{}
	}

	return &ListOutput{
		Items:      items,
		Pagination: page,
		Sort:       string(order),
	}, nil
}

// CountOutput contains the result of the Count operation.
type CountOutput struct {
	Total int `json:"total"`
}

// Count returns the number of stored capture results.
func Count(ctx context.Context, database *sql.DB) (*CountOutput, error) {
	total, err := db.Count(ctx, database)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Total: total}, nil
}
