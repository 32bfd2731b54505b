package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/errors"
)

// Order is the id ordering used when listing captures.
type Order string

const (
	OrderNewest Order = "newest" // id DESC
	OrderOldest Order = "oldest" // id ASC
)

// ParseOrder maps a config or query value to an Order, defaulting to newest.
func ParseOrder(s string) Order {
	if Order(s) == OrderOldest {
		return OrderOldest
	}
	return OrderNewest
}

func (o Order) sql() string {
	if o == OrderOldest {
		return "id ASC"
	}
	return "id DESC"
}

// Insert appends a capture and sets r.ID to the id assigned by SQLite.
// Captures are append-only: there is no update or delete.
func Insert(ctx context.Context, db *sql.DB, r *capture.Result) error {
	query := `
		INSERT INTO captures (created_at, image_path, extracted_text)
		VALUES (?, ?, ?)
	`

	res, err := db.ExecContext(ctx, query, r.CreatedAt, r.ImagePath, r.ExtractedText)
	if err != nil {
		return errors.NewStore(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.NewStore(err)
	}
	r.ID = id

	return nil
}

// GetByID retrieves a capture by id.
func GetByID(ctx context.Context, db *sql.DB, id int64) (*capture.Result, error) {
	query := `
		SELECT id, created_at, image_path, extracted_text
		FROM captures
		WHERE id = ?
	`

	var r capture.Result
	err := db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.CreatedAt, &r.ImagePath, &r.ExtractedText)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.NewStore(err)
	}

	return &r, nil
}

// List returns up to limit captures starting at offset in the given order.
func List(ctx context.Context, db *sql.DB, offset, limit int, order Order) ([]capture.Result, error) {
	query := `
		SELECT id, created_at, image_path, extracted_text
		FROM captures
		ORDER BY ` + order.sql() + `
		LIMIT ? OFFSET ?
	`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.NewStore(err)
	}
	defer rows.Close()

	var results []capture.Result
	for rows.Next() {
		var r capture.Result
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.ImagePath, &r.ExtractedText); err != nil {
			return nil, errors.NewStore(err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStore(err)
	}

	return results, nil
}

// Count returns the total number of captures.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM captures").Scan(&total); err != nil {
		return 0, errors.NewStore(err)
	}
	return total, nil
}
