package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
)

// Store is the result store seen by consumers that page through history.
// It binds the db query functions to one handle.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// Append records r and sets r.ID.
func (s *Store) Append(ctx context.Context, r *capture.Result) error {
	return db.Insert(ctx, s.db, r)
}

// List returns up to limit results starting at offset in the given order.
func (s *Store) List(ctx context.Context, offset, limit int, order db.Order) ([]capture.Result, error) {
	return db.List(ctx, s.db, offset, limit, order)
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int, error) {
	return db.Count(ctx, s.db)
}

// Get returns the result with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*capture.Result, error) {
	return db.GetByID(ctx, s.db, id)
}
