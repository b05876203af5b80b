package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements repository.Store using PostgreSQL. Per-session write
// serialization relies on row-level locks: every multi-statement write
// takes `SELECT ... FOR UPDATE` on the session row first.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
