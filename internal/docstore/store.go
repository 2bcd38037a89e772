package docstore

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Document Store Adapter: a thin typed layer over a shared
// Postgres pool. Each domain aggregate gets its own file of methods on
// Store, mirroring the donor's one-struct-per-concern persistence layout.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-open, already-initialized pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
