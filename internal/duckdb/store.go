package duckdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"golang.org/x/sync/semaphore"

	"github.com/tasklight/tasklight/internal/duckdb/migrate"
	"github.com/tasklight/tasklight/internal/model"
)

// Store owns the DuckDB connection. Reads and writes share it through
// an RWMutex plus a semaphore bounding concurrent queries.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	querySem     *semaphore.Weighted
	QueryTimeout time.Duration
}

// NewStore opens the database at dbPath, creating it and running
// migrations as needed. An empty dbPath gives an in-memory database.
// The optional queryTimeout defaults to model.DefaultQueryTimeout.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := model.DefaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// SetMaxConcurrentQueries bounds how many read queries may run at once.
// Zero or negative removes the bound. Call before serving traffic; the
// limit is not swapped under in-flight queries.
func (s *Store) SetMaxConcurrentQueries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		s.querySem = nil
		return
	}
	s.querySem = semaphore.NewWeighted(int64(n))
}

// acquireQuerySlot blocks until a query slot is free or ctx expires.
// The release func must be called when the query finishes.
func (s *Store) acquireQuerySlot(ctx context.Context) (func(), error) {
	sem := s.querySem
	if sem == nil {
		return func() {}, nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct query access.
func (s *Store) DB() *sql.DB {
	return s.db
}
