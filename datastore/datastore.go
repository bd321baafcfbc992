// Package datastore is the data-access layer shared by all request
// handlers. A Store owns exactly one backend for its lifetime: an embedded
// sqlite file or a pooled postgres connection, chosen at construction from
// configuration. Both present the same contract; the Store normalizes row
// shapes, insert-id reporting and connection lifecycle so callers never
// branch on the backend except to pick placeholder style for their SQL.
package datastore

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/radiowave/backend/config"
)

// Row is a single result row keyed by column name. A nil Row is the
// explicit "no row" marker returned by Get; it is distinguishable from a
// real row whose fields are all zero values.
type Row map[string]any

// RunResult reports the outcome of a mutating statement. InsertID is only
// valid when the backend could determine the primary key of a newly
// inserted row: sqlite tracks it natively, postgres requires the statement
// itself to carry a RETURNING clause.
type RunResult struct {
	InsertID     sql.NullInt64
	RowsAffected int64
}

// PoolStats describes the postgres connection pool for the metrics
// endpoint. The sqlite backend has no pool and reports no stats.
type PoolStats struct {
	Total   int `json:"total"`
	Idle    int `json:"idle"`
	Waiting int `json:"waiting"`
}

type backend interface {
	connect(ctx context.Context) error
	query(ctx context.Context, query string, args ...any) ([]Row, error)
	get(ctx context.Context, query string, args ...any) (Row, error)
	run(ctx context.Context, query string, args ...any) (RunResult, error)
	close() error
	versionQuery() string
	stats() (PoolStats, bool)
}

type Store struct {
	dbType    config.DBType
	backend   backend
	connected bool
}

// New selects the backend from cfg. The choice is fixed for the Store's
// lifetime; Connect must be called before any query method.
func New(cfg *config.Config) *Store {
	s := &Store{dbType: cfg.Database.Type}
	switch cfg.Database.Type {
	case config.DBTypePostgres:
		s.backend = newPostgresBackend(cfg.Postgres)
	default:
		s.backend = newSQLiteBackend(cfg.Database.Path)
	}
	return s
}

func (s *Store) Type() config.DBType { return s.dbType }

func (s *Store) Connected() bool { return s.connected }

// Connect opens the backend. Idempotent once it has succeeded.
func (s *Store) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	if err := s.backend.connect(ctx); err != nil {
		return err
	}
	s.connected = true
	return nil
}

// Query returns all matching rows. Row order is whatever the backend
// returned; only the SQL itself imposes ordering.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.backend.query(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return rows, nil
}

// Get returns the first matching row, or a nil Row when nothing matched.
func (s *Store) Get(ctx context.Context, query string, args ...any) (Row, error) {
	row, err := s.backend.get(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return row, nil
}

// Run executes a mutating statement.
func (s *Store) Run(ctx context.Context, query string, args ...any) (RunResult, error) {
	res, err := s.backend.run(ctx, query, args...)
	if err != nil {
		return RunResult{}, &QueryError{Err: err}
	}
	return res, nil
}

// Close releases the backend resource. Safe to call when never connected.
func (s *Store) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	return s.backend.close()
}

// VersionQuery returns the backend's trivial version probe, used for the
// connect-time validation and the diagnostic endpoint.
func (s *Store) VersionQuery() string { return s.backend.versionQuery() }

// PoolStats reports connection pool counters. ok is false for the
// embedded backend, which does not pool.
func (s *Store) PoolStats() (PoolStats, bool) { return s.backend.stats() }

// AsInt64 normalizes the numeric shapes the two drivers hand back for
// counts and ids (sqlite int64, postgres int64 or textual numerics).
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
