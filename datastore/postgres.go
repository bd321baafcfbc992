package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/radiowave/backend/config"
)

const (
	maxPoolSize        = 20
	idleTimeout        = 30 * time.Second
	connectTimeoutSecs = 2
	poolCheckInterval  = 30 * time.Second
)

type postgresBackend struct {
	cfg  config.Postgres
	db   *sqlx.DB
	stop chan struct{}
}

func newPostgresBackend(cfg config.Postgres) *postgresBackend {
	return &postgresBackend{cfg: cfg}
}

func (b *postgresBackend) connect(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable connect_timeout=%d",
		b.cfg.Host, b.cfg.Port, b.cfg.Name, b.cfg.User, b.cfg.Password, connectTimeoutSecs,
	)
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return &ConnectError{Err: err}
	}
	db.SetMaxOpenConns(maxPoolSize)
	db.SetMaxIdleConns(maxPoolSize)
	db.SetConnMaxIdleTime(idleTimeout)

	var version string
	if err := db.GetContext(ctx, &version, b.versionQuery()); err != nil {
		// tear the pool down so a failed connect never leaks connections
		db.Close()
		return &ConnectError{Err: err}
	}
	slog.Info("connected to PostgreSQL database", "version", version)

	b.db = db
	b.stop = make(chan struct{})
	go b.watchPool()
	return nil
}

// watchPool stands in for a pool-level error handler: database/sql repairs
// broken idle connections silently, so we probe on an interval and log
// failures instead of letting them surface anywhere.
func (b *postgresBackend) watchPool() {
	ticker := time.NewTicker(poolCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if err := b.db.Ping(); err != nil {
				slog.Error("unexpected error on idle connection", "error", err)
			}
		}
	}
}

func (b *postgresBackend) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := b.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (b *postgresBackend) get(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

var returningClause = regexp.MustCompile(`(?i)\breturning\b`)

func (b *postgresBackend) run(ctx context.Context, query string, args ...any) (RunResult, error) {
	// postgres reports insert ids only through a RETURNING clause, so only
	// statements carrying one go through the row-reading path. Plain
	// mutations use Exec for the affected-row count.
	if !returningClause.MatchString(query) {
		res, err := b.db.ExecContext(ctx, query, args...)
		if err != nil {
			return RunResult{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return RunResult{}, err
		}
		return RunResult{RowsAffected: n}, nil
	}

	rows, err := b.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return RunResult{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return RunResult{}, err
	}

	var result RunResult
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return RunResult{}, err
		}
		if result.RowsAffected == 0 {
			result.InsertID = extractInsertID(cols, row)
		}
		result.RowsAffected++
	}
	return result, rows.Err()
}

// extractInsertID picks the insert id out of the first returned row:
// a column literally named "id" wins, otherwise the first column.
func extractInsertID(cols []string, row Row) sql.NullInt64 {
	if v, ok := row["id"]; ok {
		return toNullInt64(v)
	}
	if len(cols) > 0 {
		if v, ok := row[cols[0]]; ok {
			return toNullInt64(v)
		}
	}
	return sql.NullInt64{}
}

func toNullInt64(v any) sql.NullInt64 {
	if n, ok := AsInt64(v); ok {
		return sql.NullInt64{Int64: n, Valid: true}
	}
	return sql.NullInt64{}
}

func (b *postgresBackend) close() error {
	close(b.stop)
	err := b.db.Close()
	slog.Info("PostgreSQL connection pool closed")
	return err
}

func (b *postgresBackend) versionQuery() string {
	return "SELECT version()"
}

func (b *postgresBackend) stats() (PoolStats, bool) {
	if b.db == nil {
		return PoolStats{}, false
	}
	s := b.db.Stats()
	return PoolStats{
		Total:   s.OpenConnections,
		Idle:    s.Idle,
		Waiting: int(s.WaitCount),
	}, true
}
