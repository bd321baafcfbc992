package datastore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const createUsersTable = `CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

const createRatingsTable = `CREATE TABLE IF NOT EXISTS ratings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id TEXT NOT NULL,
	artist TEXT NOT NULL,
	title TEXT NOT NULL,
	rating_type TEXT NOT NULL CHECK(rating_type IN ('thumbs_up', 'thumbs_down')),
	user_id TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(song_id, user_id)
)`

type sqliteBackend struct {
	path string
	db   *sqlx.DB
}

func newSQLiteBackend(path string) *sqliteBackend {
	return &sqliteBackend{path: path}
}

func (b *sqliteBackend) connect(ctx context.Context) error {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", b.path))
	if err != nil {
		return &OpenError{Err: err}
	}
	// sqlite serializes writes itself; one connection keeps all access on
	// the driver's internal queue instead of racing for the file lock.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &OpenError{Err: err}
	}

	for _, stmt := range []string{createUsersTable, createRatingsTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return &SchemaError{Err: err}
		}
	}

	slog.Info("connected to SQLite database", "path", b.path)
	b.db = db
	return nil
}

func (b *sqliteBackend) query(ctx context.Context, query string, args ...any) ([]Row, error) {
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

func (b *sqliteBackend) get(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (b *sqliteBackend) run(ctx context.Context, query string, args ...any) (RunResult, error) {
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return RunResult{}, err
	}

	var result RunResult
	if id, err := res.LastInsertId(); err == nil {
		result.InsertID.Int64 = id
		result.InsertID.Valid = true
	}
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	return result, nil
}

func (b *sqliteBackend) close() error {
	slog.Info("SQLite connection closed")
	return b.db.Close()
}

func (b *sqliteBackend) versionQuery() string {
	return "SELECT sqlite_version() as version"
}

func (b *sqliteBackend) stats() (PoolStats, bool) {
	return PoolStats{}, false
}
