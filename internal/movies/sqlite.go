package movies

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteSource is a Source backed by a local SQLite file. It is populated by
// Insert (see Mirror) and lets moviechat run without a MongoDB server.
type SQLiteSource struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLiteSource at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string) (*SQLiteSource, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteSource{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteSource) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS movies (
    id     TEXT PRIMARY KEY,
    title  TEXT NOT NULL,
    plot   TEXT NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Insert upserts movies in one transaction. Rows keep their first insertion
// position, so Fetch order is stable across re-mirrors.
func (s *SQLiteSource) Insert(ctx context.Context, movies []Movie) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO movies (id, title, plot) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, plot = excluded.plot`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx, m.ID, m.Title, m.Plot); err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Fetch returns at most limit movies in insertion order.
func (s *SQLiteSource) Fetch(ctx context.Context, limit int) ([]Movie, error) {
	const q = `SELECT id, title, plot FROM movies ORDER BY rowid LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch: %w", err)
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Plot); err != nil {
			return nil, fmt.Errorf("sqlite: fetch scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: fetch rows: %w", err)
	}
	return out, nil
}

// Close releases the database connection pool.
func (s *SQLiteSource) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}
