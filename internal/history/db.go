// Package history keeps a local SQLite log of compiled backend queries so
// they can be inspected and replayed.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeLayout = "2006-01-02 15:04:05.000"

// Entry is one executed query.
type Entry struct {
	ID        string
	Tool      string
	Backend   string
	Statement string
	Rows      int
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// DB wraps the history database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations. Use ":memory:" for a throwaway store.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("migrate history database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Record stores e, filling in ID and CreatedAt when unset.
func (d *DB) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO queries (id, tool, backend, statement, rows, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Tool, e.Backend, e.Statement, e.Rows, e.Duration.Milliseconds(), e.Error, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return e, fmt.Errorf("insert query history: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first, optionally restricted to
// one tool.
func (d *DB) Recent(ctx context.Context, tool string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT id, tool, backend, statement, rows, duration_ms, error, created_at
		FROM queries
	`
	var args []any
	if tool != "" {
		q += " WHERE tool = ?"
		args = append(args, tool)
	}
	q += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		var created string
		if err := rows.Scan(&e.ID, &e.Tool, &e.Backend, &e.Statement, &e.Rows, &durationMS, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
