package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/joeshaw/bods-gtfs/internal/schema"
)

// Options configures the SQLite connection.
type Options struct {
	// MaxOpenConns bounds the pool. SQLite admits a single writer, so the
	// pool is where concurrent batch inserts queue up.
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 1,
		BusyTimeout:  30 * time.Second,
	}
}

// Store provides access to the loaded GTFS snapshot
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the SQLite database at path
func Open(path string, opts Options) (*Store, error) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_sync=NORMAL&_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates every table and lookup index that does not exist yet
func (s *Store) EnsureSchema(ctx context.Context, tables []schema.Table) error {
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t.CreateSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		for _, stmt := range t.IndexSQL() {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

// InsertBatch writes rows into table in a single transaction. Each row holds
// one value per entry of columns, which must all belong to the table.
func (s *Store) InsertBatch(ctx context.Context, table schema.Table, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query, err := insertSQL(table, columns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table.Name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, table.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s batch: %w", table.Name, err)
	}
	return nil
}

func insertSQL(table schema.Table, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("no columns for %s", table.Name)
	}
	for _, c := range columns {
		if _, ok := table.Column(c); !ok {
			return "", fmt.Errorf("column %q does not belong to %s", c, table.Name)
		}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.Name, strings.Join(columns, ", "), placeholders), nil
}

// Count returns the number of rows in table
func (s *Store) Count(ctx context.Context, table schema.Table) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table.Name); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table.Name, err)
	}
	return n, nil
}
