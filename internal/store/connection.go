// Package store persists accounts, batches, entries, checks, FX rates,
// shipments and stock levels in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.uber.org/multierr"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is a ledger database. Its methods run outside any transaction; use
// Transaction for anything that must be atomic.
type DB struct {
	queries
	db *sql.DB
}

// Open opens a ledger database and applies the schema.
// For SQLite the dsn is a file path.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, "sqlite3", "":
		return OpenSQLite(ctx, dsn)
	case DriverPostgres, "pgx":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenSQLite opens a SQLite ledger file.
// Transactions take the write lock up front (_txlock=immediate) so concurrent
// writers serialize instead of failing on lock upgrade.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return initialize(ctx, db, sqliteDialect{})
}

// OpenPostgres opens a PostgreSQL ledger through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return initialize(ctx, db, postgresDialect{})
}

func initialize(ctx context.Context, db *sql.DB, d dialect) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("pinging database: %w", err), db.Close())
	}

	conn := &DB{queries: queries{q: db, d: d}, db: db}
	if err := conn.Migrate(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("initializing schema: %w", err), db.Close())
	}
	return conn, nil
}

// Migrate creates all tables, indexes and triggers that do not exist yet.
func (c *DB) Migrate(ctx context.Context) error {
	for i, stmt := range c.d.schema() {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (c *DB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Driver returns the dialect name of the connection.
func (c *DB) Driver() string {
	return c.d.name()
}

// Tx is a ledger transaction. All repository methods are available on it.
type Tx struct {
	queries
	tx *sql.Tx
}

// Transaction executes fn within a transaction.
// If fn returns an error or panics, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (c *DB) Transaction(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	tx := &Tx{queries: queries{q: sqlTx, d: c.d}, tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// savepoint runs fn inside a savepoint so a failed statement can be undone
// without aborting the enclosing transaction. PostgreSQL otherwise refuses
// every later statement in the transaction.
func (t *Tx) savepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rolling back to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}
