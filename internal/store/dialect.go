package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// dialect hides the few SQL differences between the supported databases.
type dialect interface {
	name() string
	// rebind rewrites ? placeholders into the dialect's form.
	rebind(query string) string
	// forUpdate is appended to row-locking selects.
	forUpdate() string
	schema() []string
}

type sqliteDialect struct{}

func (sqliteDialect) name() string               { return DriverSQLite }
func (sqliteDialect) rebind(query string) string { return query }

// SQLite has no row locks; immediate transactions hold the database write lock instead.
func (sqliteDialect) forUpdate() string { return "" }
func (sqliteDialect) schema() []string  { return sqliteSchema }

type postgresDialect struct{}

func (postgresDialect) name() string      { return DriverPostgres }
func (postgresDialect) forUpdate() string { return " FOR UPDATE" }
func (postgresDialect) schema() []string  { return postgresSchema }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isUnbalancedAbort reports whether err was raised by the batch balance trigger.
func isUnbalancedAbort(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unbalanced batch")
}
