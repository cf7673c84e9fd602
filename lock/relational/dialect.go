package relational

import (
	"strconv"

	"github.com/enverbisevac/locker/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the differences between the supported databases.
type Dialect interface {
	Name() string
	// Placeholder returns the bind parameter for the n-th argument, from 1.
	Placeholder(n int) string
	// CreateTable returns the statements creating table and its indexes.
	CreateTable(table string) []string
	// LockClause is appended to a SELECT to lock the returned row.
	LockClause() string
	// Begin returns the statement opening a write transaction, or "" for
	// the driver default.
	Begin() string
	IsUniqueViolation(err error) bool
	// IsLockConflict reports whether err was caused by a concurrent writer
	// holding the lock the statement needed.
	IsLockConflict(err error) bool
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case Postgres.Name():
		return Postgres, true
	case SQLite.Name():
		return SQLite, true
	}
	return nil, false
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) CreateTable(table string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
	id UUID PRIMARY KEY,
	lock_key TEXT NOT NULL,
	canonical_key TEXT NOT NULL UNIQUE,
	payload BYTEA,
	created_at TIMESTAMPTZ NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ` + indexName(table) + ` ON ` + table + ` (created_at)`,
	}
}

func (postgresDialect) LockClause() string { return " FOR UPDATE" }

func (postgresDialect) Begin() string { return "" }

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (postgresDialect) IsLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) CreateTable(table string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
	id TEXT PRIMARY KEY,
	lock_key TEXT NOT NULL,
	canonical_key TEXT NOT NULL UNIQUE,
	payload BLOB,
	created_at TIMESTAMP NOT NULL,
	modified_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ` + indexName(table) + ` ON ` + table + ` (created_at)`,
	}
}

// SQLite serializes writers on the database file.
func (sqliteDialect) LockClause() string { return "" }

// Begin takes the write lock up front, so a busy database is waited on
// for busy_timeout instead of failing when a read lock is upgraded.
func (sqliteDialect) Begin() string { return "BEGIN IMMEDIATE" }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func (sqliteDialect) IsLockConflict(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
