package database

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// PureSQLiteDialect implements Dialect for SQLite through the cgo-free
// modernc.org/sqlite driver. It shares the SQLite schema and upsert syntax.
type PureSQLiteDialect struct{}

// NewPureSQLiteDialect creates a new cgo-free SQLite dialect
func NewPureSQLiteDialect() *PureSQLiteDialect {
	return &PureSQLiteDialect{}
}

func (d *PureSQLiteDialect) DriverName() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) DSN(config DialectConfig) string {
	return withParams(config.Path, "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
}

func (d *PureSQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *PureSQLiteDialect) ConfigureConnection(db *sql.DB) error {
	configureSQLitePool(db)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	return nil
}

func (d *PureSQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *PureSQLiteDialect) CreateMigrationsTableQuery() string {
	return sqliteMigrationsTable
}

func (d *PureSQLiteDialect) UpsertRunQuery() string {
	return onConflictRunUpsert
}

func (d *PureSQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}
