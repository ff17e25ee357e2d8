package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertRunQuery returns the atomic insert-or-overwrite statement for runs,
	// keyed on (plan_id, activity_id, run_date). Arguments follow RunUpsertColumns.
	UpsertRunQuery() string

	// IsUniqueViolation reports whether err was caused by a unique or primary key constraint
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// RunUpsertColumns is the argument order expected by Dialect.UpsertRunQuery.
var RunUpsertColumns = []string{
	"id", "caregiver_id", "child_id", "plan_id", "activity_id", "run_date",
	"steps_progress", "total_steps", "completed_steps", "skipped_steps",
	"completed_duration_minutes", "started_at", "finished_at", "created_at", "updated_at",
}

const runInsert = `
	INSERT INTO runs (id, caregiver_id, child_id, plan_id, activity_id, run_date,
		steps_progress, total_steps, completed_steps, skipped_steps,
		completed_duration_minutes, started_at, finished_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// onConflictRunUpsert is shared by SQLite and PostgreSQL, which both accept ON CONFLICT ... excluded.
const onConflictRunUpsert = runInsert + `
	ON CONFLICT (plan_id, activity_id, run_date) DO UPDATE SET
		steps_progress = excluded.steps_progress,
		total_steps = excluded.total_steps,
		completed_steps = excluded.completed_steps,
		skipped_steps = excluded.skipped_steps,
		completed_duration_minutes = excluded.completed_duration_minutes,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		updated_at = excluded.updated_at`

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
