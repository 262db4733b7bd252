// Package db provides the embedded SQLite store backing the local task mirror.
//
// The mirror holds one table, tasks, keyed by the identifier the remote API
// assigns. Rows are never updated in place: the whole table is replaced by a
// resync (ReplaceAll) or emptied by an explicit clear (DeleteAll).
//
// Architecture:
//   - Database file: data/tasks.db by default
//   - WAL mode: readers keep seeing the previous snapshot while a resync commits
//   - Schema: tasks table with an index on title
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/todomirror/todomirror/internal/mirror/schema"
)

// DB wraps the SQLite connection holding the task mirror.
type DB struct {
	conn *sql.DB
	path string
}

// Statistics is an aggregate snapshot of the mirror taken at call time.
type Statistics struct {
	Total          int       `json:"total" yaml:"total"`
	CompletedCount int       `json:"completedCount" yaml:"completedCount"`
	PendingCount   int       `json:"pendingCount" yaml:"pendingCount"`
	DistinctOwners int       `json:"distinctOwners" yaml:"distinctOwners"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
}

// Open creates a new database connection at the specified path.
//
// The parent directory is created when missing. The database is opened in
// WAL mode with a busy timeout so that a resync transaction and concurrent
// readers do not fail on lock contention.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	database, err := db.Open("data/tasks.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout must apply to every pooled connection.
	connStr := path
	if !strings.HasPrefix(connStr, "file:") {
		connStr = "file:" + connStr
	}
	if strings.Contains(connStr, "?") {
		connStr += "&"
	} else {
		connStr += "?"
	}
	connStr += "_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// Path returns the file path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tasks table if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL CHECK (length(title) <= %d),
		completed INTEGER NOT NULL DEFAULT 0
	);

	-- Title filtering is a case-insensitive substring match done in Go, so
	-- only the owner column is indexed.
	DROP INDEX IF EXISTS idx_tasks_title;
	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	`, schema.MaxTitleLength)

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ReplaceAll deletes every mirrored task and inserts tasks in their place.
//
// Both steps run in a single transaction: if any insert fails (for example a
// duplicate identifier) the transaction is rolled back and the previous mirror
// content is left untouched. Returns the number of rows written.
func (db *DB) ReplaceAll(ctx context.Context, tasks []schema.Task) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return 0, fmt.Errorf("failed to clear tasks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks (id, user_id, title, completed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, task := range tasks {
		if _, err := stmt.ExecContext(ctx, task.ID, task.UserID, task.Title, task.Completed); err != nil {
			return 0, fmt.Errorf("failed to insert task %d: %w", task.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return written, nil
}

// DeleteAll removes every mirrored task and returns the number removed.
func (db *DB) DeleteAll(ctx context.Context) (int, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM tasks")
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tasks: %w", err)
	}
	return int(n), nil
}

// GetTaskCount returns the total number of tasks in the mirror.
func (db *DB) GetTaskCount() (int, error) {
	return db.GetTaskCountContext(context.Background())
}

// GetTaskCountContext returns the total number of tasks with context support.
func (db *DB) GetTaskCountContext(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get task count: %w", err)
	}
	return count, nil
}

// ListTasksFilter configures the ListTasks query.
type ListTasksFilter struct {
	// Title keeps tasks whose title contains this text, ignoring case (empty = all)
	Title string
}

// ListTasks retrieves mirrored tasks ordered by identifier.
//
// Title matching uses schema.TitleContains rather than SQL LIKE: SQLite folds
// case for ASCII only, and the remote-direct path folds Unicode.
func (db *DB) ListTasks(ctx context.Context, filter ListTasksFilter) ([]schema.Task, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, completed
		FROM tasks
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	return schema.FilterByTitle(tasks, filter.Title), nil
}

// GetTaskByID retrieves a single task by identifier.
// Returns schema.ErrNotFound if no such task is mirrored.
func (db *DB) GetTaskByID(ctx context.Context, id int) (*schema.Task, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, completed
		FROM tasks
		WHERE id = ?
	`, id)

	var task schema.Task
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, schema.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return &task, nil
}

// GetStatistics aggregates the current mirror content.
func (db *DB) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0), COUNT(DISTINCT user_id)
		FROM tasks
	`).Scan(&stats.Total, &stats.CompletedCount, &stats.DistinctOwners)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	stats.PendingCount = stats.Total - stats.CompletedCount
	stats.Timestamp = time.Now().UTC()
	return &stats, nil
}

// scanTasks is a helper function to scan multiple tasks from query results.
func scanTasks(rows *sql.Rows) ([]schema.Task, error) {
	tasks := []schema.Task{}

	for rows.Next() {
		var task schema.Task
		if err := rows.Scan(&task.ID, &task.UserID, &task.Title, &task.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}
