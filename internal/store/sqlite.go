package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

// SQLiteStore keeps tasks in a local SQLite file, for single-node installs
// and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; also keeps a ":memory:" database on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Migrate(command string, logger *slog.Logger) error {
	return Migrate(s.db, DialectSQLite, command, logger)
}

const sqliteTaskColumns = `id, title, due_date, estimated_hours, importance,
	dependencies, completed, created_at, updated_at`

func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	if _, err := parseDueDate(task.DueDate); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, due_date, estimated_hours, importance, dependencies, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title, nullableString(task.DueDate), task.EstimatedHours, task.Importance,
		task.Dependencies.String(), task.Completed, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + sqliteTaskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}

	if filter.Completed != nil {
		query += " AND completed = ?"
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task *Task) error {
	if _, err := parseDueDate(task.DueDate); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, due_date = ?, estimated_hours = ?, importance = ?,
			dependencies = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, nullableString(task.DueDate), task.EstimatedHours, task.Importance,
		task.Dependencies.String(), task.Completed, now.Format(time.RFC3339Nano), task.ID,
	)
	if err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) GetStats(ctx context.Context, today string) (*TaskStats, error) {
	if _, err := time.Parse(DateLayout, today); err != nil {
		return nil, fmt.Errorf("invalid stats date %q: %w", today, err)
	}
	stats := &TaskStats{}
	// ISO dates compare correctly as text.
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT completed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT completed AND due_date IS NOT NULL AND due_date < ? THEN 1 ELSE 0 END), 0)
		FROM tasks`, today,
	).Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.Overdue)
	return stats, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var due sql.NullString
	var hours sql.NullFloat64
	var deps, createdAt, updatedAt string
	if err := row.Scan(
		&t.ID, &t.Title, &due, &hours, &t.Importance,
		&deps, &t.Completed, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if due.Valid {
		t.DueDate = due.String
	}
	if hours.Valid {
		h := hours.Float64
		t.EstimatedHours = &h
	}
	t.Dependencies = ParseDependencies(deps)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return t, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
