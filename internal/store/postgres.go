package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded postgres migrations through a database/sql
// handle borrowed from the pool.
func (s *PostgresStore) Migrate(command string, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return Migrate(db, DialectPostgres, command, logger)
}

const taskColumns = `id, title, due_date, estimated_hours::float8, importance,
	dependencies, completed, created_at, updated_at`

func (s *PostgresStore) CreateTask(ctx context.Context, task *Task) error {
	due, err := parseDueDate(task.DueDate)
	if err != nil {
		return err
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, due_date, estimated_hours, importance, dependencies, completed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		task.Title, due, task.EstimatedHours, task.Importance, task.Dependencies.String(), task.Completed,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Completed != nil {
		n++
		query += fmt.Sprintf(" AND completed = $%d", n)
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *Task) error {
	due, err := parseDueDate(task.DueDate)
	if err != nil {
		return err
	}
	return s.pool.QueryRow(ctx, `
		UPDATE tasks SET
			title = $2, due_date = $3, estimated_hours = $4, importance = $5,
			dependencies = $6, completed = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		task.ID, task.Title, due, task.EstimatedHours, task.Importance,
		task.Dependencies.String(), task.Completed,
	).Scan(&task.UpdatedAt)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) GetStats(ctx context.Context, today string) (*TaskStats, error) {
	day, err := time.Parse(DateLayout, today)
	if err != nil {
		return nil, fmt.Errorf("invalid stats date %q: %w", today, err)
	}
	stats := &TaskStats{}
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT completed THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT completed AND due_date < $1::date THEN 1 ELSE 0 END), 0)
		FROM tasks`, day,
	).Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.Overdue)
	return stats, err
}

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	var due *time.Time
	var deps string
	if err := row.Scan(
		&t.ID, &t.Title, &due, &t.EstimatedHours, &t.Importance,
		&deps, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.DueDate = formatDueDate(due)
	t.Dependencies = ParseDependencies(deps)
	return t, nil
}
