//go:build integration

package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate("up", slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE tasks RESTART IDENTITY")
		s.Close()
	})

	return s
}

func TestCreateAndGetTask(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	hours := 2.5
	task := &Task{
		Title:          "Integration Test Task",
		DueDate:        "2026-10-20",
		EstimatedHours: &hours,
		Importance:     7,
		Dependencies:   Dependencies{1, 2},
	}

	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected non-zero task ID after create")
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if got.Title != task.Title {
		t.Errorf("expected title %q, got %q", task.Title, got.Title)
	}
	if got.DueDate != "2026-10-20" {
		t.Errorf("expected due date 2026-10-20, got %q", got.DueDate)
	}
	if got.EstimatedHours == nil || *got.EstimatedHours != 2.5 {
		t.Errorf("expected 2.5 estimated hours, got %v", got.EstimatedHours)
	}
	if got.Dependencies.String() != "1,2" {
		t.Errorf("expected dependencies 1,2, got %q", got.Dependencies.String())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := setupTestDB(t)

	got, err := s.GetTask(context.Background(), 999999)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}

func TestUpdateListAndStats(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	a := &Task{Title: "A", DueDate: "2026-10-01", Importance: 5}
	b := &Task{Title: "B", Importance: 5}
	for _, task := range []*Task{a, b} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	b.Completed = true
	if err := s.UpdateTask(ctx, b); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	done := false
	pending, err := s.ListTasks(ctx, TaskFilter{Completed: &done})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "A" {
		t.Fatalf("expected only A pending, got %+v", pending)
	}

	stats, err := s.GetStats(ctx, "2026-10-14")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Overdue != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := s.DeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if got, _ := s.GetTask(ctx, a.ID); got != nil {
		t.Error("expected task to be deleted")
	}
}
