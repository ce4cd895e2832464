package scoring

import "github.com/MikeSquared-Agency/Taskboard/internal/store"

// Snapshot is a read-only view of the task collection being ranked. It
// indexes tasks by ID and counts dependents once, so per-task dependency
// scoring is a map lookup rather than a scan.
type Snapshot struct {
	tasks      []store.Task
	byID       map[int64]*store.Task
	dependents map[int64]int
}

// NewSnapshot indexes tasks. When IDs repeat the first task wins lookups, but
// every element's dependencies count toward dependents. A task listing its
// own ID is neither its own blocker nor its own dependent.
func NewSnapshot(tasks []store.Task) *Snapshot {
	s := &Snapshot{
		tasks:      tasks,
		byID:       make(map[int64]*store.Task, len(tasks)),
		dependents: make(map[int64]int),
	}
	for i := range tasks {
		if _, dup := s.byID[tasks[i].ID]; !dup {
			s.byID[tasks[i].ID] = &tasks[i]
		}
	}
	for i := range tasks {
		t := &tasks[i]
		seen := make(map[int64]struct{}, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				continue
			}
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			s.dependents[dep]++
		}
	}
	return s
}

// Tasks returns the tasks in input order.
func (s *Snapshot) Tasks() []store.Task { return s.tasks }

// Len is the number of tasks in the snapshot.
func (s *Snapshot) Len() int { return len(s.tasks) }

// Task looks up a task by ID.
func (s *Snapshot) Task(id int64) (*store.Task, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// BlockedCount is how many other tasks list id as a dependency.
func (s *Snapshot) BlockedCount(id int64) int {
	return s.dependents[id]
}

// BlockerCount is how many of task's dependencies exist and are still open.
// References to unknown tasks are ignored.
func (s *Snapshot) BlockerCount(task store.Task) int {
	n := 0
	seen := make(map[int64]struct{}, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		if dep == task.ID {
			continue
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		if t, ok := s.byID[dep]; ok && !t.Completed {
			n++
		}
	}
	return n
}

// hasDependencies reports whether task declares any prerequisite other than itself.
func hasDependencies(task store.Task) bool {
	for _, dep := range task.Dependencies {
		if dep != task.ID {
			return true
		}
	}
	return false
}
