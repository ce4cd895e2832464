package scoring

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine() *Engine {
	return NewEngine(discardLogger(),
		WithClock(func() time.Time { return testToday }),
		WithLocation(time.UTC),
	)
}

func TestScoreTask_SmartBalanceBreakdown(t *testing.T) {
	e := newTestEngine()
	task := store.Task{ID: 1, Title: "A", DueDate: "2026-10-15", Importance: 9, EstimatedHours: float64Ptr(2)}

	exp, err := e.ScoreTask(task, NewSnapshot([]store.Task{task}), SmartBalance)
	require.NoError(t, err)

	assert.Equal(t, "Smart Balance", exp.Strategy)
	assert.Equal(t, 90.0, exp.Urgency.Score)
	assert.Equal(t, 0.30, exp.Urgency.Weight)
	assert.InDelta(t, 27.0, exp.Urgency.Weighted, 1e-9)
	assert.Equal(t, 90.0, exp.Importance.Score)
	assert.InDelta(t, 31.5, exp.Importance.Weighted, 1e-9)
	assert.Equal(t, 80.0, exp.Effort.Score)
	assert.Equal(t, 0.0, exp.ForwardDeps.Score)
	assert.Equal(t, 1.0, exp.BackwardDeps.Multiplier)
	assert.InDelta(t, 74.5, exp.BaseScore, 1e-9)
	assert.InDelta(t, 74.5, exp.FinalScore, 1e-9)
	assert.Len(t, exp.Factors(), 4)
}

func TestRank_DueSoonAndImportantFirst(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 2, Title: "B", DueDate: "2026-10-24", Importance: 3, EstimatedHours: float64Ptr(2)},
		{ID: 1, Title: "A", DueDate: "2026-10-15", Importance: 9, EstimatedHours: float64Ptr(2)},
	}

	ranked, err := e.Rank(tasks, SmartBalance)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, int64(1), ranked[0].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, int64(2), ranked[1].ID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Greater(t, ranked[0].PriorityScore, ranked[1].PriorityScore)
	assert.InDelta(t, 74.5, ranked[0].PriorityScore, 1e-9)
	assert.InDelta(t, 35.5, ranked[1].PriorityScore, 1e-9)
	assert.Equal(t, LevelHigh, ranked[0].PriorityLevel)
	assert.Equal(t, LevelLow, ranked[1].PriorityLevel)

	// Input untouched.
	assert.Equal(t, int64(2), tasks[0].ID)
}

func TestRank_ThreeOpenDependencies(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 1, Title: "one", Importance: 5},
		{ID: 2, Title: "two", Importance: 5},
		{ID: 3, Title: "three", Importance: 5},
		{ID: 4, Title: "blocked", Importance: 5, Dependencies: store.ParseDependencies("1,2,3")},
	}

	ranked, err := e.Rank(tasks, SmartBalance)
	require.NoError(t, err)

	var blocked *ScoredTask
	for i := range ranked {
		if ranked[i].ID == 4 {
			blocked = &ranked[i]
		}
	}
	require.NotNil(t, blocked)
	exp := blocked.PriorityExplanation
	assert.Equal(t, 0.4, exp.BackwardDeps.Multiplier)
	assert.Equal(t, 3, exp.BackwardDeps.BlockerCount)
	assert.Contains(t, exp.BackwardDeps.Reason, "3")
	assert.InDelta(t, exp.BaseScore*0.4, exp.FinalScore, 0.01)

	// Each prerequisite blocks one task.
	for _, st := range ranked {
		if st.ID != 4 {
			assert.Equal(t, 30.0, st.PriorityExplanation.ForwardDeps.Score, "task %d", st.ID)
		}
	}
	assert.Equal(t, int64(4), ranked[len(ranked)-1].ID)
}

func TestRank_CompletedAndMissingDependencies(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 1, Title: "done", Importance: 5, Completed: true},
		{ID: 2, Title: "waits on done and ghost", Importance: 5, Dependencies: store.Dependencies{1, 99}},
	}

	ranked, err := e.Rank(tasks, DeadlineDriven)
	require.NoError(t, err)

	for _, st := range ranked {
		if st.ID == 2 {
			assert.Equal(t, 1.0, st.PriorityExplanation.BackwardDeps.Multiplier)
			assert.Equal(t, "All dependencies completed - ready to start", st.PriorityExplanation.BackwardDeps.Reason)
		}
	}
}

func TestRank_NoDueDateUrgencyIsTen(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{{ID: 1, Title: "someday", Importance: 10, EstimatedHours: float64Ptr(0.5)}}

	for _, s := range Strategies() {
		ranked, err := e.Rank(tasks, s)
		require.NoError(t, err)
		assert.Equal(t, 10.0, ranked[0].PriorityExplanation.Urgency.Score, s.Name())
	}
}

func TestRank_SortedForEveryStrategy(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 1, Title: "a", DueDate: "2026-10-10", Importance: 2, EstimatedHours: float64Ptr(12)},
		{ID: 2, Title: "b", DueDate: "2026-10-29", Importance: 9, EstimatedHours: float64Ptr(1)},
		{ID: 3, Title: "c", Importance: 6, Dependencies: store.Dependencies{2}},
		{ID: 4, Title: "d", DueDate: "2026-10-16", Importance: 4, EstimatedHours: float64Ptr(3), Dependencies: store.Dependencies{2, 3}},
		{ID: 5, Title: "e", DueDate: "2026-10-14", Importance: 7, Dependencies: store.Dependencies{1, 2, 3}},
	}

	for _, s := range Strategies() {
		t.Run(s.Slug(), func(t *testing.T) {
			ranked, err := e.Rank(tasks, s)
			require.NoError(t, err)
			require.Len(t, ranked, len(tasks))
			assert.True(t, sort.SliceIsSorted(ranked, func(i, j int) bool {
				return ranked[i].PriorityScore > ranked[j].PriorityScore
			}))
			for _, st := range ranked {
				exp := st.PriorityExplanation
				assert.InDelta(t, round2(exp.BaseScore*exp.BackwardDeps.Multiplier), exp.FinalScore, 0.011)
				assert.Equal(t, exp.FinalScore, st.PriorityScore)
			}
		})
	}
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 7, Title: "first", Importance: 5},
		{ID: 3, Title: "second", Importance: 5},
		{ID: 5, Title: "third", Importance: 5},
	}

	ranked, err := e.Rank(tasks, FastestWins)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3, 5}, []int64{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}

func TestRank_SelfDependencyIgnored(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{{ID: 1, Title: "loop", Importance: 5, Dependencies: store.Dependencies{1}}}

	ranked, err := e.Rank(tasks, SmartBalance)
	require.NoError(t, err)
	exp := ranked[0].PriorityExplanation
	assert.Equal(t, 0.0, exp.ForwardDeps.Score)
	assert.Equal(t, 1.0, exp.BackwardDeps.Multiplier)
	assert.Equal(t, "No dependencies - ready to start", exp.BackwardDeps.Reason)
}

func TestRank_Errors(t *testing.T) {
	e := newTestEngine()

	_, err := e.Rank([]store.Task{{ID: 1, Title: "x"}}, Strategy(9))
	assert.True(t, errors.Is(err, ErrInvalidStrategy))

	_, err = e.Rank([]store.Task{{ID: 8, Title: "bad", DueDate: "soon"}}, SmartBalance)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Contains(t, err.Error(), "score task 8")
}

func TestRank_Empty(t *testing.T) {
	ranked, err := newTestEngine().Rank(nil, HighImpact)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestExplainAndPendingOnly(t *testing.T) {
	e := newTestEngine()
	tasks := []store.Task{
		{ID: 1, Title: "done", DueDate: "2026-10-14", Importance: 10, Completed: true},
		{ID: 2, Title: "open", Importance: 5, Dependencies: store.Dependencies{1}},
		{ID: 3, Title: "also open", Importance: 2},
	}

	st, err := e.Explain(tasks, 2, SmartBalance)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, int64(2), st.ID)

	missing, err := e.Explain(tasks, 42, SmartBalance)
	require.NoError(t, err)
	assert.Nil(t, missing)

	ranked, err := e.Rank(tasks, SmartBalance)
	require.NoError(t, err)
	pending := PendingOnly(ranked)
	require.Len(t, pending, 2)
	for i, p := range pending {
		assert.False(t, p.Completed)
		assert.Equal(t, i+1, p.Rank)
	}
}

func TestPriorityLevel(t *testing.T) {
	assert.Equal(t, LevelHigh, PriorityLevel(70))
	assert.Equal(t, LevelMedium, PriorityLevel(69.99))
	assert.Equal(t, LevelMedium, PriorityLevel(40))
	assert.Equal(t, LevelLow, PriorityLevel(39.99))
}

func TestSnapshot(t *testing.T) {
	snap := NewSnapshot([]store.Task{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", Dependencies: store.Dependencies{1, 1, 3}},
		{ID: 3, Title: "c", Dependencies: store.Dependencies{1}, Completed: true},
		{ID: 1, Title: "duplicate id"},
	})

	assert.Equal(t, 4, snap.Len())
	got, ok := snap.Task(1)
	require.True(t, ok)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, 2, snap.BlockedCount(1))
	assert.Equal(t, 1, snap.BlockedCount(3))
	assert.Equal(t, 0, snap.BlockedCount(2))
	// 3 is completed; only 1 still blocks.
	b, _ := snap.Task(2)
	assert.Equal(t, 1, snap.BlockerCount(*b))
}

func TestSnapshotCountsDependenciesOfRepeatedIDs(t *testing.T) {
	snap := NewSnapshot([]store.Task{
		{ID: 1, Title: "first"},
		{ID: 2, Title: "target"},
		{ID: 1, Title: "second", Dependencies: store.Dependencies{2}},
		{ID: 3, Title: "third", Dependencies: store.Dependencies{2}},
	})

	assert.Equal(t, 2, snap.BlockedCount(2))
	got, ok := snap.Task(1)
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)

	ranked, err := newTestEngine().Rank(snap.Tasks(), SmartBalance)
	require.NoError(t, err)
	for _, st := range ranked {
		if st.ID == 2 {
			assert.Equal(t, 60.0, st.PriorityExplanation.ForwardDeps.Score)
		}
	}
}
