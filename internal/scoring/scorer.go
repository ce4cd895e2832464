package scoring

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

// Explanation is the breakdown behind one task's priority score.
type Explanation struct {
	Strategy     string           `json:"strategy"`
	BaseScore    float64          `json:"base_score"`
	FinalScore   float64          `json:"final_score"`
	Urgency      FactorResult     `json:"urgency"`
	Importance   FactorResult     `json:"importance"`
	Effort       FactorResult     `json:"effort"`
	ForwardDeps  FactorResult     `json:"forward_deps"`
	BackwardDeps MultiplierResult `json:"backward_deps"`
}

// Factors returns the four weighted factors in a fixed order.
func (e Explanation) Factors() []FactorResult {
	return []FactorResult{e.Urgency, e.Importance, e.Effort, e.ForwardDeps}
}

// Priority levels, as rendered by the board's badges.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// ScoredTask is a task annotated with its computed priority. It is produced
// per ranking and never stored.
type ScoredTask struct {
	store.Task
	PriorityScore       float64     `json:"priority_score"`
	PriorityLevel       string      `json:"priority_level"`
	PriorityExplanation Explanation `json:"priority_explanation"`
	Rank                int         `json:"rank"`
}

// PriorityLevel buckets a final score.
func PriorityLevel(score float64) string {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Engine scores and ranks tasks. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to decide "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone whose calendar decides "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine creates an Engine using the local clock and time zone.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{now: time.Now, loc: time.Local, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current date in the engine's time zone.
func (e *Engine) Today() time.Time {
	return e.now().In(e.loc)
}

// ScoreTask computes the explanation for one task against snap.
func (e *Engine) ScoreTask(task store.Task, snap *Snapshot, strategy Strategy) (Explanation, error) {
	return e.scoreTask(task, snap, strategy, e.Today())
}

func (e *Engine) scoreTask(task store.Task, snap *Snapshot, strategy Strategy, today time.Time) (Explanation, error) {
	w, err := strategy.Weights()
	if err != nil {
		return Explanation{}, err
	}

	urgency, err := UrgencyFactor(task.DueDate, today)
	if err != nil {
		return Explanation{}, err
	}
	importance := ImportanceFactor(task.Importance)
	effort := EffortFactor(task.EstimatedHours)
	forward := ForwardDependencyFactor(snap.BlockedCount(task.ID))
	backward := BackwardDependencyMultiplier(hasDependencies(task), snap.BlockerCount(task))

	factors := []*FactorResult{&urgency, &importance, &effort, &forward}
	weights := []float64{w.Urgency, w.Importance, w.Effort, w.Dependence}

	var base float64
	for i, f := range factors {
		f.Weight = weights[i]
		f.Weighted = round2(f.Score * weights[i])
		base += f.Score * weights[i]
	}
	final := base * backward.Multiplier

	return Explanation{
		Strategy:     strategy.Name(),
		BaseScore:    round2(base),
		FinalScore:   round2(final),
		Urgency:      urgency,
		Importance:   importance,
		Effort:       effort,
		ForwardDeps:  forward,
		BackwardDeps: backward,
	}, nil
}

// Rank scores every task against the whole collection and returns them
// ordered by priority score, highest first. Equal scores keep input order.
// The input slice is not modified.
func (e *Engine) Rank(tasks []store.Task, strategy Strategy) ([]ScoredTask, error) {
	if _, err := strategy.Weights(); err != nil {
		return nil, err
	}

	snap := NewSnapshot(tasks)
	today := e.Today()

	scored := make([]ScoredTask, 0, len(tasks))
	for _, task := range tasks {
		exp, err := e.scoreTask(task, snap, strategy, today)
		if err != nil {
			return nil, fmt.Errorf("score task %d: %w", task.ID, err)
		}
		scored = append(scored, ScoredTask{
			Task:                task,
			PriorityScore:       exp.FinalScore,
			PriorityLevel:       PriorityLevel(exp.FinalScore),
			PriorityExplanation: exp,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}

	if len(scored) > 0 {
		e.logger.Debug("tasks ranked",
			"strategy", strategy.Name(),
			"tasks", len(scored),
			"top_task", scored[0].ID,
			"top_score", scored[0].PriorityScore,
		)
	}
	return scored, nil
}

// Explain ranks tasks and returns the entry for id, or nil if id is absent.
func (e *Engine) Explain(tasks []store.Task, id int64, strategy Strategy) (*ScoredTask, error) {
	ranked, err := e.Rank(tasks, strategy)
	if err != nil {
		return nil, err
	}
	for i := range ranked {
		if ranked[i].ID == id {
			return &ranked[i], nil
		}
	}
	return nil, nil
}

// PendingOnly drops completed tasks, keeping rank order and renumbering ranks.
func PendingOnly(ranked []ScoredTask) []ScoredTask {
	out := make([]ScoredTask, 0, len(ranked))
	for _, st := range ranked {
		if st.Completed {
			continue
		}
		st.Rank = len(out) + 1
		out = append(out, st)
	}
	return out
}
