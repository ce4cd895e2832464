package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

// ErrInvalidDate is returned when a task's due date is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid due date")

const (
	defaultImportance = store.DefaultImportance
	defaultEffort     = 4.0
)

// FactorResult captures one factor's contribution to the total score.
type FactorResult struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
	Reason   string  `json:"reason"`
}

// MultiplierResult is the backward-dependency adjustment applied to the base score.
type MultiplierResult struct {
	Multiplier   float64 `json:"multiplier"`
	BlockerCount int     `json:"blocker_count"`
	Reason       string  `json:"reason"`
}

// --- Individual factor calculators ---

// UrgencyFactor scores how close dueDate is to today. Days are counted on
// the calendar of today's location. Every overdue task scores 100.
func UrgencyFactor(dueDate string, today time.Time) (FactorResult, error) {
	if strings.TrimSpace(dueDate) == "" {
		return FactorResult{Name: "urgency", Score: 10, Reason: "No due date set"}, nil
	}

	due, err := time.ParseInLocation(store.DateLayout, strings.TrimSpace(dueDate), today.Location())
	if err != nil {
		return FactorResult{}, fmt.Errorf("%w: %q", ErrInvalidDate, dueDate)
	}
	days := daysBetween(today, due)

	var score float64
	var reason string
	switch {
	case days < 0:
		overdue := -days
		score = math.Min(100, float64(overdue)*5+100)
		reason = fmt.Sprintf("Overdue by %d %s", overdue, plural(overdue, "day", "days"))
	case days == 0:
		score, reason = 95, "Due today"
	case days == 1:
		score, reason = 90, "Due tomorrow"
	case days == 2:
		score, reason = 80, "Due in 2 days"
	case days == 3:
		score, reason = 70, "Due in 3 days"
	case days <= 7:
		score, reason = 50, fmt.Sprintf("Due in %d days", days)
	case days <= 14:
		score, reason = 30, fmt.Sprintf("Due in %d days", days)
	default:
		score, reason = 20, fmt.Sprintf("Due in %d days", days)
	}
	return FactorResult{Name: "urgency", Score: score, Reason: reason}, nil
}

// daysBetween counts calendar days from today to due. Rounding absorbs DST
// shifts between the two midnights.
func daysBetween(today, due time.Time) int {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return int(math.Round(due.Sub(start).Hours() / 24))
}

// ImportanceFactor maps the 1-10 rating onto 10-100. Anything outside the
// range is scored as the default of 5.
func ImportanceFactor(importance int) FactorResult {
	if importance < 1 || importance > 10 {
		importance = defaultImportance
	}
	score := float64(importance * 10)

	level := "LOW"
	switch {
	case score >= 80:
		level = "CRITICAL"
	case score >= 60:
		level = "HIGH"
	case score >= 40:
		level = "MEDIUM"
	}
	return FactorResult{
		Name:   "importance",
		Score:  score,
		Reason: fmt.Sprintf("%s importance (%d/10)", level, importance),
	}
}

// EffortFactor rewards quick wins. Missing or non-positive estimates count as 4 hours.
func EffortFactor(estimatedHours *float64) FactorResult {
	hours := defaultEffort
	if estimatedHours != nil && *estimatedHours > 0 {
		hours = *estimatedHours
	}

	var score float64
	var tier string
	switch {
	case hours <= 1:
		score, tier = 100, "QUICK"
	case hours <= 2:
		score, tier = 80, "SHORT"
	case hours <= 4:
		score, tier = 60, "MODERATE"
	case hours <= 8:
		score, tier = 40, "LONG"
	default:
		score, tier = 20, "EXTENDED"
	}

	h := strconv.FormatFloat(hours, 'f', -1, 64)
	unit := "hours"
	if hours == 1 {
		unit = "hour"
	}
	return FactorResult{
		Name:   "effort",
		Score:  score,
		Reason: fmt.Sprintf("%s effort (%s %s)", tier, h, unit),
	}
}

// ForwardDependencyFactor scores a task by how many other tasks wait on it.
func ForwardDependencyFactor(blocked int) FactorResult {
	var score float64
	switch {
	case blocked <= 0:
		return FactorResult{Name: "forward_deps", Score: 0, Reason: "No tasks are blocked by this task"}
	case blocked == 1:
		return FactorResult{Name: "forward_deps", Score: 30, Reason: "This task is blocking 1 task"}
	case blocked == 2:
		score = 60
	default:
		score = 100
	}
	return FactorResult{
		Name:   "forward_deps",
		Score:  score,
		Reason: fmt.Sprintf("This task is blocking %d tasks", blocked),
	}
}

// BackwardDependencyMultiplier discounts a task by its unfinished prerequisites.
// hasDeps distinguishes "no dependencies" from "all dependencies done".
func BackwardDependencyMultiplier(hasDeps bool, blockers int) MultiplierResult {
	if !hasDeps {
		return MultiplierResult{Multiplier: 1.0, Reason: "No dependencies - ready to start"}
	}

	switch {
	case blockers <= 0:
		return MultiplierResult{Multiplier: 1.0, Reason: "All dependencies completed - ready to start"}
	case blockers == 1:
		return MultiplierResult{Multiplier: 0.8, BlockerCount: 1, Reason: "Blocked by 1 incomplete task"}
	case blockers == 2:
		return MultiplierResult{Multiplier: 0.6, BlockerCount: 2, Reason: "Blocked by 2 incomplete tasks"}
	default:
		return MultiplierResult{
			Multiplier:   0.4,
			BlockerCount: blockers,
			Reason:       fmt.Sprintf("Blocked by %d incomplete tasks", blockers),
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
