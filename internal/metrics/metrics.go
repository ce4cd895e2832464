// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ranking outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidStrategy = "invalid_strategy"
	OutcomeInvalidData     = "invalid_data"
	OutcomeError           = "error"
)

var (
	RankingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_rankings_total",
		Help: "Priority rankings computed, by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	RankingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskboard_ranking_duration_seconds",
		Help:    "Time spent scoring and sorting a task collection.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"strategy"})

	TasksScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskboard_tasks_scored_total",
		Help: "Individual tasks scored across all rankings.",
	})

	RankingCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_ranking_cache_total",
		Help: "Ranking cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	TaskWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_task_writes_total",
		Help: "Task mutations by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(RankingsTotal, RankingDuration, TasksScored, RankingCache, TaskWrites)
}

// ObserveRanking records one ranking attempt.
func ObserveRanking(strategy, outcome string, tasks int, elapsed time.Duration) {
	RankingsTotal.WithLabelValues(strategy, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	RankingDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	TasksScored.Add(float64(tasks))
}
