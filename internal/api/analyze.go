package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/Taskboard/internal/cache"
	"github.com/MikeSquared-Agency/Taskboard/internal/hermes"
	"github.com/MikeSquared-Agency/Taskboard/internal/metrics"
	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

// CacheHeader reports whether a stored ranking came from the cache.
const CacheHeader = "X-Cache"

type AnalysisHandler struct {
	store           store.Store
	engine          *scoring.Engine
	cache           *cache.RankingCache
	hermes          hermes.Client
	defaultStrategy scoring.Strategy
	maxTasks        int
	logger          *slog.Logger
}

func NewAnalysisHandler(s store.Store, e *scoring.Engine, c *cache.RankingCache, h hermes.Client,
	defaultStrategy scoring.Strategy, maxTasks int, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		store:           s,
		engine:          e,
		cache:           c,
		hermes:          h,
		defaultStrategy: defaultStrategy,
		maxTasks:        maxTasks,
		logger:          logger,
	}
}

type AnalysisResponse struct {
	Strategy  string               `json:"strategy"`
	TaskCount int                  `json:"task_count"`
	Tasks     []scoring.ScoredTask `json:"tasks"`
}

// AnalyzeRequest ranks a caller-supplied task list without touching storage.
// Numeric task fields are read leniently; see store.LenientTask.
type AnalyzeRequest struct {
	Strategy string              `json:"strategy"`
	Tasks    []store.LenientTask `json:"tasks" validate:"required"`
}

// Analyze ranks the stored tasks.
// GET /api/v1/tasks/analyze?strategy=&pending_only=
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.analyzeStored(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AnalyzeLegacy serves the bare ranked array the browser board expects.
// GET /api/tasks/analyze/
func (h *AnalysisHandler) AnalyzeLegacy(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.analyzeStored(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp.Tasks)
}

func (h *AnalysisHandler) analyzeStored(w http.ResponseWriter, r *http.Request) (*AnalysisResponse, bool) {
	strategy, err := h.strategyParam(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	pendingOnly := false
	if v := r.URL.Query().Get("pending_only"); v != "" {
		if pendingOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid pending_only")
			return nil, false
		}
	}

	ranked, result, err := h.rankStored(r.Context(), strategy)
	if err != nil {
		writeRankError(w, err)
		return nil, false
	}
	if h.cache != nil {
		w.Header().Set(CacheHeader, result)
	}
	if pendingOnly {
		ranked = scoring.PendingOnly(ranked)
	}
	return &AnalysisResponse{Strategy: strategy.Name(), TaskCount: len(ranked), Tasks: ranked}, true
}

// AnalyzeAdHoc ranks the tasks in the request body.
// POST /api/v1/tasks/analyze
func (h *AnalysisHandler) AnalyzeAdHoc(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}
	if len(req.Tasks) > h.maxTasks {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d tasks can be ranked at once", h.maxTasks))
		return
	}
	strategy, err := h.strategyParam(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ranked, err := h.rank(store.Tasks(req.Tasks), strategy)
	if err != nil {
		writeRankError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Strategy: strategy.Name(), TaskCount: len(ranked), Tasks: ranked})
}

// Explain returns one task's scoring breakdown within the stored ranking.
// GET /api/v1/scoring/explain/{task_id}?strategy=
func (h *AnalysisHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r, "task_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task_id")
		return
	}
	strategy, err := h.strategyParam(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	ranked, _, err := h.rankStored(r.Context(), strategy)
	if err != nil {
		writeRankError(w, err)
		return
	}
	for i := range ranked {
		if ranked[i].ID == id {
			writeJSON(w, http.StatusOK, ranked[i])
			return
		}
	}
	// Present in storage but outside the ranked window.
	writeError(w, http.StatusNotFound, "task not in ranking")
}

type StrategyInfo struct {
	Name    string            `json:"name"`
	Slug    string            `json:"slug"`
	Weights scoring.WeightSet `json:"weights"`
	Default bool              `json:"default"`
}

// Strategies lists the weighting presets.
// GET /api/v1/scoring/strategies
func (h *AnalysisHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	var out []StrategyInfo
	for _, s := range scoring.Strategies() {
		weights, err := s.Weights()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out = append(out, StrategyInfo{
			Name:    s.Name(),
			Slug:    s.Slug(),
			Weights: weights,
			Default: s == h.defaultStrategy,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AnalysisHandler) strategyParam(name string) (scoring.Strategy, error) {
	if name == "" {
		return h.defaultStrategy, nil
	}
	return scoring.ParseStrategy(name)
}

// rankStored ranks the full stored collection, via the cache when enabled.
func (h *AnalysisHandler) rankStored(ctx context.Context, strategy scoring.Strategy) ([]scoring.ScoredTask, string, error) {
	day := h.engine.Today().Format(store.DateLayout)
	cached, lookup := h.cache.Get(ctx, strategy, day)
	if lookup.Result == cache.ResultHit {
		h.publishAnalysis(strategy, cached, true)
		return cached, lookup.Result, nil
	}

	stored, err := h.store.ListTasks(ctx, store.TaskFilter{Limit: h.maxTasks})
	if err != nil {
		return nil, "", fmt.Errorf("load tasks: %w", err)
	}
	tasks := make([]store.Task, 0, len(stored))
	for _, t := range stored {
		tasks = append(tasks, *t)
	}

	ranked, err := h.rank(tasks, strategy)
	if err != nil {
		return nil, "", err
	}
	h.cache.Put(ctx, lookup, strategy, day, ranked)
	return ranked, lookup.Result, nil
}

func (h *AnalysisHandler) rank(tasks []store.Task, strategy scoring.Strategy) ([]scoring.ScoredTask, error) {
	start := time.Now()
	ranked, err := h.engine.Rank(tasks, strategy)
	metrics.ObserveRanking(strategy.Name(), rankOutcome(err), len(tasks), time.Since(start))
	if err != nil {
		return nil, err
	}
	h.publishAnalysis(strategy, ranked, false)
	return ranked, nil
}

func (h *AnalysisHandler) publishAnalysis(strategy scoring.Strategy, ranked []scoring.ScoredTask, cached bool) {
	if h.hermes == nil {
		return
	}
	var topID int64
	var topScore float64
	if len(ranked) > 0 {
		topID, topScore = ranked[0].ID, ranked[0].PriorityScore
	}
	evt := hermes.NewAnalysisCompletedEvent(strategy.Name(), len(ranked), topID, topScore, cached)
	if err := h.hermes.Publish(hermes.SubjectAnalysisCompleted, evt); err != nil {
		h.logger.Warn("event publish failed", "subject", hermes.SubjectAnalysisCompleted, "error", err)
	}
}

func rankOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, scoring.ErrInvalidStrategy):
		return metrics.OutcomeInvalidStrategy
	case errors.Is(err, scoring.ErrInvalidDate):
		return metrics.OutcomeInvalidData
	default:
		return metrics.OutcomeError
	}
}

func writeRankError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scoring.ErrInvalidStrategy):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scoring.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
