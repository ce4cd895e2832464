package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Taskboard/internal/cache"
	"github.com/MikeSquared-Agency/Taskboard/internal/config"
	"github.com/MikeSquared-Agency/Taskboard/internal/hermes"
	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

// NewRouter builds the API. h and c may be nil to run without events or cache.
func NewRouter(s store.Store, h hermes.Client, c *cache.RankingCache, e *scoring.Engine, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	defaultStrategy, err := cfg.DefaultStrategy()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))

	tasks := NewTasksHandler(s, h, c, logger)
	analysis := NewAnalysisHandler(s, e, c, h, defaultStrategy, cfg.Scoring.MaxTasks, logger)
	admin := NewAdminHandler(s, e)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks", tasks.Create)
		r.Get("/tasks", tasks.List)
		r.Get("/tasks/analyze", analysis.Analyze)
		r.Post("/tasks/analyze", analysis.AnalyzeAdHoc)
		r.Get("/tasks/{id}", tasks.Get)
		r.Patch("/tasks/{id}", tasks.Update)
		r.Delete("/tasks/{id}", tasks.Delete)
		r.Post("/tasks/{id}/complete", tasks.Complete)

		r.Get("/scoring/explain/{task_id}", analysis.Explain)
		r.Get("/scoring/strategies", analysis.Strategies)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	// Paths used by the browser board.
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/all_tasks/", tasks.List)
		r.Post("/add/", tasks.Create)
		r.Get("/analyze/", analysis.AnalyzeLegacy)
	})

	return r, nil
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
