package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

type AdminHandler struct {
	store  store.Store
	engine *scoring.Engine
}

func NewAdminHandler(s store.Store, e *scoring.Engine) *AdminHandler {
	return &AdminHandler{store: s, engine: e}
}

// Stats counts tasks; overdue is judged against the engine's today.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	today := h.engine.Today().Format(store.DateLayout)
	stats, err := h.store.GetStats(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
