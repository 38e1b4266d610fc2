package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   pinger
	storage string
}

// NewHealthHandler reports on the given store; storage names the backend ("postgres" or "memory").
func NewHealthHandler(store pinger, storage string) *HealthHandler {
	return &HealthHandler{store: store, storage: storage}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"}, nil)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "storage", h.storage, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"data":    map[string]any{"status": "unavailable", "storage": h.storage},
			})
			return
		}
	}

	writeSuccess(w, http.StatusOK, map[string]any{"status": "ready", "storage": h.storage}, nil)
}
