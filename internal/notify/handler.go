package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tavola-pos/tavola/internal/platform/httpx"
)

// pollTimeout is how long a poll hangs before returning unchanged. Short of
// the usual 30s proxy cutoff.
const pollTimeout = 25 * time.Second

type Handler struct {
	logger   *slog.Logger
	hub      *Hub
	notifier *Notifier
}

func NewHandler(logger *slog.Logger, hub *Hub, notifier *Notifier) *Handler {
	return &Handler{logger: logger, hub: hub, notifier: notifier}
}

// Updates handles GET /updates?since=N, the long-poll fallback for terminals
// that cannot hold a websocket.
func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)

	ctx, cancel := context.WithTimeout(r.Context(), pollTimeout)
	defer cancel()

	version := h.notifier.Wait(ctx, since)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"version": version,
		"changed": version > since,
	})
}

// WS handles GET /ws/{channel}.
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	ServeWS(h.hub, h.logger, w, r)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/updates", h.Updates)
	r.Get("/ws/{channel}", h.WS)
}
