package tables

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tavola-pos/tavola/internal/platform/httpx"
)

// StaffCallRequest is the guest call-button payload.
type StaffCallRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// StaffCall handles POST /staff-call from guest terminals.
func (h *Handler) StaffCall(w http.ResponseWriter, r *http.Request) {
	var req StaffCallRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	tableNo, err := h.service.StaffCall(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			httpx.Problem(w, http.StatusUnauthorized, "Unknown Session", "session token not recognized")
			return
		}
		h.logger.Error("staff call", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "table_no": tableNo})
}

// List handles GET /tables.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list tables", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tables": list})
}

// RotateToken handles POST /tables/{id}/rotate-token.
func (h *Handler) RotateToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid table id")
		return
	}
	token, err := h.service.RotateToken(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "table not found")
			return
		}
		h.logger.Error("rotate token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"session_token": token})
}

// MountGuestRoutes exposes the guest staff-call endpoint.
func (h *Handler) MountGuestRoutes(r chi.Router) {
	r.Post("/staff-call", h.StaffCall)
}

// MountRoutes exposes the back-office table endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Post("/tables/{id}/rotate-token", h.RotateToken)
}
