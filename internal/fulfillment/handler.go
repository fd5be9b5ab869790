package fulfillment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tavola-pos/tavola/internal/platform/httpx"
)

// ChangeNotifier wakes polling and streaming clients after a commit.
type ChangeNotifier interface {
	Changed(event string, payload any)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	notifier ChangeNotifier
}

func NewHandler(logger *slog.Logger, service *Service, notifier ChangeNotifier) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		notifier: notifier,
	}
}

// Move handles POST /lines/{id}/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line id")
		return
	}
	var req MoveLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	outcome, err := h.service.Move(r.Context(), MoveRequest{
		LineID:   lineID,
		Target:   req.Target,
		Count:    req.Count,
		Memo:     req.Memo,
		Operator: req.Operator,
	})
	if err != nil {
		h.respondMoveError(w, err)
		return
	}

	if h.notifier != nil {
		h.notifier.Changed("line_moved", map[string]any{
			"line_id": outcome.LineID,
			"target":  outcome.Target,
			"moved":   outcome.Moved,
			"status":  outcome.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

// Counters handles GET /lines/{id}/counters.
func (h *Handler) Counters(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line id")
		return
	}
	counters, err := h.service.Counters(r.Context(), lineID)
	if err != nil {
		h.logger.Error("get counters", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, counters)
}

// Recalc handles POST /orders/{id}/recalc, the manual repair endpoint.
func (h *Handler) Recalc(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	totals, err := h.service.Recalc(r.Context(), orderID)
	if err != nil {
		h.logger.Error("recalc totals", slog.Any("error", err), slog.Int64("order_id", orderID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) respondMoveError(w http.ResponseWriter, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Units", stockErr.Error(), map[string]any{
			"line_id":   stockErr.LineID,
			"target":    stockErr.Target,
			"requested": stockErr.Requested,
			"sources":   stockErr.Sources,
		})
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidCount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "order line not found")
	case errors.Is(err, ErrAuditLineImmutable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Immutable Line", err.Error())
	default:
		h.logger.Error("bucket move", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
