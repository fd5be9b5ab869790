package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tavola-pos/tavola/internal/platform/httpx"
	"github.com/tavola-pos/tavola/internal/shared"
)

// ChangeNotifier wakes polling and streaming clients after a commit. The
// handler fires it only once the transaction has committed; a notifier
// failure never affects the response.
type ChangeNotifier interface {
	Changed(event string, payload any)
}

// IdempotencyGuard de-duplicates guest submissions by request key.
// *shared.IdempotencyStore satisfies it.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	logger      *slog.Logger
	service     *Service
	validate    *validator.Validate
	idempotency IdempotencyGuard
	notifier    ChangeNotifier
}

func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyGuard, notifier ChangeNotifier) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		validate:    validator.New(),
		idempotency: idempotency,
		notifier:    notifier,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "orders"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate", "order already submitted")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		// Release the key so the client can retry the failed submission.
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		switch {
		case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrInvalidQuantity):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductInactive):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Product", err.Error())
		default:
			h.logger.Error("place order", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	if h.notifier != nil {
		h.notifier.Changed("order_placed", map[string]any{"order_id": order.ID})
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "order not found")
			return
		}
		h.logger.Error("get order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var req ListOrdersRequest
	if status := r.URL.Query().Get("status"); status != "" {
		s := OrderStatus(status)
		req.Status = &s
	}
	if table := r.URL.Query().Get("table_id"); table != "" {
		if id, err := strconv.ParseInt(table, 10, 64); err == nil {
			req.TableID = &id
		}
	}
	if from := r.URL.Query().Get("date_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			req.DateFrom = &t
		}
	}
	if to := r.URL.Query().Get("date_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			req.DateTo = &t
		}
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if req.Limit <= 0 {
		req.Limit = defaultListLimit
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	page := req.Offset/req.Limit + 1
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": shared.NewPagination(page, req.Limit, total),
	})
}
