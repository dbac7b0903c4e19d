package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"shophub/internal/middleware"
	"shophub/internal/model"
	"shophub/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFrom(r.Context())
	if !ok {
		writeError(w, r, model.NewDomainError(model.ErrCodeUnauthorised, "missing user identity"), h.logger)
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body"), h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), requester, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
	requester, ok := middleware.RequesterFrom(r.Context())
	if !ok {
		writeError(w, r, model.NewDomainError(model.ErrCodeUnauthorised, "missing user identity"), h.logger)
		return
	}

	view, err := h.service.GetOrder(r.Context(), requester, orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
	requester, ok := middleware.RequesterFrom(r.Context())
	if !ok {
		writeError(w, r, model.NewDomainError(model.ErrCodeUnauthorised, "missing user identity"), h.logger)
		return
	}

	result, err := h.service.CancelOrder(r.Context(), requester, orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFrom(r.Context())
	if !ok {
		writeError(w, r, model.NewDomainError(model.ErrCodeUnauthorised, "missing user identity"), h.logger)
		return
	}

	filter, err := parseOrderFilter(r)
	if err != nil {
		writeValidationError(w, r, err.Error(), h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), requester, filter)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// parseOrderFilter builds an order filter from query parameters. Every value
// is parsed strictly; a malformed parameter rejects the request.
func parseOrderFilter(r *http.Request) (model.OrderFilter, error) {
	var filter model.OrderFilter
	query := r.URL.Query()

	if v := query.Get("customerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, errInvalidParam("customerId")
		}
		filter.CustomerID = &id
	}

	if v := query.Get("status"); v != "" {
		status := model.OrderStatus(v)
		filter.Status = &status
	}

	if v := query.Get("minTotal"); v != "" {
		minTotal, err := strconv.ParseFloat(v, 64)
		if err != nil || minTotal < 0 {
			return filter, errInvalidParam("minTotal")
		}
		filter.MinTotal = &minTotal
	}

	if v := query.Get("maxTotal"); v != "" {
		maxTotal, err := strconv.ParseFloat(v, 64)
		if err != nil || maxTotal < 0 {
			return filter, errInvalidParam("maxTotal")
		}
		filter.MaxTotal = &maxTotal
	}

	if v := query.Get("dateFrom"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidParam("dateFrom")
		}
		filter.DateFrom = &from
	}

	if v := query.Get("dateTo"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidParam("dateTo")
		}
		filter.DateTo = &to
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errInvalidParam("limit")
		}
		filter.Limit = limit
	}

	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, errInvalidParam("offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}

type paramError string

func (e paramError) Error() string { return "invalid query parameter: " + string(e) }

func errInvalidParam(name string) error { return paramError(name) }
