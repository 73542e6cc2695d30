package handler

import (
	"net/http"

	"paloma-store/internal/address"
	"paloma-store/internal/cart"
	"paloma-store/internal/model"
	"paloma-store/internal/service"
	"paloma-store/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles checkout and order-related HTTP requests.
type OrderHandler struct {
	service  service.OrderService
	resolver *address.Resolver
	sessions *session.Manager
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(
	service service.OrderService,
	resolver *address.Resolver,
	sessions *session.Manager,
	logger zerolog.Logger,
) *OrderHandler {
	return &OrderHandler{
		service:  service,
		resolver: resolver,
		sessions: sessions,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// LookupPostalCode handles GET /api/checkout/postal-codes/{cep}. The answer
// carries the filled address, which fields are now read-only and the
// shipping estimate.
func (h *OrderHandler) LookupPostalCode(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.resolver.Resolve(r.Context(), r.PathValue("cep"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resolved, h.logger)
}

// Create handles POST /api/checkout/orders. The order is placed for the
// session cart, which is emptied on success.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, ok := session.FromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthorised, h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}

	store, err := cart.Open(h.sessions.CartStorage(w, r), h.logger)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), who, store, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order, h.logger)
}

// List handles GET /api/orders and GET /api/admin/orders. Admins may narrow
// by status and userId; customers always see only their own orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	who, ok := session.FromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthorised, h.logger)
		return
	}

	limit, offset, ok := paging(w, r, h.logger)
	if !ok {
		return
	}
	filter := model.OrderFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.OrderStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid userId parameter", h.logger)
			return
		}
		filter.UserID = &userID
	}

	orders, err := h.service.List(r.Context(), who, filter)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders, h.logger)
}

// GetByID handles GET /api/orders/{id} and GET /api/admin/orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	who, ok := session.FromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthorised, h.logger)
		return
	}

	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), who, orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}
