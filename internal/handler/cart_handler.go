package handler

import (
	"net/http"

	"paloma-store/internal/cart"
	"paloma-store/internal/model"
	"paloma-store/internal/service"
	"paloma-store/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartHandler handles the session cart.
type CartHandler struct {
	sessions   *session.Manager
	products   service.ProductService
	reconciler *cart.Reconciler
	logger     zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(
	sessions *session.Manager,
	products service.ProductService,
	reconciler *cart.Reconciler,
	logger zerolog.Logger,
) *CartHandler {
	return &CartHandler{
		sessions:   sessions,
		products:   products,
		reconciler: reconciler,
		logger:     logger.With().Str("handler", "cart").Logger(),
	}
}

// cartResponse is the cart plus what the last reconcile dropped.
type cartResponse struct {
	model.CartView
	Removed int `json:"removed"`
}

// itemResponse is a single changed item with the resulting cart.
type itemResponse struct {
	Item model.CartItem `json:"item"`
	Cart model.CartView `json:"cart"`
}

// Get handles GET /api/cart. The cart is reconciled against the current
// products first; a failed reconcile still returns the stored cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}

	key, err := h.sessions.ID(w, r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	res, err := h.reconciler.Run(r.Context(), key, store)
	if err != nil {
		h.logger.Warn().Err(err).Msg("serving cart without reconcile")
	}

	writeJSON(w, http.StatusOK, cartResponse{CartView: store.View(), Removed: res.Removed}, h.logger)
}

// Add handles POST /api/cart/items.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req model.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}
	if req.ProductID == uuid.Nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "productId is required", h.logger)
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	item, err := store.Add(*product, req.SelectedSize, req.SelectedColor)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, itemResponse{Item: item, Cart: store.View()}, h.logger)
}

// Update handles PATCH /api/cart/items/{cartId}.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	item, err := store.Update(r.PathValue("cartId"), req.Field, req.Value)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Item: item, Cart: store.View()}, h.logger)
}

// Remove handles DELETE /api/cart/items/{cartId}.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := store.Remove(r.PathValue("cartId")); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, store.View(), h.logger)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := store.Clear(); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, store.View(), h.logger)
}

// open loads the cart of the request's session.
func (h *CartHandler) open(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := cart.Open(h.sessions.CartStorage(w, r), h.logger)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return nil, false
	}
	return store, true
}
