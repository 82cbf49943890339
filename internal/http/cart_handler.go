package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/shopping/internal/cart"
	"github.com/fjod/go_cart/shopping/internal/catalog"
	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/fjod/go_cart/shopping/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductSource interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (domain.Product, error)
}

type CartHandler struct {
	carts   *cart.Registry
	catalog ProductSource
	logger  *zap.Logger
	timeout time.Duration
}

func NewCartHandler(carts *cart.Registry, catalog ProductSource, logger *zap.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, view.Cart(store.Snapshot()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.catalog.Product(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.Error("catalog lookup failed", zap.Int64("product_id", req.ProductID), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog unavailable")
		return
	}
	// only the add control is gated on stock; the store itself does not check
	if !product.Purchasable() {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}

	n := store.AddToCart(ctx, product.ID, product.Name, product.Price)
	respondCart(w, statusFor(n, http.StatusCreated), store)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w)
	if !ok {
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must contain a numeric quantity")
		return
	}

	n := store.UpdateCartItem(ctx, productID, *req.Quantity)
	respondCart(w, statusFor(n, http.StatusOK), store)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w)
	if !ok {
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	n := store.DeleteCartItem(ctx, productID)
	respondCart(w, statusFor(n, http.StatusOK), store)
}

// DismissNotification hides the status banner.
func (h *CartHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w)
	if !ok {
		return
	}

	store.DismissNotification()
	respondJSON(w, http.StatusOK, view.Cart(store.Snapshot()))
}

func (h *CartHandler) store(ctx context.Context, w http.ResponseWriter) (*cart.Store, bool) {
	sessionID := getSessionID(ctx)
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return nil, false
	}
	return h.carts.Get(ctx, sessionID), true
}

// statusFor maps a storage failure to 503. The body still carries the cart and
// its danger banner.
func statusFor(n domain.Notification, ok int) int {
	if cart.Failed(n) {
		return http.StatusServiceUnavailable
	}
	return ok
}

func respondCart(w http.ResponseWriter, status int, store *cart.Store) {
	respondJSON(w, status, view.Cart(store.Snapshot()))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
