package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/shopping/internal/view"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalog ProductSource
	logger  *zap.Logger
	timeout time.Duration
}

func NewProductHandler(catalog ProductSource, logger *zap.Logger, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
		timeout: timeout,
	}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog unavailable")
		return
	}

	respondJSON(w, http.StatusOK, view.ProductList(products))
}
