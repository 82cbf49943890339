package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HealthFunc reports whether the storage backend is reachable.
type HealthFunc func(ctx context.Context) error

type RouterConfig struct {
	Carts          *CartHandler
	Products       *ProductHandler
	Health         HealthFunc
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", cfg.Products.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Use(SessionMiddleware)
			r.Get("/", cfg.Carts.GetCart)
			r.Post("/items", cfg.Carts.AddItem)
			r.Put("/items/{product_id}", cfg.Carts.UpdateQuantity)
			r.Delete("/items/{product_id}", cfg.Carts.RemoveItem)
			r.Delete("/notification", cfg.Carts.DismissNotification)
		})
	})

	return otelhttp.NewHandler(r, "shopping")
}
