package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/stockkeeper/platform/health/http"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// NewRouter создаёт и настраивает HTTP роутер Inventory Service
// checks - проверки готовности для /health, при провале любой из них health вернёт 503
func NewRouter(handler *Handler, checks []platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("inventory", logger))
	}

	router.Route("/api/inventory", func(r chi.Router) {
		r.Post("/", handler.CreateStock)
		r.Post("/batch", handler.GetBatch)
		r.Post("/reserve", handler.Reserve)
		r.Post("/release", handler.Release)
		r.Post("/stock-in", handler.StockIn)
		r.Post("/stock-out", handler.StockOut)
		r.Get("/low-stock", handler.GetLowStock)
		r.Get("/low-available", handler.GetLowAvailable)
		r.Get("/status/{productId}", handler.GetStatus)
		r.Get("/{productId}", handler.GetStock)
		r.Put("/{productId}/discontinued", handler.SetDiscontinued)
	})

	if handler.products != nil {
		router.Get("/api/products/{productId}", handler.GetProduct)
	}

	router.Get("/health", platformhealth.Handler(checks...))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return router
}
