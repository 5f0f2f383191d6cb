package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/planora/core-service/internal/transport/middleware"
	"github.com/planora/core-service/internal/transport/swagger"
	"github.com/planora/core-service/internal/webhook"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes wires the internal API surface: the payment webhook,
// health probes, and the OpenAPI documentation routes.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, webhookHandler *webhook.Handler, handlerTimeout time.Duration, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/internal", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Group(func(wr chi.Router) {
				wr.Use(middleware.Timeout(handlerTimeout, logger))
				wr.Post("/payment-webhook", webhookHandler.HandlePaymentWebhook)
			})
		}
	})
}
