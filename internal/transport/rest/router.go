package rest

import (
	"log/slog"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/frahmantamala/credit-payments/internal/auth"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/credit"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/payment"
	"github.com/frahmantamala/credit-payments/internal/transport/middleware"
	"github.com/frahmantamala/credit-payments/internal/transport/swagger"
)

// Routes collects everything the router mounts. Nil handlers leave their routes unregistered.
type Routes struct {
	Health         *HealthHandler
	Auth           *auth.Handler
	Catalog        *catalog.Handler
	Payment        *payment.Handler
	Webhook        *payment.WebhookHandler
	Credit         *credit.Handler
	AllowedOrigins string
	OpenAPIPath    string
	MetricsPath    string
}

func RegisterAllRoutes(router chi.Router, routes Routes, logger *slog.Logger) {
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(routes.AllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
	}))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(observability.MetricsMiddleware)

	if routes.MetricsPath != "" {
		router.Handle(routes.MetricsPath, observability.PrometheusHandler())
	}

	if routes.OpenAPIPath != "" {
		router.Get(swagger.SpecURL, swagger.SpecHandler(routes.OpenAPIPath))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.Health)
			r.Get("/ping", routes.Health.Ping)
		}

		if routes.Catalog != nil {
			r.Get("/catalog", routes.Catalog.ListPackages)
		}

		// authenticated by the gateway signature, not a bearer token
		if routes.Webhook != nil {
			r.Post("/payments/webhook", routes.Webhook.HandleWebhook)
		}

		if routes.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)

			if routes.Payment != nil {
				pr.Post("/orders", routes.Payment.CreateOrder)
				pr.Post("/payments/verify", routes.Payment.VerifyPayment)
			}

			if routes.Credit != nil {
				pr.Route("/credits", func(cr chi.Router) {
					cr.Get("/", routes.Credit.GetBalance)
					cr.Post("/consume", routes.Credit.ConsumeCredits)
				})
			}
		})
	})
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
