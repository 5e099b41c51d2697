package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/credit-payments/internal/auth"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/credit"
	"github.com/frahmantamala/credit-payments/internal/payment"
	paymentpg "github.com/frahmantamala/credit-payments/internal/payment/postgres"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/internal/transport/rest"
	"github.com/frahmantamala/credit-payments/internal/transport/swagger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	router := chi.NewRouter()
	setupRoutes(ctx, router, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Close(shutdownCtx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
		deps.Close(context.Background())
	}

	deps.Logger.Info("server stopped")
	return serveErr
}

func setupRoutes(ctx context.Context, router chi.Router, deps *Dependencies) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	checkout := payment.NewCheckoutService(deps.Catalog, deps.Gateway, deps.Orders, deps.Bus, deps.Logger)
	verification := payment.NewVerificationService(cfg.Payment.KeySecret, deps.Gateway, deps.Orders, deps.Completer, deps.Bus, deps.Logger)
	webhooks := payment.NewWebhookProcessor(deps.Orders, deps.Completer, paymentpg.NewWebhookEventRepository(deps.DB), deps.Bus, deps.Logger)

	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.AccessTokenDuration)

	var extra map[string]rest.Pinger
	if deps.Redis != nil {
		extra = map[string]rest.Pinger{
			"redis": rest.PingerFunc(func(ctx context.Context) error {
				return deps.Redis.Ping(ctx).Err()
			}),
		}
	}

	openAPIPath := cfg.Server.OpenAPIPath
	if openAPIPath != "" {
		if _, err := swagger.LoadSpec(ctx, openAPIPath); err != nil {
			deps.Logger.Warn("api docs disabled", "error", err)
			openAPIPath = ""
		}
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
	}

	rest.RegisterAllRoutes(router, rest.Routes{
		Health:         rest.NewHealthHandler(deps.SQL, extra),
		Auth:           auth.NewHandler(base, tokens),
		Catalog:        catalog.NewHandler(base, deps.Catalog),
		Payment:        payment.NewHandler(base, checkout, verification),
		Webhook:        payment.NewWebhookHandler(base, webhooks, cfg.Payment.WebhookSecret),
		Credit:         credit.NewHandler(base, deps.Credits),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    openAPIPath,
		MetricsPath:    metricsPath,
	}, deps.Logger)
}
