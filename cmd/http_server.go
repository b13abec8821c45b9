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

	"github.com/frahmantamala/linkup-hub/internal/auth"
	"github.com/frahmantamala/linkup-hub/internal/event"
	"github.com/frahmantamala/linkup-hub/internal/payment"
	"github.com/frahmantamala/linkup-hub/internal/profile"
	"github.com/frahmantamala/linkup-hub/internal/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/transport"
	"github.com/frahmantamala/linkup-hub/internal/transport/middleware"
	"github.com/frahmantamala/linkup-hub/internal/transport/rest"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	router := chi.NewRouter()
	setupRoutes(router, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	if deps.Config.Sweeper.Embedded {
		sched, err := deps.Scheduler()
		if err != nil {
			log.Error("failed to build scheduler", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("embedded scheduler stopped", "error", err)
			}
		}()
		log.Info("embedded payment sweeper started", "interval", deps.Config.Sweeper.Interval)
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Received signal, shutting down...")
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			_ = deps.Close(context.Background())
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	if err := deps.Close(shutdownCtx); err != nil {
		log.Error("Dependency close error", "error", err)
	}

	log.Info("Server stopped")
}

func setupRoutes(router *chi.Mux, deps *Dependencies) {
	log := deps.Logger
	base := transport.NewBaseHandler(log)

	var redisPinger rest.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}

	handlers := rest.Handlers{
		Auth:    auth.NewHandler(base, deps.AuthService, deps.Config.Security.CookieSecure),
		Roles:   auth.NewRoleAuthorization(base, log),
		Profile: profile.NewHandler(base, deps.ProfileService, log),
		Event:   event.NewHandler(base, deps.EventService, log),
		RSVP:    rsvp.NewHandler(base, deps.RSVPService, log),
		Payment: payment.NewHandler(base, deps.PaymentService, log),
		Webhook: payment.NewWebhookHandler(base, deps.Reconciler, deps.PaymentMetrics, log),
		Health:  rest.NewHealthHandler(deps.DB.DB, redisPinger),
	}

	opts := rest.RouterOptions{
		Logger:         log,
		AllowedOrigins: deps.Config.Server.Origins(),
	}
	if deps.Config.Observability.Metrics.Enabled {
		opts.HTTPMetrics = middleware.NewHTTPMetrics(deps.Registry)
		opts.MetricsPath = deps.Config.Observability.Metrics.Path
		opts.MetricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	rest.RegisterAllRoutes(router, handlers, opts)
}
