package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal/auth"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	"github.com/frahmantamala/linkup-hub/internal/event"
	"github.com/frahmantamala/linkup-hub/internal/payment"
	profilehttp "github.com/frahmantamala/linkup-hub/internal/profile"
	"github.com/frahmantamala/linkup-hub/internal/rsvp"
	"github.com/frahmantamala/linkup-hub/internal/transport/middleware"
	"github.com/frahmantamala/linkup-hub/internal/transport/swagger"
	"github.com/go-chi/chi"
)

// Handlers groups every HTTP handler the API mounts. A nil handler leaves its
// routes unmounted.
type Handlers struct {
	Auth    *auth.Handler
	Roles   *auth.RoleAuthorization
	Profile *profilehttp.Handler
	Event   *event.Handler
	RSVP    *rsvp.Handler
	Payment *payment.Handler
	Webhook *payment.WebhookHandler
	Health  *HealthHandler
}

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsPath    string
	MetricsHandler http.Handler
	SpecPath       string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions) {
	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	if opts.HTTPMetrics != nil {
		router.Use(opts.HTTPMetrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware(opts.Logger))

	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, opts.MetricsHandler)
	}

	// Serve OpenAPI spec at root (outside API prefix)
	specPath := opts.SpecPath
	if specPath == "" {
		specPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, specPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		// provider callback, unauthenticated
		if h.Webhook != nil {
			r.Post("/payments/callback", h.Webhook.HandleCallback)
		}

		if h.Event != nil {
			r.Get("/events", h.Event.List)
			r.Get("/events/{id}", h.Event.Get)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/signup", h.Auth.Signup)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/logout", h.Auth.Logout)
			sr.With(h.Auth.Protect).Get("/me", h.Auth.Me)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Protect)

			if h.Profile != nil {
				pr.Get("/profiles/me", h.Profile.GetMe)
				pr.Put("/profiles/me", h.Profile.UpdateMe)
			}

			if h.Payment != nil {
				pr.Post("/payments/initiate", h.Payment.InitiatePayment)
				pr.Get("/payments", h.Payment.ListPayments)
				pr.Get("/payments/{id}", h.Payment.GetPayment)
			}

			if h.RSVP != nil {
				pr.Post("/events/{id}/rsvp", h.RSVP.RSVP)
				pr.Get("/rsvps/me", h.RSVP.ListMine)
			}

			if h.Roles == nil {
				return
			}

			// Admin routes
			pr.Group(func(ar chi.Router) {
				ar.Use(h.Roles.RequireRole(profile.RoleAdmin, profile.RoleSuperAdmin))

				if h.Event != nil {
					ar.Post("/events", h.Event.Create)
					ar.Put("/events/{id}", h.Event.Update)
					ar.Delete("/events/{id}", h.Event.Delete)
				}
				if h.RSVP != nil {
					ar.Post("/rsvps/verify", h.RSVP.Verify)
				}
			})
		})
	})
}
