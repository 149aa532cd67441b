package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/mindspero/mindspero/internal/api/docs"
	"github.com/mindspero/mindspero/internal/api/handlers"
	"github.com/mindspero/mindspero/internal/api/middleware"
	"github.com/mindspero/mindspero/internal/config"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/metrics"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Document     *handlers.DocumentHandler
	Subscription *handlers.SubscriptionHandler
	Billing      *handlers.BillingHandler
	Admin        *handlers.AdminHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL, cfg.IsProduction()))
	r.Use(chimiddleware.CleanPath)

	// Operational endpoints sit outside the rate limiter
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/refresh", h.Auth.RefreshToken)
			r.Post("/auth/logout", h.Auth.Logout)
			r.Post("/billing/webhook", h.Billing.Webhook)
		})

		r.With(middleware.OptionalAuth(cfg.Auth.JWTSecret)).Get("/billing/plans", h.Billing.Plans)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
			r.Use(middleware.UserRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

			r.Get("/auth/me", h.Auth.Me)
			r.Patch("/auth/me", h.Auth.UpdateProfile)
			r.Delete("/auth/me", h.Auth.DeleteAccount)

			// Documents
			r.Route("/documents", func(r chi.Router) {
				r.Get("/", h.Document.List)
				r.Post("/", h.Document.Upload)
				r.Get("/{id}", h.Document.Get)
				r.Delete("/{id}", h.Document.Delete)
				r.Post("/{id}/retry", h.Document.Retry)
				r.Get("/{id}/summary", h.Document.Summary)
				r.Get("/{id}/audio", h.Document.Audio)
				r.Post("/{id}/audio", h.Document.GenerateAudio)
				r.Get("/{id}/entitlements", h.Document.Entitlements)
			})

			// Subscription
			r.Route("/subscription", func(r chi.Router) {
				r.Get("/", h.Subscription.Get)
				r.Post("/trial", h.Subscription.StartTrial)
				r.Post("/cancel", h.Subscription.Cancel)
			})

			// Admin dashboard
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/stats/users", h.Admin.UserStats)
				r.Get("/stats/revenue", h.Admin.Revenue)
				r.Get("/stats/revenue/monthly", h.Admin.MonthlyRevenue)
				r.Get("/stats/growth", h.Admin.Growth)
				r.Get("/users", h.Admin.Users)
				r.Get("/payments", h.Admin.Payments)
				r.Route("/users/{id}", func(r chi.Router) {
					r.Delete("/", h.Admin.DeleteUser)
					r.Get("/payments", h.Admin.UserPayments)
					r.Post("/subscription/activate", h.Admin.ActivateSubscription)
					r.Post("/subscription/deactivate", h.Admin.DeactivateSubscription)
					r.Post("/subscription/bonus", h.Admin.GrantBonus)
				})
			})
		})
	})

	return r
}
