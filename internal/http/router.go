package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rdanilin/cinebook/internal/observability"
	"github.com/rdanilin/cinebook/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	// Webhooks authenticate by signature, not session token.
	r.Post("/api/stripe", h.StripeWebhook)
	r.Post("/api/identity", h.IdentityWebhook)

	// Public catalog surface.
	r.Get("/api/show/all", h.AllShows)
	r.Get("/api/show/{showId}", h.GetShow)
	r.Get("/api/booking/seats/{showId}", h.OccupiedSeats)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.cfg.JWTPublicKey))
		r.Use(RateLimitMiddleware(rl))

		r.Post("/api/booking/create", h.CreateBooking)
		r.Get("/api/user/bookings", h.UserBookings)
		r.Get("/api/user/update-favorite", h.UpdateFavourite)
		r.Get("/api/user/favorites", h.Favourites)

		r.Group(func(r chi.Router) {
			r.Use(h.AdminOnly)
			r.Post("/api/show/add", h.AddShow)
			r.Get("/api/admin/dashboard", h.AdminDashboard)
			r.Get("/api/admin/bookings", h.AdminBookings)
			r.Get("/api/admin/shows", h.AdminShows)
		})
	})

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
