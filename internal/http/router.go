package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/roamstack/trip-bookings/internal/observability"
	"github.com/roamstack/trip-bookings/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *ratelimit.RateLimiter, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(JWTMiddleware(jwtSecret))
	r.Use(RateLimitMiddleware(rl))

	r.Get("/v1/trips", h.ListTrips)
	r.Get("/v1/trips/{id}", h.GetTrip)
	r.Get("/v1/trips/{id}/reviews", h.ListReviews)

	r.Group(func(r chi.Router) {
		r.Use(IdempotencyKeyMiddleware)
		r.Post("/v1/bookings", h.CreateBooking)
		r.Post("/v1/checkout", h.CreateCheckout)
	})

	r.Get("/v1/bookings/{id}", h.GetBooking)
	r.Get("/v1/tickets/{ticketID}", h.GetTicket)
	r.Post("/v1/payments/callback", h.PaymentCallback)

	r.Post("/v1/trips/{id}/reviews", h.CreateReview)
	r.Put("/v1/reviews/{id}", h.UpdateReview)
	r.Delete("/v1/reviews/{id}", h.DeleteReview)
	r.Post("/v1/complaints", h.CreateComplaint)

	r.Get("/v1/support/chat", h.GetChat)
	r.Post("/v1/support/chat/messages", h.SendMessage)
	r.Post("/v1/support/chat/{id}/close", h.CloseChat)
	r.Get("/v1/support/chat/ws", h.ChatWS)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
