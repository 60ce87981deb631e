package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/otzivi/authcore/internal/handlers"
	"github.com/otzivi/authcore/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	challengeHandler *handlers.ChallengeHandler,
	eventsHandler *handlers.EventsHandler,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Sign-in flow
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/challenge", authHandler.Challenge)
	router.Post("/auth/logout", authHandler.Logout)

	// Security question management
	router.Route("/accounts/{id}", func(r chi.Router) {
		r.Put("/challenge", challengeHandler.Set)
		r.Get("/challenge", challengeHandler.Status)
		r.Post("/challenge/gating", challengeHandler.SetGating)
		r.Get("/events", eventsHandler.ListByAccount)
	})

	// Ledger-wide view
	router.Get("/events", eventsHandler.ListAll)
}
