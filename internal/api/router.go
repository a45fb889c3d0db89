// Package api builds the HTTP surface over the automation engine.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/jobswipe/engine/internal/api/middleware"
	"github.com/jobswipe/engine/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler    http.HandlerFunc
	SubmitHandler    http.HandlerFunc
	StatusHandler    http.HandlerFunc
	CancelHandler    http.HandlerFunc
	ListHandler      http.HandlerFunc
	StatsHandler     http.HandlerFunc
	PlatformsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/platforms", orNotImplemented(deps.PlatformsHandler))

	// Identified routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Identity)
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/requests", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/requests", orNotImplemented(deps.ListHandler))
		r.Get("/api/v1/requests/{requestID}", orNotImplemented(deps.StatusHandler))
		r.Delete("/api/v1/requests/{requestID}", orNotImplemented(deps.CancelHandler))

		r.Get("/api/v1/stats", orNotImplemented(deps.StatsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
