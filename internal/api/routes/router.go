package routes

import (
	"net/http"

	"github.com/hospitrack/backend/internal/api/handlers"
	"github.com/hospitrack/backend/internal/api/middleware"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	hospitalHandler    *handlers.HospitalHandler
	geolocationHandler *handlers.GeolocationHandler
	healthHandler      *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware may be nil.
func NewRouter(
	hospitalHandler *handlers.HospitalHandler,
	geolocationHandler *handlers.GeolocationHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		hospitalHandler:    hospitalHandler,
		geolocationHandler: geolocationHandler,
		healthHandler:      healthHandler,
		cacheMiddleware:    cacheMiddleware,
		allowedOrigins:     allowedOrigins,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Live)
	r.mux.HandleFunc("GET /healthz", r.healthHandler.Ready)

	// Ranking endpoints
	r.mux.HandleFunc("GET /api/hospitals", r.hospitalHandler.ListHospitals)
	r.mux.HandleFunc("GET /api/states", r.hospitalHandler.ListStates)
	r.mux.HandleFunc("GET /api/complaints", r.hospitalHandler.ListComplaints)
	r.mux.HandleFunc("GET /api/sort-options", r.hospitalHandler.ListSortOptions)

	// Geolocation endpoints
	r.mux.HandleFunc("GET /api/geocode", r.geolocationHandler.Geocode)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux

	// Response cache and HTTP cache headers share the snapshot fingerprint
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
		handler = r.cacheMiddleware.ResponseOptimization(handler)
	} else {
		handler = middleware.Compression(handler)
	}

	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
