package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
)

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// VersionFunc returns a token that changes whenever cached responses must be
// discarded, such as the ID of the current dataset snapshot. An empty token
// disables caching for the request.
type VersionFunc func() string

// DefaultRouteConfigs lists the cacheable read endpoints
func DefaultRouteConfigs() map[string]CacheConfig {
	return map[string]CacheConfig{
		"/api/hospitals":    {TTLSeconds: 300, Enabled: true},  // 5 minutes
		"/api/states":       {TTLSeconds: 3600, Enabled: true}, // 1 hour
		"/api/complaints":   {TTLSeconds: 3600, Enabled: true},
		"/api/sort-options": {TTLSeconds: 3600, Enabled: true},
	}
}

// CacheMiddleware provides HTTP response caching
type CacheMiddleware struct {
	cache        providers.CacheProvider
	routeConfigs map[string]CacheConfig
	version      VersionFunc
	metrics      *observability.Metrics
}

// NewCacheMiddleware creates a new cache middleware
func NewCacheMiddleware(cache providers.CacheProvider, version VersionFunc, metrics *observability.Metrics) *CacheMiddleware {
	return CacheMiddlewareWithConfig(cache, DefaultRouteConfigs(), version, metrics)
}

// CacheMiddlewareWithConfig creates a cache middleware with custom route config
func CacheMiddlewareWithConfig(cache providers.CacheProvider, configs map[string]CacheConfig, version VersionFunc, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{
		cache:        cache,
		routeConfigs: configs,
		version:      version,
		metrics:      metrics,
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only cache GET requests
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		config, version, ok := m.routeVersion(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := observability.LoggerFromContext(ctx)
		cacheKey := m.generateCacheKey(r, version)

		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, "http")
			logger.Debug().Str("key", cacheKey).Msg("cache hit")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		observability.RecordCacheMiss(ctx, m.metrics, "http")
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(recorder, r)

		// Only cache successful responses the handler did not mark no-store
		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 && !noStore(w.Header()) {
			if err := m.cache.Set(ctx, cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
				logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache response")
			}
		}
	})
}

// generateCacheKey builds the storage key for a request
func (m *CacheMiddleware) generateCacheKey(r *http.Request, version string) string {
	return "http:cache:" + r.Method + ":" + fingerprint(r, version)
}

// fingerprint hashes path, normalized query and version. It identifies a
// response body for both the response cache and ETags.
func fingerprint(r *http.Request, version string) string {
	// Encode sorts the query by key
	key := fmt.Sprintf("%s?%s#%s", r.URL.Path, normalizeQuery(r.URL.Query()), version)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// routeVersion returns the route config and version token for r. ok is false
// when the route is not cached or no version is available yet.
func (m *CacheMiddleware) routeVersion(r *http.Request) (CacheConfig, string, bool) {
	config, ok := m.routeConfigs[r.URL.Path]
	if !ok || !config.Enabled {
		return config, "", false
	}
	if m.version == nil {
		return config, "static", true
	}
	version := m.version()
	return config, version, version != ""
}

func noStore(h http.Header) bool {
	return strings.Contains(h.Get("Cache-Control"), "no-store")
}

func normalizeQuery(q url.Values) string {
	for k, v := range q {
		if len(v) == 0 || (len(v) == 1 && v[0] == "") {
			delete(q, k)
		}
	}
	return q.Encode()
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
