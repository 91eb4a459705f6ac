package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hospitrack/backend/internal/adapters/cache"
	"github.com/hospitrack/backend/internal/adapters/dataset"
	"github.com/hospitrack/backend/internal/adapters/providers/geolocation"
	"github.com/hospitrack/backend/internal/api/handlers"
	"github.com/hospitrack/backend/internal/api/middleware"
	"github.com/hospitrack/backend/internal/api/routes"
	"github.com/hospitrack/backend/internal/application/services"
	"github.com/hospitrack/backend/internal/domain/entities"
	"github.com/hospitrack/backend/internal/domain/providers"
	"github.com/hospitrack/backend/internal/domain/repositories"
	"github.com/hospitrack/backend/internal/infrastructure/clients/postgres"
	"github.com/hospitrack/backend/internal/infrastructure/clients/redis"
	"github.com/hospitrack/backend/internal/infrastructure/observability"
	"github.com/hospitrack/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Dataset source
	source, closeSource, err := newFacilitySource(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dataset source")
	}
	defer closeSource()

	store := services.NewSnapshotStore(source, clockwork.NewRealClock(), cfg.Dataset.ReloadInterval, metrics)
	store.Start(ctx)

	// Cache: Redis when enabled, in-process LRU otherwise
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, "hospitrack:")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter(cfg.Geolocation.CacheSize, cfg.Geolocation.CacheTTL)
	}

	// Geocoder with result cache
	geocoder, err := geolocation.NewProvider(cfg.Geolocation)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize geolocation provider")
	}
	if geocoder != nil {
		geocoder = geolocation.NewCachedGeolocationProvider(geocoder, cacheProvider, cfg.Geolocation.CacheTTL, metrics)
	}

	resolver := services.NewLocationResolver(geocoder, services.LocationResolverConfig{
		Default: entities.Location{
			Latitude:  cfg.Geolocation.DefaultLat,
			Longitude: cfg.Geolocation.DefaultLon,
		},
		Attempts:      cfg.Geolocation.Retries,
		RetryDelay:    cfg.Geolocation.RetryDelay,
		Timeout:       cfg.Geolocation.Timeout,
		AllowedStates: cfg.Geolocation.AllowedStates,
	}, metrics)

	weights := entities.CompositeWeights(cfg.Ranking.Weights)
	ranker := services.NewRankingService(cfg.Ranking.FallbackLimit, weights)

	limits := handlers.DefaultHospitalLimits()
	limits.DefaultTopK = cfg.Ranking.DefaultTopK
	limits.MaxTopK = cfg.Ranking.MaxTopK
	limits.DefaultRadiusKm = cfg.Ranking.DefaultRadiusKm
	limits.MaxRadiusKm = cfg.Ranking.MaxRadiusKm

	router := routes.NewRouter(
		handlers.NewHospitalHandler(store, resolver, ranker, limits, metrics),
		handlers.NewGeolocationHandler(resolver),
		handlers.NewHealthHandler(store),
		middleware.NewCacheMiddleware(cacheProvider, store.Version, metrics),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("dataset", source.Name()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	cancel()
	store.Wait()
	log.Info().Msg("server stopped")
}

// newFacilitySource returns the configured dataset source and a cleanup func.
func newFacilitySource(ctx context.Context, cfg *config.Config) (repositories.FacilitySource, func(), error) {
	switch cfg.Dataset.Source {
	case "postgres":
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := pgClient.Close(); err != nil {
				log.Error().Err(err).Msg("error closing PostgreSQL client")
			}
		}
		return dataset.NewPostgresSource(pgClient.DB(), cfg.Database.Table), closeFn, nil
	default:
		return dataset.NewFileSource(cfg.Dataset.Path), func() {}, nil
	}
}
