package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env         string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Dataset     DatasetConfig
	Geolocation GeolocationConfig
	Ranking     RankingConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Table    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// DatasetConfig selects where the facility snapshot is loaded from
type DatasetConfig struct {
	Source         string // "file" or "postgres"
	Path           string // .csv or .parquet

	ReloadInterval time.Duration
}

// GeolocationConfig holds geolocation provider configuration
type GeolocationConfig struct {
	Provider      string
	APIKey        string
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	Retries       int
	RetryDelay    time.Duration
	DefaultLat    float64
	DefaultLon    float64
	AllowedStates []string
	CacheTTL      time.Duration
	CacheSize     int
}

// RankingConfig holds defaults for the ranking pipeline
type RankingConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	DefaultTopK     int
	MaxTopK         int
	FallbackLimit   int
	ProfilePath     string
	Weights         WeightsConfig
}

// WeightsConfig holds composite score weights
type WeightsConfig struct {
	Quality   float64 `yaml:"quality"`
	Wait      float64 `yaml:"wait"`
	Rating    float64 `yaml:"rating"`
	Mortality float64 `yaml:"mortality"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "hospitrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Table:    getEnv("DB_FACILITY_TABLE", "er_facilities"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Dataset: DatasetConfig{
			Source:         strings.ToLower(getEnv("DATASET_SOURCE", "file")),
			Path:           getEnv("DATASET_PATH", "data/us_er.csv"),
			ReloadInterval: getEnvAsDuration("DATASET_RELOAD_INTERVAL", 0),
		},
		Geolocation: GeolocationConfig{
			Provider:      strings.ToLower(getEnv("GEOLOCATION_PROVIDER", "nominatim")),
			APIKey:        getEnv("GEOLOCATION_API_KEY", ""),
			BaseURL:       getEnv("GEOLOCATION_BASE_URL", ""),
			UserAgent:     getEnv("GEOLOCATION_USER_AGENT", "HospiTrack/1.0"),
			Timeout:       getEnvAsDuration("GEOCODE_TIMEOUT", 15*time.Second),
			Retries:       getEnvAsInt("GEOCODE_RETRIES", 3),
			RetryDelay:    getEnvAsDuration("GEOCODE_RETRY_DELAY", 2*time.Second),
			DefaultLat:    getEnvAsFloat("DEFAULT_LAT", 41.8781),
			DefaultLon:    getEnvAsFloat("DEFAULT_LON", -87.6298),
			AllowedStates: getEnvAsList("GEOCODE_ALLOWED_STATES", nil),
			CacheTTL:      getEnvAsDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour),
			CacheSize:     getEnvAsInt("GEOCODE_CACHE_SIZE", 1000),
		},
		Ranking: RankingConfig{
			DefaultRadiusKm: getEnvAsFloat("RANKING_DEFAULT_RADIUS_KM", 200),
			MaxRadiusKm:     getEnvAsFloat("RANKING_MAX_RADIUS_KM", 10000),
			DefaultTopK:     getEnvAsInt("RANKING_DEFAULT_TOP_K", 50),
			MaxTopK:         getEnvAsInt("RANKING_MAX_TOP_K", 2000),
			FallbackLimit:   getEnvAsInt("RANKING_FALLBACK_LIMIT", 2000),
			ProfilePath:     getEnv("RANKING_PROFILE_PATH", ""),
			Weights: WeightsConfig{
				Quality:   getEnvAsFloat("RANKING_WEIGHT_QUALITY", 0.40),
				Wait:      getEnvAsFloat("RANKING_WEIGHT_WAIT", 0.25),
				Rating:    getEnvAsFloat("RANKING_WEIGHT_RATING", 0.20),
				Mortality: getEnvAsFloat("RANKING_WEIGHT_MORTALITY", 0.15),
			},
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "hospitrack"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Ranking.ProfilePath != "" {
		if err := ApplyRankingProfile(&cfg.Ranking, cfg.Ranking.ProfilePath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise surface as confusing runtime behaviour
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("invalid DATASET_SOURCE %q (must be file or postgres)", c.Dataset.Source)
	}
	if c.Dataset.Source == "file" && strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("DATASET_PATH is required when DATASET_SOURCE=file")
	}
	if c.Ranking.DefaultTopK < 1 || c.Ranking.MaxTopK < c.Ranking.DefaultTopK {
		return fmt.Errorf("invalid ranking top_k bounds: default=%d max=%d", c.Ranking.DefaultTopK, c.Ranking.MaxTopK)
	}
	if c.Ranking.DefaultRadiusKm <= 0 || c.Ranking.MaxRadiusKm < c.Ranking.DefaultRadiusKm {
		return fmt.Errorf("invalid ranking radius bounds: default=%g max=%g", c.Ranking.DefaultRadiusKm, c.Ranking.MaxRadiusKm)
	}
	if c.Ranking.FallbackLimit < 1 {
		return fmt.Errorf("RANKING_FALLBACK_LIMIT must be at least 1")
	}
	w := c.Ranking.Weights
	if w.Quality < 0 || w.Wait < 0 || w.Rating < 0 || w.Mortality < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	if c.Geolocation.Timeout <= 0 {
		return fmt.Errorf("GEOCODE_TIMEOUT must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
