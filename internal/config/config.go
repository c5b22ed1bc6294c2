package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Env  string
	Port string

	// Database settings
	DBDriver    string // postgres | sqlite
	DatabaseURL string
	SQLitePath  string

	// Auth settings
	JWTSecret string
	JWTTTL    time.Duration

	// Access gate
	BrowsingFeeCents int

	// Scheduling
	CourtTimezone     string
	EnforceCourtHours bool
	CourtOpensHour    int
	CourtClosesHour   int

	// Directory cache
	DirectoryCacheTTL time.Duration

	// Login/signup rate limit
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Evidence storage
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "3000"),
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/jis.db"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CourtTimezone:  getEnv("COURT_TIMEZONE", "UTC"),
		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "evidence"),
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	if cfg.BrowsingFeeCents, err = strconv.Atoi(getEnv("BROWSING_FEE_CENTS", "1000")); err != nil {
		return nil, fmt.Errorf("invalid BROWSING_FEE_CENTS: %w", err)
	}
	if cfg.BrowsingFeeCents <= 0 {
		return nil, fmt.Errorf("invalid BROWSING_FEE_CENTS: must be positive")
	}

	cfg.EnforceCourtHours = getEnv("ENFORCE_COURT_HOURS", "true") == "true"

	if cfg.CourtOpensHour, err = strconv.Atoi(getEnv("COURT_OPENS_HOUR", "8")); err != nil {
		return nil, fmt.Errorf("invalid COURT_OPENS_HOUR: %w", err)
	}
	if cfg.CourtClosesHour, err = strconv.Atoi(getEnv("COURT_CLOSES_HOUR", "17")); err != nil {
		return nil, fmt.Errorf("invalid COURT_CLOSES_HOUR: %w", err)
	}
	if cfg.CourtOpensHour < 0 || cfg.CourtClosesHour > 24 || cfg.CourtOpensHour >= cfg.CourtClosesHour {
		return nil, fmt.Errorf("invalid court hours: %d-%d", cfg.CourtOpensHour, cfg.CourtClosesHour)
	}

	if cfg.DirectoryCacheTTL, err = time.ParseDuration(getEnv("DIRECTORY_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid DIRECTORY_CACHE_TTL: %w", err)
	}

	if cfg.RateLimitMax, err = strconv.Atoi(getEnv("RATE_LIMIT_MAX", "20")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %w", err)
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q (use postgres or sqlite)", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}

	return cfg, nil
}

// CourtLocation resolves the configured court timezone.
func (c *Config) CourtLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CourtTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid COURT_TIMEZONE %q: %w", c.CourtTimezone, err)
	}
	return loc, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
