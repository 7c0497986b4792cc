// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	FrontendDistPath string
	CORSOrigins      []string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	CardAPIBaseURL  string
	CardAPIKey      string
	CardAPIPageSize int
	CardAPIDelay    time.Duration

	DataDir             string
	PriceWindow         int
	ListingTTL          time.Duration
	CatalogSyncInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:             getString("PORT", "8080"),
		FrontendDistPath: os.Getenv("FRONTEND_DIST_PATH"),
		CORSOrigins:      getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		DBDriver:    strings.ToLower(getString("DB_DRIVER", "sqlite")),
		DBPath:      getString("DB_PATH", "./card_nexus.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: getString("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer: getString("JWT_ISSUER", "card-nexus"),
		JWTTTL:    time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,

		CardAPIBaseURL:  getString("CARD_API_BASE_URL", "https://api.pokemontcg.io/v2"),
		CardAPIKey:      os.Getenv("CARD_API_KEY"),
		CardAPIPageSize: getInt("CARD_API_PAGE_SIZE", 250),
		CardAPIDelay:    time.Duration(getInt("CARD_API_DELAY_MS", 1200)) * time.Millisecond,

		DataDir:             getString("DATA_DIR", "./data"),
		PriceWindow:         getInt("PRICE_WINDOW", 30),
		ListingTTL:          time.Duration(getInt("LISTING_TTL_DAYS", 30)) * 24 * time.Hour,
		CatalogSyncInterval: time.Duration(getInt("CATALOG_SYNC_INTERVAL_HOURS", 0)) * time.Hour,

		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "console"),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getInt falls back to def when the variable is unset or not a number.
func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
