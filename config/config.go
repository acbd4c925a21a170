package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/steamsales/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Storefront endpoints
	SearchURL  string
	DetailsURL string
	AppURL     string
	Country    string
	Language   string

	// Pagination and throttling
	MaxPages       int
	BatchSize      int
	RequestDelay   time.Duration
	BatchPause     time.Duration
	HTTPTimeout    time.Duration
	RateLimitBlock time.Duration

	// Extraction
	CurrencyGlyph   string
	HighValueTitles []string

	// Memcache configuration, empty address disables caching
	MemcacheAddr    string
	DetailsCacheTTL time.Duration

	// Redis configuration, empty address disables publishing
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Output
	OutputDir    string
	Debug        bool
	DebugDumpDir string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		SearchURL:  getEnv("STORE_SEARCH_URL", "https://store.steampowered.com/search/"),
		DetailsURL: getEnv("STORE_DETAILS_URL", "https://store.steampowered.com/api/appdetails"),
		AppURL:     getEnv("STORE_APP_URL", "https://store.steampowered.com/app/"),
		Country:    getEnv("STORE_COUNTRY", "tr"),
		Language:   getEnv("STORE_LANGUAGE", "english"),

		MaxPages:       getInt("MAX_PAGES", 50),
		BatchSize:      getInt("BATCH_SIZE", 5),
		RequestDelay:   time.Duration(getInt("REQUEST_DELAY_MS", 1500)) * time.Millisecond,
		BatchPause:     time.Duration(getInt("BATCH_PAUSE_SECONDS", 15)) * time.Second,
		HTTPTimeout:    time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitBlock: time.Duration(getInt("RATE_LIMIT_BLOCK_SECONDS", 300)) * time.Second,

		CurrencyGlyph:   getEnv("CURRENCY_GLYPH", "₺"),
		HighValueTitles: splitList(getEnv("HIGH_VALUE_TITLES", "Kingdom Come: Deliverance II,Elden Ring,Baldur's Gate 3")),

		MemcacheAddr:    os.Getenv("MEMCACHE_ADDR"),
		DetailsCacheTTL: time.Duration(getInt("DETAILS_CACHE_TTL_SECONDS", 3600)) * time.Second,

		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "steam_sales"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),

		OutputDir:    getEnv("OUTPUT_DIR", "."),
		Debug:        getEnv("DEBUG_MODE", "false") == "true",
		DebugDumpDir: getEnv("DEBUG_DUMP_DIR", "."),

		Environment: getEnv("SALES_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	switch {
	case c.SearchURL == "":
		return apperrors.NewConfiguration("STORE_SEARCH_URL must not be empty", nil)
	case c.DetailsURL == "":
		return apperrors.NewConfiguration("STORE_DETAILS_URL must not be empty", nil)
	case c.MaxPages <= 0:
		return apperrors.NewConfiguration("MAX_PAGES must be positive", nil)
	case c.BatchSize <= 0:
		return apperrors.NewConfiguration("BATCH_SIZE must be positive", nil)
	case c.RequestDelay < 0 || c.BatchPause < 0:
		return apperrors.NewConfiguration("delays must not be negative", nil)
	case c.HTTPTimeout <= 0:
		return apperrors.NewConfiguration("HTTP_TIMEOUT_SECONDS must be positive", nil)
	case c.CurrencyGlyph == "":
		return apperrors.NewConfiguration("CURRENCY_GLYPH must not be empty", nil)
	case c.RedisAddr != "" && c.RedisStreamCount < 1:
		return apperrors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getInt retrieves an integer environment variable, falling back to the default when unset or malformed
func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
