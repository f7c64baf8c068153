// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default filter configuration, matching the production deployment. All of
// it can be overridden through the environment.
var (
	defaultIncludeKeywords = []string{"인테리어", "실내건축", "리모델링", "환경개선", "의장"}
	defaultExcludeKeywords = []string{"폐기물", "용역", "전기", "통신", "소방", "구매"}
)

const (
	defaultPort         = "8080"
	defaultMinPrice     = 20_000_000
	defaultPollInterval = time.Hour
)

// Config holds all runtime configuration for the bidwatch service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Fetch source. An empty NaraAPIKey selects the static sample batch.
	NaraAPIURL string
	NaraAPIKey string

	// Eligibility filter.
	IncludeKeywords []string
	ExcludeKeywords []string
	MinimumPrice    int64

	PollInterval time.Duration
}

// Load reads environment variables (after merging an optional .env file)
// and returns a validated Config.
func Load() (*Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("BIDWATCH_PORT")
	if port == "" {
		port = defaultPort
	}

	minPrice := int64(defaultMinPrice)
	if s := os.Getenv("MIN_PRICE"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("MIN_PRICE must be a non-negative integer, got %q", s)
		}
		minPrice = v
	}

	interval := defaultPollInterval
	if s := os.Getenv("COLLECT_INTERVAL"); s != "" {
		v, err := time.ParseDuration(s)
		if err != nil || v < time.Minute {
			return nil, fmt.Errorf("COLLECT_INTERVAL must be a duration of at least 1m, got %q", s)
		}
		interval = v
	}

	return &Config{
		Port:            port,
		DatabaseURL:     dbURL,
		RedisURL:        redisURL,
		NaraAPIURL:      os.Getenv("NARA_API_URL"),
		NaraAPIKey:      os.Getenv("NARA_API_KEY"),
		IncludeKeywords: keywordList("INCLUDE_KEYWORDS", defaultIncludeKeywords),
		ExcludeKeywords: keywordList("EXCLUDE_KEYWORDS", defaultExcludeKeywords),
		MinimumPrice:    minPrice,
		PollInterval:    interval,
	}, nil
}

// keywordList parses a comma-separated env var, falling back to defaults
// when unset. Blank entries are dropped.
func keywordList(key string, defaults []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaults
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
