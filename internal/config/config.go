package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	LogLevel      string
	Timezone      string
	Currency      string
	BatchLimit    int
	ReportTTL     time.Duration
	PrintSpoolDir string
	KafkaBrokers  []string
	KafkaTopic    string
	CORSOrigins   []string
}

// Load reads the environment, after an optional .env file in the working
// directory. An empty DATABASE_URL selects the in-memory store.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8081"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Timezone:      getEnv("TIMEZONE", "Asia/Jakarta"),
		Currency:      getEnv("CURRENCY_SYMBOL", "$"),
		PrintSpoolDir: os.Getenv("PRINT_SPOOL_DIR"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "order-status"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}

	limit, err := strconv.Atoi(getEnv("BATCH_CONCURRENCY", "8"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be a positive integer")
	}
	cfg.BatchLimit = limit

	ttl, err := time.ParseDuration(getEnv("REPORT_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("REPORT_CACHE_TTL: %w", err)
	}
	cfg.ReportTTL = ttl

	return cfg, nil
}

// Location resolves Timezone. Hosts without tzdata fall back to WIB (UTC+7)
// when the default zone is requested.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err == nil {
		return loc, nil
	}
	if c.Timezone == "Asia/Jakarta" {
		return time.FixedZone("WIB", 7*60*60), nil
	}
	return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
