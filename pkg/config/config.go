package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	Port string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration
	DBSlowThreshold time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	AdminEmail    string
	AdminPassword string

	RedisAddress  string
	RedisPassword string
	LockTTL       time.Duration

	LogLevel string

	SKUPrefix        string
	LedgerMaxRetries int
}

// Load reads .env (if present) and then the process environment.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		Port:             stringFromEnv("PORT", "3000"),
		DatabaseURL:      databaseURL(),
		DBMaxOpenConns:   intFromEnv("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:   intFromEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnLifetime:   time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 3600)) * time.Second,
		DBSlowThreshold:  time.Duration(intFromEnv("DB_SLOW_THRESHOLD_MS", 1000)) * time.Millisecond,
		JWTSecret:        stringFromEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTTTL:           time.Duration(intFromEnv("JWT_TTL_HOURS", 24)) * time.Hour,
		AdminEmail:       stringFromEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:    stringFromEnv("ADMIN_PASSWORD", "admin123"),
		RedisAddress:     strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		LockTTL:          time.Duration(intFromEnv("LOCK_TTL_SECONDS", 30)) * time.Second,
		LogLevel:         stringFromEnv("LOG_LEVEL", "info"),
		SKUPrefix:        stringFromEnv("SKU_PREFIX", "PROD"),
		LedgerMaxRetries: intFromEnv("LEDGER_MAX_RETRIES", 3),
	}
	return cfg, envLoaded
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* variables.
func databaseURL() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		stringFromEnv("DB_TIMEZONE", "UTC"),
	)
}

func stringFromEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
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
