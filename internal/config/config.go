package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session storage backends.
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	CORSOrigins []string

	SessionSecret     string
	SessionIssuer     string
	SessionTTL        time.Duration
	SessionCookieName string
	CookieSecure      bool
	SessionBackend    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	PasswordMinLength int
	Argon2MemoryKiB   uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:    fallback(os.Getenv("LOG_LEVEL"), "info"),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),

		SessionSecret:     strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SessionIssuer:     fallback(os.Getenv("SESSION_ISSUER"), "gesturelab"),
		SessionTTL:        time.Duration(positiveInt(os.Getenv("SESSION_TTL_MINUTES"), 24*60)) * time.Minute,
		SessionCookieName: fallback(os.Getenv("SESSION_COOKIE_NAME"), "gesturelab_session"),
		CookieSecure:      parseBool(os.Getenv("COOKIE_SECURE"), false),
		SessionBackend:    strings.ToLower(fallback(os.Getenv("SESSION_BACKEND"), SessionBackendPostgres)),

		RedisAddr:     fallback(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       nonNegativeInt(os.Getenv("REDIS_DB"), 0),

		AdminUsername: fallback(os.Getenv("ADMIN_USERNAME"), "admin"),
		AdminEmail:    fallback(os.Getenv("ADMIN_EMAIL"), "admin@gesturelab.local"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		PasswordMinLength: positiveInt(os.Getenv("PASSWORD_MIN_LENGTH"), 6),
		Argon2MemoryKiB:   uint32(boundedInt(os.Getenv("ARGON2_MEMORY_KIB"), 64*1024, 8*1024, 1024*1024)), // #nosec G115 -- bounded.
		Argon2Iterations:  uint32(boundedInt(os.Getenv("ARGON2_ITERATIONS"), 3, 1, 20)),                   // #nosec G115 -- bounded.
		Argon2Parallelism: uint8(boundedInt(os.Getenv("ARGON2_PARALLELISM"), 2, 1, 64)),                   // #nosec G115 -- bounded.
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return Config{}, errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	switch cfg.SessionBackend {
	case SessionBackendPostgres, SessionBackendRedis:
	default:
		return Config{}, fmt.Errorf("SESSION_BACKEND %q is not supported", cfg.SessionBackend)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func nonNegativeInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func boundedInt(value string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < lo || n > hi {
		return def
	}
	return n
}

func parseBool(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
