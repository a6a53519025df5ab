package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	CORSOrigins      []string
	SubscriptionFee  int64
	SubscriptionTerm time.Duration
	InitBalance      int64
	WebhookHash      string
	SweepInterval    time.Duration
}

// Load reads configuration from the environment and performs minimal
// validation. DATABASE_URL may be empty, in which case the server runs on
// the in-memory store.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "scramble-backend"),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		WebhookHash: strings.TrimSpace(os.Getenv("FLW_WEBHOOK_HASH")),
	}

	cfg.JWTTTL = time.Duration(intEnv("JWT_TTL_MINUTES", 60)) * time.Minute
	cfg.SubscriptionFee = intEnv("SUBSCRIPTION_FEE", 1000)
	cfg.SubscriptionTerm = time.Duration(intEnv("SUBSCRIPTION_DAYS", 7)) * 24 * time.Hour
	cfg.InitBalance = intEnv("INIT_BALANCE", 0)
	cfg.SweepInterval = time.Duration(intEnv("SWEEP_INTERVAL_SECONDS", 30)) * time.Second

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func intEnv(key string, def int64) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64); err == nil && v > 0 {
		return v
	}
	return def
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
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
