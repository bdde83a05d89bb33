// Package config builds the process configuration once, at startup. Business
// logic never reads the environment; it receives this struct by injection.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config carries everything cmd/api needs to wire the service together.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string
	// DSN is the PostgreSQL connection string. Empty means the in-memory
	// backends are used (local development only).
	DSN string
	// BaseURL is the externally visible URL of this registry, used in
	// /config.json so clients know where to download from.
	BaseURL string
	// SessionSecret signs the session credential for the token endpoints.
	SessionSecret string

	RateBurst       int
	RatePerSec      int
	MaxPublishBytes int64
}

const envPrefix = "CRATEVAULT_"

// Load reads CRATEVAULT_* environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:            getenv("ADDR", ":8080"),
		DSN:             getenv("PG_DSN", ""),
		BaseURL:         strings.TrimSuffix(getenv("BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret:   getenv("SESSION_SECRET", ""),
		RateBurst:       20,
		RatePerSec:      10,
		MaxPublishBytes: 16 << 20,
	}

	var err error
	if cfg.RateBurst, err = getint("RATE_BURST", cfg.RateBurst); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = getint("RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return Config{}, err
	}
	maxBytes, err := getint("MAX_PUBLISH_BYTES", int(cfg.MaxPublishBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPublishBytes = int64(maxBytes)

	if cfg.SessionSecret == "" {
		return Config{}, errors.New("config: " + envPrefix + "SESSION_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("config: " + envPrefix + key + " must be an integer")
	}
	return v, nil
}
