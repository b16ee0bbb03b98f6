// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort               = "8080"
	DefaultModel              = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultDatabase           = "pesan"
	DefaultOrderRetention     = 720 * time.Hour
	DefaultSessionIdleTimeout = 10 * time.Minute
	DefaultResumeTimeout      = 2 * time.Second
)

// Config holds the server settings
type Config struct {
	Port               string
	AppEnv             string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiVoice        string
	CatalogPath        string
	MongoURI           string
	MongoDatabase      string
	JWTSecret          string
	KioskAccessCode    string
	OrderRetention     time.Duration
	SessionIdleTimeout time.Duration
	ResumeTimeout      time.Duration
}

// Load reads .env files (missing ones are ignored) and then the environment
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		AppEnv:          getEnv("APP_ENV", "production"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", DefaultModel),
		GeminiVoice:     os.Getenv("GEMINI_VOICE"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", DefaultDatabase),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		KioskAccessCode: os.Getenv("KIOSK_ACCESS_CODE"),
	}

	var err error
	if cfg.OrderRetention, err = getDuration("ORDER_RETENTION", DefaultOrderRetention); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", DefaultSessionIdleTimeout); err != nil {
		return nil, err
	}
	if cfg.ResumeTimeout, err = getDuration("RESUME_TIMEOUT", DefaultResumeTimeout); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable together
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.KioskAccessCode != "" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when KIOSK_ACCESS_CODE is set")
	}
	if c.SessionIdleTimeout <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.ResumeTimeout <= 0 {
		return errors.New("RESUME_TIMEOUT must be positive")
	}
	if c.OrderRetention < 0 {
		return errors.New("ORDER_RETENTION cannot be negative")
	}
	return nil
}

// Development reports whether APP_ENV selects development mode
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// AuthEnabled reports whether /ws requires a kiosk token
func (c *Config) AuthEnabled() bool {
	return c.KioskAccessCode != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
