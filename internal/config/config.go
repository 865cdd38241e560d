package config

import (
	"fmt"
	"os"
)

// Config holds the application configuration
type Config struct {
	// DatabaseURL is optional: when empty the service runs on the
	// in-memory document store.
	DatabaseURL string
	Port        string
	JWTSecret   string
	OTPSalt     string
	OTPDevMode  bool
	DevMode     bool
	Environment string
	LogLevel    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        "8080", // default port
		Environment: "production",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// JWT_SECRET (required)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	// OTP_SALT (required)
	otpSalt := os.Getenv("OTP_SALT")
	if otpSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}
	cfg.OTPSalt = otpSalt

	cfg.OTPDevMode = os.Getenv("OTP_DEV_MODE") == "true"
	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Environment = env
	} else if cfg.DevMode {
		cfg.Environment = "development"
	}

	cfg.LogLevel = os.Getenv("LOG_LEVEL")

	return cfg, nil
}
