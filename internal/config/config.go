package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all process configuration, parsed from environment variables.
type Config struct {
	// HTTP listen address, e.g. ":3000"
	Address string `env:"ADDRESS" envDefault:":3000"`
	// Environment toggles debug payloads and verbose logging.
	// Anything other than "production" is treated as development.
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Postgres DSN
	DSN string `env:"DSN,required"`

	// OpenAI
	OpenAIKey     string `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// Admin key guarding tag creation. Empty disables the guard.
	AdminKey string `env:"ADMIN_API_KEY"`

	// Rate limit for the generation endpoint, requests per minute per IP.
	GenerateRateLimit int `env:"GENERATE_RATE_LIMIT" envDefault:"10"`

	// Optional R2/S3 archive for generated images. Archiving is enabled
	// only when BucketName is set.
	Archive ArchiveConfig
}

// ArchiveConfig configures the S3-compatible artifact archive.
type ArchiveConfig struct {
	BucketName      string `env:"BUCKET_NAME"`
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	AccessKeySecret string `env:"ACCESS_KEY_SECRET"`
	// PublicURL is a format string with one %s for the object key.
	PublicURL string `env:"PUBLIC_URL"`
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Production reports whether the process runs in production mode.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// ArchiveEnabled reports whether generated images should be copied to the bucket.
func (c Config) ArchiveEnabled() bool {
	return c.Archive.BucketName != ""
}
