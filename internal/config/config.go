package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"waveshelf/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port    string
	DBPath  string
	BlobDir string

	// ResolverURL points at the service that resolves remote track URLs
	// (metadata + audio location). Empty disables URL imports.
	ResolverURL string

	// Generator endpoints. Each is independently optional; a missing one
	// only disables that half of AI generation.
	AudioGenURL string
	MetaGenURL  string
	CoverGenURL string

	LogLevel  string
	LogFormat string
}

// Load loads configuration from the environment, reading an optional .env
// file first.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", constants.DefaultPort),
		DBPath:      getEnv("DB_PATH", constants.DefaultDBPath),
		BlobDir:     getEnv("BLOB_DIR", constants.DefaultBlobDir),
		ResolverURL: getEnv("RESOLVER_URL", ""),
		AudioGenURL: getEnv("AUDIO_GEN_URL", ""),
		MetaGenURL:  getEnv("META_GEN_URL", ""),
		CoverGenURL: getEnv("COVER_GEN_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.BlobDir == "" {
		errors = append(errors, "BLOB_DIR cannot be empty")
	}

	for _, ep := range []struct{ name, value string }{
		{"RESOLVER_URL", c.ResolverURL},
		{"AUDIO_GEN_URL", c.AudioGenURL},
		{"META_GEN_URL", c.MetaGenURL},
		{"COVER_GEN_URL", c.CoverGenURL},
	} {
		if ep.value == "" {
			continue
		}
		if u, err := url.Parse(ep.value); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("%s is not a valid URL: %s", ep.name, ep.value))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
