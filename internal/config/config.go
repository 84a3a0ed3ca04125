package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gridsheet/internal/errors"
)

// SaveMode selects how changed rows reach the data API
type SaveMode string

const (
	SaveModeBulk SaveMode = "bulk" // one POST /data/bulk/ with every changed row
	SaveModeRow  SaveMode = "row"  // legacy POST /data/ per changed row
)

// Valid reports whether m is a supported save mode
func (m SaveMode) Valid() bool {
	return m == SaveModeBulk || m == SaveModeRow
}

// Config represents the complete application configuration
type Config struct {
	API    APIConfig
	Server ServerConfig
	Sheet  SheetConfig
	Log    LogConfig
}

// APIConfig holds settings for the remote data API
type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	SaveMode SaveMode
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	SessionIdle time.Duration
}

// SheetConfig holds spreadsheet panel settings
type SheetConfig struct {
	FormulasEnabled bool
	SpareRows       int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		API:    *loadAPIConfig(),
		Server: *loadServerConfig(),
		Sheet:  *loadSheetConfig(),
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:  strings.TrimRight(getEnvOrDefault("API_BASE_URL", "http://localhost:8000/api"), "/"),
		Timeout:  getEnvDurationOrDefault("API_TIMEOUT", 30*time.Second),
		SaveMode: SaveMode(strings.ToLower(getEnvOrDefault("SAVE_MODE", string(SaveModeBulk)))),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
		SessionIdle: getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour),
	}
}

func loadSheetConfig() *SheetConfig {
	return &SheetConfig{
		FormulasEnabled: getEnvBoolOrDefault("FORMULAS_ENABLED", true),
		SpareRows:       getEnvIntOrDefault("SPARE_ROWS", 1),
	}
}

// Validate checks the settings, for use again after a caller overrides them
func (config *Config) Validate() error {
	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("API_BASE_URL must be an absolute URL")
	}
	if config.API.Timeout <= 0 {
		return errors.ConfigInvalid("API_TIMEOUT must be positive")
	}
	if !config.API.SaveMode.Valid() {
		return errors.ConfigInvalid("SAVE_MODE must be bulk or row")
	}
	if config.Sheet.SpareRows < 1 {
		return errors.ConfigInvalid("SPARE_ROWS must be at least 1")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
