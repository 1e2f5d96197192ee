package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"mldash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Backend    BackendConfig
	Browse     BrowseConfig
	Server     ServerConfig
	DevBackend DevBackendConfig
	Log        LogConfig
}

// BackendConfig points at the remote ML backend
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BrowseConfig holds browsing session settings
type BrowseConfig struct {
	WindowSize         int
	PageSize           int
	DefaultColumns     int
	LegacyCSVQuoting   bool
	MaxVisiblePageLink int
}

// ServerConfig holds dashboard server settings
type ServerConfig struct {
	Port       string
	GinMode    string
	SessionTTL time.Duration
}

// DevBackendConfig holds settings for the local stand-in backend
type DevBackendConfig struct {
	Port         string
	DatabaseURL  string
	PreviewLimit int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Backend:    *loadBackendConfig(),
		Browse:     *loadBrowseConfig(),
		Server:     *loadServerConfig(),
		DevBackend: *loadDevBackendConfig(),
		Log:        LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadBackendConfig() *BackendConfig {
	return &BackendConfig{
		BaseURL: strings.TrimRight(getEnvOrDefault("API_URL", "http://localhost:8000"), "/"),
		Timeout: getEnvDurationOrDefault("API_TIMEOUT", 2*time.Minute),
	}
}

func loadBrowseConfig() *BrowseConfig {
	return &BrowseConfig{
		WindowSize:         getEnvIntOrDefault("BROWSE_WINDOW_SIZE", 10),
		PageSize:           getEnvIntOrDefault("BROWSE_PAGE_SIZE", 10),
		DefaultColumns:     getEnvIntOrDefault("BROWSE_DEFAULT_COLUMNS", 5),
		LegacyCSVQuoting:   getEnvBoolOrDefault("CSV_LEGACY_QUOTING", false),
		MaxVisiblePageLink: 5,
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:       getEnvOrDefault("PORT", "8080"),
		GinMode:    getEnvOrDefault("GIN_MODE", "debug"),
		SessionTTL: getEnvDurationOrDefault("SESSION_TTL", 30*time.Minute),
	}
}

func loadDevBackendConfig() *DevBackendConfig {
	return &DevBackendConfig{
		Port:         getEnvOrDefault("DEV_BACKEND_PORT", "8000"),
		DatabaseURL:  getEnvOrDefault("DATABASE_URL", ""),
		PreviewLimit: getEnvIntOrDefault("DEV_PREVIEW_LIMIT", 100),
	}
}

func validateConfig(config *Config) error {
	u, err := url.Parse(config.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("API_URL must be an absolute URL")
	}
	if config.Backend.Timeout <= 0 {
		return errors.ConfigInvalid("API_TIMEOUT must be positive")
	}
	if config.Browse.WindowSize <= 0 {
		return errors.ConfigInvalid("BROWSE_WINDOW_SIZE must be positive")
	}
	if config.Browse.PageSize <= 0 {
		return errors.ConfigInvalid("BROWSE_PAGE_SIZE must be positive")
	}
	if config.Browse.DefaultColumns <= 0 {
		return errors.ConfigInvalid("BROWSE_DEFAULT_COLUMNS must be positive")
	}
	if config.Server.SessionTTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.DevBackend.PreviewLimit <= 0 {
		return errors.ConfigInvalid("DEV_PREVIEW_LIMIT must be positive")
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
