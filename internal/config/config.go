// Copyright 2025 Artisan Chat Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Search    SearchConfig    `mapstructure:"search"`
	History   HistoryConfig   `mapstructure:"history"`
	Prefs     PrefsConfig     `mapstructure:"prefs"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Compose   ComposeConfig   `mapstructure:"compose"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
}

// SearchConfig selects and configures the similarity search backend
type SearchConfig struct {
	// Backend is "http" for the match service or "pgvector" for direct
	// Postgres access
	Backend string `mapstructure:"backend"`
	URL     string `mapstructure:"url"`
	DSN     string `mapstructure:"dsn"`
}

// HistoryConfig contains conversation store configuration
type HistoryConfig struct {
	// Backend is "sqlite" or "memory"
	Backend string `mapstructure:"backend"`
	DBPath  string `mapstructure:"db_path"`
}

// PrefsConfig contains the shopper preference store configuration
type PrefsConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// RetrievalConfig contains retrieval-specific settings
type RetrievalConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ComposeConfig contains response generation configuration
type ComposeConfig struct {
	// Generative enables the LLM response path; templates remain the fallback
	Generative  bool    `mapstructure:"generative"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnableHotReload  bool
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnableHotReload:  false,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set configuration file path
	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ARTISAN_CHAT")

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Set explicit environment variable mappings
	setEnvironmentMappings(v)

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// OpenAI defaults
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")

	// Search defaults
	v.SetDefault("search.backend", "http")
	v.SetDefault("search.url", "http://search:8090")

	// History defaults
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.db_path", "./conversations.db")

	// Preference defaults
	v.SetDefault("prefs.db_path", "./preferences.db")

	// Retrieval defaults
	v.SetDefault("retrieval.timeout_seconds", 15)

	// Compose defaults
	v.SetDefault("compose.generative", false)
	v.SetDefault("compose.model", "gpt-4o-mini")
	v.SetDefault("compose.max_tokens", 80)
	v.SetDefault("compose.temperature", 0.7)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	// Check for CONFIG_PATH environment variable
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	// Use provided config path
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations; missing files are fine, env vars can carry
	// the whole configuration
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	// Map common environment variables
	envMappings := map[string]string{
		"OPENAI_API_KEY":  "openai.apikey",
		"OPENAI_ENDPOINT": "openai.endpoint",
		"SEARCH_BACKEND":  "search.backend",
		"SEARCH_URL":      "search.url",
		"SEARCH_DSN":      "search.dsn",
		"HISTORY_DB_PATH": "history.db_path",
		"PREFS_DB_PATH":   "prefs.db_path",
		"PORT":            "server.port",
		"LOG_LEVEL":       "logging.level",
		"LOG_FORMAT":      "logging.format",
		"LOG_OUTPUT":      "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errs []ValidationError

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	// Query embedding always needs the OpenAI API
	if config.OpenAI.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	switch config.Search.Backend {
	case "http":
		if config.Search.URL == "" {
			errs = append(errs, ValidationError{
				Field:   "search.url",
				Message: "search service URL is required for the http backend",
			})
		}
	case "pgvector":
		if config.Search.DSN == "" {
			errs = append(errs, ValidationError{
				Field:   "search.dsn",
				Message: "Postgres DSN is required for the pgvector backend. Set via config file or SEARCH_DSN environment variable",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "search.backend",
			Message: "search backend must be one of: http, pgvector",
		})
	}

	validHistoryBackends := []string{"sqlite", "memory"}
	if !contains(validHistoryBackends, config.History.Backend) {
		errs = append(errs, ValidationError{
			Field:   "history.backend",
			Message: fmt.Sprintf("history backend must be one of: %s", strings.Join(validHistoryBackends, ", ")),
		})
	}

	if config.History.Backend == "sqlite" {
		if config.History.DBPath == "" {
			errs = append(errs, ValidationError{
				Field:   "history.db_path",
				Message: "conversation database path is required for the sqlite backend",
			})
		} else if err := validateDirectoryExists(filepath.Dir(config.History.DBPath)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "history.db_path",
				Message: fmt.Sprintf("conversation database directory does not exist: %s", filepath.Dir(config.History.DBPath)),
			})
		}
	}

	if config.Retrieval.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.timeout_seconds",
			Message: "timeout_seconds must be greater than 0",
		})
	}

	if config.Compose.MaxTokens <= 0 {
		errs = append(errs, ValidationError{
			Field:   "compose.max_tokens",
			Message: "max_tokens must be greater than 0",
		})
	}

	if config.Compose.Temperature < 0 || config.Compose.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "compose.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate enum values
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	// Return all validation errors
	if len(errs) > 0 {
		var errorMessages []string
		for _, err := range errs {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	// Mask sensitive fields
	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Search.DSN != "" {
		masked.Search.DSN = maskValue(masked.Search.DSN)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	// Set up configuration
	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	// Enable watching
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Printf("Config file changed: %s\n", e.Name)

		// Reload configuration
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			EnableHotReload:  true,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config: %v\n", err)
			return
		}

		// Call callback with new config
		callback(config)
	})

	return nil
}
