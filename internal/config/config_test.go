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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	return configPath
}

// validTestConfig returns a configuration that passes validation; tests mutate
// individual fields to exercise the checks.
func validTestConfig() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		OpenAI: OpenAIConfig{
			APIKey:   "sk-test-key",
			Endpoint: "https://api.openai.com/v1",
		},
		Search: SearchConfig{
			Backend: "http",
			URL:     "http://search:8090",
		},
		History: HistoryConfig{
			Backend: "sqlite",
			DBPath:  "./conversations.db",
		},
		Prefs:     PrefsConfig{DBPath: "./preferences.db"},
		Retrieval: RetrievalConfig{TimeoutSeconds: 15},
		Compose: ComposeConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   80,
			Temperature: 0.7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestLoadConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  port: 9090
openai:
  apikey: "sk-test-key"  # pragma: allowlist secret
search:
  backend: "http"
  url: "http://search:8090"
history:
  backend: "memory"
retrieval:
  timeout_seconds: 20
compose:
  generative: true
  temperature: 0.5
logging:
  level: "debug"
  format: "json"
  output: "stdout"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Expected server port 9090, got %d", config.Server.Port)
	}

	if config.OpenAI.APIKey != "sk-test-key" {
		t.Errorf("Expected OpenAI API key 'sk-test-key', got '%s'", config.OpenAI.APIKey)
	}

	if config.History.Backend != "memory" {
		t.Errorf("Expected history backend 'memory', got '%s'", config.History.Backend)
	}

	if config.Retrieval.TimeoutSeconds != 20 {
		t.Errorf("Expected retrieval timeout 20, got %d", config.Retrieval.TimeoutSeconds)
	}

	if !config.Compose.Generative {
		t.Error("Expected generative composition enabled")
	}

	if config.Compose.Temperature != 0.5 {
		t.Errorf("Expected compose temperature 0.5, got %f", config.Compose.Temperature)
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
openai:
  apikey: "sk-default-key"
search:
  backend: "http"
  url: "http://default:8090"
logging:
  level: "info"
  format: "json"
`)

	_ = os.Setenv("OPENAI_API_KEY", "sk-env-key")
	_ = os.Setenv("SEARCH_URL", "http://env:8090")
	_ = os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		_ = os.Unsetenv("OPENAI_API_KEY")
		_ = os.Unsetenv("SEARCH_URL")
		_ = os.Unsetenv("LOG_LEVEL")
	}()

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-env-key" {
		t.Errorf("Expected OpenAI API key from env 'sk-env-key', got '%s'", config.OpenAI.APIKey)
	}

	if config.Search.URL != "http://env:8090" {
		t.Errorf("Expected search URL from env 'http://env:8090', got '%s'", config.Search.URL)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level from env 'debug', got '%s'", config.Logging.Level)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError bool
		errorContains string
	}{
		{
			name:          "Valid configuration",
			mutate:        func(c *Config) {},
			expectedError: false,
		},
		{
			name:          "Missing OpenAI API key",
			mutate:        func(c *Config) { c.OpenAI.APIKey = "" },
			expectedError: true,
			errorContains: "OpenAI API key is required",
		},
		{
			name:          "Invalid port",
			mutate:        func(c *Config) { c.Server.Port = 0 },
			expectedError: true,
			errorContains: "port must be between 1 and 65535",
		},
		{
			name:          "Unknown search backend",
			mutate:        func(c *Config) { c.Search.Backend = "elasticsearch" },
			expectedError: true,
			errorContains: "search backend must be one of",
		},
		{
			name: "Missing search URL for http backend",
			mutate: func(c *Config) {
				c.Search.Backend = "http"
				c.Search.URL = ""
			},
			expectedError: true,
			errorContains: "search service URL is required",
		},
		{
			name: "Missing DSN for pgvector backend",
			mutate: func(c *Config) {
				c.Search.Backend = "pgvector"
				c.Search.DSN = ""
			},
			expectedError: true,
			errorContains: "Postgres DSN is required",
		},
		{
			name: "Pgvector backend with DSN is valid",
			mutate: func(c *Config) {
				c.Search.Backend = "pgvector"
				c.Search.DSN = "postgres://chat:secret@db:5432/products"
			},
			expectedError: false,
		},
		{
			name:          "Unknown history backend",
			mutate:        func(c *Config) { c.History.Backend = "redis" },
			expectedError: true,
			errorContains: "history backend must be one of",
		},
		{
			name:          "Invalid retrieval timeout",
			mutate:        func(c *Config) { c.Retrieval.TimeoutSeconds = 0 },
			expectedError: true,
			errorContains: "timeout_seconds must be greater than 0",
		},
		{
			name:          "Invalid compose temperature",
			mutate:        func(c *Config) { c.Compose.Temperature = 3.0 },
			expectedError: true,
			errorContains: "temperature must be between 0 and 2",
		},
		{
			name:          "Invalid log level",
			mutate:        func(c *Config) { c.Logging.Level = "invalid" },
			expectedError: true,
			errorContains: "log level must be one of",
		},
		{
			name:          "Invalid log format",
			mutate:        func(c *Config) { c.Logging.Format = "xml" },
			expectedError: true,
			errorContains: "log format must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			tt.mutate(&config)

			err := validateConfig(&config)

			if tt.expectedError {
				if err == nil {
					t.Errorf("Expected validation error, but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', but got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("Expected no validation error, but got: %v", err)
				}
			}
		})
	}
}

func TestMaskSensitiveValues(t *testing.T) {
	config := &Config{
		OpenAI: OpenAIConfig{
			APIKey: "sk-test-1234567890abcdef", // pragma: allowlist secret
		},
		Search: SearchConfig{
			DSN: "postgres://chat:secret@db:5432/products", // pragma: allowlist secret
		},
	}

	masked := config.MaskSensitiveValues()

	// Original config should remain unchanged
	if config.OpenAI.APIKey != "sk-test-1234567890abcdef" {
		t.Errorf("Original config API key should remain unchanged")
	}

	expectedAPIKey := "sk-test-" + "****************"
	if masked.OpenAI.APIKey != expectedAPIKey {
		t.Errorf("Expected masked API key '%s', got '%s'", expectedAPIKey, masked.OpenAI.APIKey)
	}

	dsn := "postgres://chat:secret@db:5432/products"
	expectedDSN := dsn[:8] + strings.Repeat("*", len(dsn)-8)
	if masked.Search.DSN != expectedDSN {
		t.Errorf("Expected masked DSN '%s', got '%s'", expectedDSN, masked.Search.DSN)
	}
}

func TestConfigPathEnvironmentVariable(t *testing.T) {
	configPath := writeConfigFile(t, `
openai:
  apikey: "sk-custom-key"
search:
  backend: "http"
  url: "http://search:8090"
`)

	_ = os.Setenv("CONFIG_PATH", configPath)
	defer func() {
		_ = os.Unsetenv("CONFIG_PATH")
	}()

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-custom-key" {
		t.Errorf("Expected OpenAI API key from custom config 'sk-custom-key', got '%s'", config.OpenAI.APIKey)
	}
}

func TestLoadWithOptions(t *testing.T) {
	// Validation disabled lets a key-less config through
	configPath := writeConfigFile(t, `
openai:
  apikey: ""
`)

	config, err := LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: false,
	})
	if err != nil {
		t.Fatalf("Failed to load config with options: %v", err)
	}

	if config.OpenAI.APIKey != "" {
		t.Errorf("Expected empty API key, got '%s'", config.OpenAI.APIKey)
	}

	_, err = LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
	if err == nil {
		t.Error("Expected validation error for missing API key, but got none")
	}
}

func TestDefaultValues(t *testing.T) {
	configPath := writeConfigFile(t, `
openai:
  apikey: "sk-test-key"  # pragma: allowlist secret
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}

	if config.OpenAI.Endpoint != "https://api.openai.com/v1" {
		t.Errorf("Expected default OpenAI endpoint 'https://api.openai.com/v1', got '%s'", config.OpenAI.Endpoint)
	}

	if config.Search.Backend != "http" {
		t.Errorf("Expected default search backend 'http', got '%s'", config.Search.Backend)
	}

	if config.History.Backend != "sqlite" {
		t.Errorf("Expected default history backend 'sqlite', got '%s'", config.History.Backend)
	}

	if config.Retrieval.TimeoutSeconds != 15 {
		t.Errorf("Expected default retrieval timeout 15, got %d", config.Retrieval.TimeoutSeconds)
	}

	if config.Compose.Model != "gpt-4o-mini" {
		t.Errorf("Expected default model 'gpt-4o-mini', got '%s'", config.Compose.Model)
	}

	if config.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.Logging.Level)
	}
}

func TestGetEnvironment(t *testing.T) {
	env := getEnvironment()
	if env != "development" {
		t.Errorf("Expected default environment 'development', got '%s'", env)
	}

	_ = os.Setenv("ENVIRONMENT", "production")
	env = getEnvironment()
	if env != "production" {
		t.Errorf("Expected environment 'production', got '%s'", env)
	}
	_ = os.Unsetenv("ENVIRONMENT")

	_ = os.Setenv("ENV", "staging")
	env = getEnvironment()
	if env != "staging" {
		t.Errorf("Expected environment 'staging', got '%s'", env)
	}
	_ = os.Unsetenv("ENV")
}

func TestValidationError(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Message: "test error message",
	}

	expected := "configuration validation failed for field 'test.field': test error message"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short value",
			input:    "short",
			expected: "*****",
		},
		{
			name:     "Long value",
			input:    "sk-test-1234567890abcdef",
			expected: "sk-test-" + "****************",
		},
		{
			name:     "Exactly 8 characters",
			input:    "12345678",
			expected: "********",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskValue(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
