// Package config provides YAML-based configuration for the console and terminal front-ends.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/datachat/console/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// dotEnvPath is the optional .env file read before the config file.
var dotEnvPath = ".env"

// AppConfig represents the root configuration document
type AppConfig struct {
	// Server configuration (browser console only)
	Server ServerConfig `yaml:"server"`

	// Remote structured data API
	API APIConfig `yaml:"api"`

	// Local staging of selected files
	Storage StorageConfig `yaml:"storage"`

	// Per-browser console sessions
	Session SessionConfig `yaml:"session"`

	Chat ChatConfig `yaml:"chat"`

	Log LogConfig `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                 int    `yaml:"port" validate:"min=1,max=65535"`
	BindAddress          string `yaml:"bind_address"`
	EnableCORS           bool   `yaml:"enable_cors"`
	AllowOrigins         string `yaml:"allow_origins"`
	ReadTimeout          int    `yaml:"read_timeout_seconds" validate:"min=0"`
	WriteTimeout         int    `yaml:"write_timeout_seconds" validate:"min=0"`
	IdleTimeout          int    `yaml:"idle_timeout_seconds" validate:"min=0"`
	BodyLimit            string `yaml:"body_limit" validate:"required"`
	EnableCompression    bool   `yaml:"enable_compression"`
	CompressionLevel     int    `yaml:"compression_level" validate:"min=-1,max=9"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// APIConfig points at the remote service.
type APIConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// TimeoutSeconds of 0 leaves hang behaviour to the network layer.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=0"`
}

// StorageConfig contains file staging settings
type StorageConfig struct {
	DataDirectory    string `yaml:"data_directory" validate:"required"`
	UploadsDirectory string `yaml:"uploads_directory" validate:"required"`
}

// SessionConfig controls console session lifetime.
type SessionConfig struct {
	TimeoutMinutes         int `yaml:"timeout_minutes" validate:"min=1"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes" validate:"min=1"`
	MaxSessions            int `yaml:"max_sessions" validate:"min=1"`
}

// ChatConfig holds chat presentation options.
type ChatConfig struct {
	Suggestions []string `yaml:"suggestions"`
}

// LogConfig controls the shared logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=json text"`
	// File receives terminal front-end logs; empty discards them.
	File string `yaml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                 8090,
			BindAddress:          "127.0.0.1",
			EnableCORS:           false,
			AllowOrigins:         "*",
			ReadTimeout:          30,
			WriteTimeout:         120,
			IdleTimeout:          120,
			BodyLimit:            "12M",
			EnableCompression:    true,
			CompressionLevel:     5,
			EnableRequestLogging: true,
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 0,
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/staged",
		},
		Session: SessionConfig{
			TimeoutMinutes:         60,
			CleanupIntervalMinutes: 5,
			MaxSessions:            100,
		},
		Chat: ChatConfig{
			Suggestions: []string{
				"How many rows does this data have?",
				"Summarise the columns in this file.",
				"What is the total of the numeric columns?",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating it with defaults on first run.
// A .env file in the working directory is loaded first so its values can override the file.
func LoadConfig(configPath string) (*AppConfig, error) {
	if err := loadDotEnv(dotEnvPath); err != nil {
		logger.WithFields(logrus.Fields{"path": dotEnvPath, "error": err}).Warn("ignoring unreadable .env file")
	}

	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Structured data chat console configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if url := os.Getenv("DATACHAT_API_URL"); url != "" {
		c.API.BaseURL = url
	}

	if timeout := os.Getenv("DATACHAT_API_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.API.TimeoutSeconds = t
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "staged")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(configDir, c.Log.File)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAPITimeout returns the client timeout; zero means none.
func (c *AppConfig) GetAPITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
