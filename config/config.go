// Package config provides configuration management for the Meetverse processing
// service. It supports loading configuration from YAML files and environment
// variables, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultHTTPAddress     = ":8084"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultConfigDir       = ".meetverse"
	DefaultConfigFile      = "config.yaml"
)

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	// Address is the listen address for the API server (host:port).
	Address string `yaml:"address"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// RedisConfig holds Redis connection settings for the processing queue.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// DeepgramConfig holds speech-to-text provider settings.
type DeepgramConfig struct {
	// APIKey authenticates against the Deepgram API. Empty means the
	// transcription stage is not configured and degrades to a no-op.
	APIKey string `yaml:"api_key,omitempty"`

	// Model selects the transcription model (default: nova-2).
	Model string `yaml:"model,omitempty"`

	// Language is the expected transcript language tag (default: en).
	Language string `yaml:"language,omitempty"`

	// Timeout bounds a single transcription call.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// IsConfigured reports whether the transcription provider can be used.
func (c *DeepgramConfig) IsConfigured() bool {
	return c != nil && c.APIKey != ""
}

// OpenAIConfig holds LLM provider settings.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Empty means the
	// analysis stage is not configured and degrades to a no-op.
	APIKey string `yaml:"api_key,omitempty"`

	// Model selects the chat model (default: gpt-4o-mini).
	Model string `yaml:"model,omitempty"`

	// Timeout bounds a single analysis call.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// IsConfigured reports whether the analysis provider can be used.
func (c *OpenAIConfig) IsConfigured() bool {
	return c != nil && c.APIKey != ""
}

// ProcessingConfig holds pipeline behavior settings.
type ProcessingConfig struct {
	// QueueName is the Redis queue drained by the worker pool.
	QueueName string `yaml:"queue_name"`

	// WorkerCount is the number of concurrent queue workers.
	WorkerCount int `yaml:"worker_count"`

	// VisibilityTimeout is how long a dequeued job stays invisible before
	// it is considered stale and re-delivered.
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`

	// MaxRetries is the delivery attempt limit before a job moves to the
	// dead letter queue.
	MaxRetries int `yaml:"max_retries"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
}

// Config is the root configuration for the processing service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`

	// MigrationsDir is where migrate looks for .sql files.
	MigrationsDir string `yaml:"migrations_dir,omitempty"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         DefaultHTTPAddress,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "meetverse",
			User:     "meetverse",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Deepgram: DeepgramConfig{
			Model:    "nova-2",
			Language: "en",
			Timeout:  2 * time.Minute,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 90 * time.Second,
		},
		Processing: ProcessingConfig{
			QueueName:         "processing:meetings",
			WorkerCount:       4,
			VisibilityTimeout: 5 * time.Minute,
			MaxRetries:        3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		MigrationsDir: "migrations",
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MEETVERSE_CONFIG_DIR if set, otherwise ~/.meetverse
func ConfigDir() (string, error) {
	if dir := os.Getenv("MEETVERSE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load loads the service configuration.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.meetverse/config.yaml or $MEETVERSE_CONFIG_DIR/config.yaml)
// 3. Environment variables (MEETVERSE_*)
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit file path, then overlays
// environment variables.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadFromEnv overlays configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("MEETVERSE_HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("MEETVERSE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("MEETVERSE_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("MEETVERSE_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("MEETVERSE_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("MEETVERSE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MEETVERSE_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("MEETVERSE_REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("MEETVERSE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DEEPGRAM_API_KEY"); v != "" {
		cfg.Deepgram.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("MEETVERSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEETVERSE_LOG_JSON"); v == "true" || v == "1" {
		cfg.Logging.JSONFormat = true
	}
}

// Validate checks if the config has required fields set.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max connections (%d) must be >= min connections (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}
	if c.Processing.QueueName == "" {
		return fmt.Errorf("processing queue name is required")
	}
	if c.Processing.WorkerCount <= 0 {
		return fmt.Errorf("invalid worker count: %d", c.Processing.WorkerCount)
	}
	if c.Processing.MaxRetries < 1 {
		return fmt.Errorf("invalid max retries: %d", c.Processing.MaxRetries)
	}
	return nil
}
