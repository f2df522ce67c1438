package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration (persisted session state)
	Database DatabaseConfig `yaml:"database"`

	// Redis Configuration (optional notification queue)
	Redis RedisConfig `yaml:"redis"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`

	// Identity provider configuration
	Identity IdentityConfig `yaml:"identity"`

	// HTTP shell configuration
	Server ServerConfig `yaml:"server"`

	// Snackbar configuration
	Snackbar SnackbarConfig `yaml:"snackbar"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string `yaml:"address"` // Redis address (host:port), empty disables the notification queue
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// IdentityConfig holds the identity provider settings
type IdentityConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TokenStore     string        `yaml:"token_store"` // keyring, memory
	KeyringService string        `yaml:"keyring_service"`
}

// ServerConfig holds HTTP shell configuration
type ServerConfig struct {
	Address      string   `yaml:"address"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// SnackbarConfig holds notification display settings
type SnackbarConfig struct {
	Duration time.Duration `yaml:"duration"`
	History  int           `yaml:"history"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "appshell.sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Identity: IdentityConfig{
			BaseURL:        "https://identitytoolkit.googleapis.com",
			RequestTimeout: 30 * time.Second,
			TokenStore:     "keyring",
			KeyringService: "appshell",
		},
		Server: ServerConfig{
			Address:      ":8080",
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Snackbar: SnackbarConfig{
			Duration: 4 * time.Second,
			History:  20,
		},
	}
}

// Load loads configuration from an optional YAML file and environment variables.
// Environment variables win over the file; the file wins over defaults.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	if path := os.Getenv("APPSHELL_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Address, "REDIS_ADDRESS")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Identity.APIKey, "FIREBASE_API_KEY")
	setString(&cfg.Identity.BaseURL, "FIREBASE_AUTH_URL")
	setString(&cfg.Identity.TokenStore, "TOKEN_STORE")
	setString(&cfg.Identity.KeyringService, "KEYRING_SERVICE")
	setString(&cfg.Server.Address, "APPSHELL_ADDR")

	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.Server.AllowOrigins = splitList(origins)
	}

	if err := setDuration(&cfg.Identity.RequestTimeout, "IDENTITY_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Snackbar.Duration, "SNACKBAR_DURATION"); err != nil {
		return err
	}

	if v := os.Getenv("SNACKBAR_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SNACKBAR_HISTORY %q: %w", v, err)
		}
		cfg.Snackbar.History = n
	}

	return nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Identity.TokenStore {
	case "keyring", "memory":
	default:
		return fmt.Errorf("invalid token store %q, must be one of: keyring, memory", c.Identity.TokenStore)
	}

	if c.Identity.RequestTimeout <= 0 {
		return fmt.Errorf("identity request timeout must be positive")
	}

	if c.Snackbar.History <= 0 {
		return fmt.Errorf("snackbar history must be positive")
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
