package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/iconidentify/teardown/pkg/provider"
	"github.com/iconidentify/teardown/pkg/teardown"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Settings SettingsConfig `yaml:"settings"`
	Upload   UploadConfig   `yaml:"upload"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `yaml:"port" envconfig:"SERVER_PORT" default:"9848"`
	// APIKey protects /api/v1 when set. Empty leaves the API open, which is
	// the usual local setup.
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"2m"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"10m"`
}

// ProviderConfig holds model provider configuration.
type ProviderConfig struct {
	// Default is the provider used when none has been saved.
	Default string        `yaml:"default" envconfig:"PROVIDER_DEFAULT" default:"openai"`
	Timeout time.Duration `yaml:"timeout" envconfig:"PROVIDER_TIMEOUT" default:"5m"`
}

// AnalysisConfig holds teardown run configuration.
type AnalysisConfig struct {
	// InstructionFile replaces the built-in instruction text when set.
	InstructionFile string `yaml:"instruction_file" envconfig:"ANALYSIS_PROMPT_FILE"`
	HistorySize     int    `yaml:"history_size" envconfig:"ANALYSIS_HISTORY_SIZE" default:"50"`
}

// SettingsConfig holds persisted settings configuration.
type SettingsConfig struct {
	// Store is "sqlite" or "memory".
	Store  string `yaml:"store" envconfig:"SETTINGS_STORE" default:"sqlite"`
	DBPath string `yaml:"db_path" envconfig:"SETTINGS_DB_PATH" default:"data/settings.db"`
	// Secret encrypts the stored API key when set.
	Secret string `yaml:"secret" envconfig:"SETTINGS_SECRET"`
}

// UploadConfig holds video upload configuration.
type UploadConfig struct {
	MaxVideoSize int64 `yaml:"max_video_size" envconfig:"MAX_VIDEO_SIZE" default:"104857600"` // 100MB
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if _, err := provider.ParseName(c.Provider.Default); err != nil {
		return fmt.Errorf("PROVIDER_DEFAULT: %w", err)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.Analysis.HistorySize < 1 {
		return fmt.Errorf("ANALYSIS_HISTORY_SIZE must be at least 1")
	}
	switch c.Settings.Store {
	case "memory":
	case "sqlite":
		if c.Settings.DBPath == "" {
			return fmt.Errorf("SETTINGS_DB_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("SETTINGS_STORE must be sqlite or memory, got %q", c.Settings.Store)
	}
	if c.Upload.MaxVideoSize <= 0 {
		return fmt.Errorf("MAX_VIDEO_SIZE must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultProvider returns the configured default as a provider name.
func (c *ProviderConfig) DefaultProvider() provider.Name {
	name, err := provider.ParseName(c.Default)
	if err != nil {
		return provider.OpenAI
	}
	return name
}

// Instruction returns the instruction text: the contents of InstructionFile
// when set, otherwise the built-in text.
func (c *AnalysisConfig) Instruction() (string, error) {
	if c.InstructionFile == "" {
		return teardown.Instruction, nil
	}
	data, err := os.ReadFile(c.InstructionFile)
	if err != nil {
		return "", fmt.Errorf("read instruction file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("instruction file %s is empty", c.InstructionFile)
	}
	return text, nil
}
