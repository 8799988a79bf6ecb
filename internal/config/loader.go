package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gaplens/internal/backend"
	"gaplens/internal/logger"
)

// Config is the structure of config.yaml.
type Config struct {
	Backend struct {
		Name           string  `yaml:"name"`
		Model          string  `yaml:"model"`
		BaseURL        string  `yaml:"base_url"`
		Temperature    float32 `yaml:"temperature"`
		MaxTokens      int     `yaml:"max_tokens"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"backend"`
	Pipeline struct {
		Stages []string `yaml:"stages"`
	} `yaml:"pipeline"`
	Storage struct {
		Driver            string `yaml:"driver"` // memory, file, or redis
		Dir               string `yaml:"dir"`
		RedisURL          string `yaml:"redis_url"`
		SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
	} `yaml:"storage"`
	Log logger.Config `yaml:"log"`
}

// Load reads and parses config.yaml, then fills in defaults for anything the
// file leaves out. A missing file is not an error; the defaults alone give a
// fully working stub-backed setup.
func Load(filepath string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(filepath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %v", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Backend.Model == "" {
		config.Backend.Model = "openai/gpt-4o-mini"
	}
	if config.Backend.Temperature == 0 {
		config.Backend.Temperature = 0.1
	}
	if config.Backend.MaxTokens == 0 {
		config.Backend.MaxTokens = 1500
	}
	if config.Backend.TimeoutSeconds == 0 {
		config.Backend.TimeoutSeconds = 30
	}
	if len(config.Pipeline.Stages) == 0 {
		config.Pipeline.Stages = []string{"perception", "analysis", "decision"}
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "memory"
	}
	if config.Storage.Dir == "" {
		config.Storage.Dir = "data"
	}
	if config.Storage.RedisURL == "" {
		config.Storage.RedisURL = "redis://localhost:6379/0"
	}
	if config.Storage.SessionTTLSeconds == 0 {
		config.Storage.SessionTTLSeconds = 3600
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

// BackendConfig builds the selector configuration from the loaded file.
// API keys come from the environment only, never from config.yaml.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		Timeout: time.Duration(c.Backend.TimeoutSeconds) * time.Second,
		Credentials: map[string]backend.Credentials{
			c.Backend.Name: {BaseURL: c.Backend.BaseURL},
		},
	}
}

// BackendParams builds the generation parameters every stage requests.
func (c *Config) BackendParams() backend.Params {
	return backend.Params{
		Model:       c.Backend.Model,
		Temperature: c.Backend.Temperature,
		MaxTokens:   c.Backend.MaxTokens,
	}
}

// SessionTTL returns the configured session expiry for TTL-aware stores.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Storage.SessionTTLSeconds) * time.Second
}
