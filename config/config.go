package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultModel           = "data/dice.hmm"
	defaultAddr            = ":8080"
	defaultLogLevel        = "info"
	defaultMaxObservations = 100000
)

// Config holds the settings shared by the decoder binaries.
type Config struct {
	// Model is the path of the model file.
	Model string `json:"model"`
	// Alphabet is an optional token file; empty means numeric symbols.
	Alphabet        string `json:"alphabet,omitempty"`
	Addr            string `json:"addr,omitempty"`
	Workers         int    `json:"workers,omitempty"`
	LogLevel        string `json:"log_level,omitempty"`
	MaxObservations int    `json:"max_observations,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:           defaultModel,
		Addr:            defaultAddr,
		Workers:         1,
		LogLevel:        defaultLogLevel,
		MaxObservations: defaultMaxObservations,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Alphabet != "" {
		c.Alphabet = source.Alphabet
	}
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Workers > 0 {
		c.Workers = source.Workers
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	if source.MaxObservations > 0 {
		c.MaxObservations = source.MaxObservations
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
