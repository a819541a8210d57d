// Package config loads the YAML configuration shared by the rtdoc client and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

var (
	ErrMissingServer = errors.New("server address is required")
	ErrMissingDoc    = errors.New("document id is required")
	ErrInvalidDepth  = errors.New("undo depth must be positive")
)

// Config represents the settings read from a configuration file.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig configures the client.
type ClientConfig struct {
	Server           string        `yaml:"server"`
	Secure           bool          `yaml:"secure"`
	Document         string        `yaml:"document"`
	Username         string        `yaml:"username"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	Undo             UndoConfig    `yaml:"undo"`
}

// UndoConfig configures local undo history.
type UndoConfig struct {
	Enabled bool `yaml:"enabled"`
	Depth   int  `yaml:"depth"`
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `yaml:"debug"`

	// Dir is where log files are written. Empty means ~/.rtdoc.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Client: ClientConfig{
			Server:           "localhost:8080",
			Document:         "default",
			HandshakeTimeout: 2 * time.Minute,
			Undo:             UndoConfig{Enabled: true, Depth: 100},
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Database: "rtdoc.db",
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the client settings.
func (c ClientConfig) Validate() error {
	if c.Server == "" {
		return ErrMissingServer
	}
	if c.Document == "" {
		return ErrMissingDoc
	}
	if c.Undo.Enabled && c.Undo.Depth <= 0 {
		return ErrInvalidDepth
	}
	return nil
}
