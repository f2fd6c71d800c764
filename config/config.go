// Package config loads and validates the server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pawel-madurski/elasticsearch-image/api"
	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/docstore"
	"github.com/pawel-madurski/elasticsearch-image/engine"
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/search"
)

// Config represents the complete server configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Document store configuration
	Store core.StoreConfig `yaml:"store" json:"store"`

	// Engine configuration
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Optional ONNX embedding model for the DEEP feature kind
	ONNX *feature.ONNXConfig `yaml:"onnx,omitempty" json:"onnx,omitempty"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// EngineConfig contains retrieval engine configuration
type EngineConfig struct {
	// Maximum documents per index segment before sealing
	MaxSegmentDocs int `yaml:"max_segment_docs" json:"max_segment_docs"`

	// Default number of search results
	DefaultSize int `yaml:"default_size" json:"default_size"`

	// Score aggregation across matched hash buckets: "single" or "sum"
	ScoreMode string `yaml:"score_mode" json:"score_mode"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: core.StoreConfig{
			Type: docstore.StoreBolt,
			Path: "data/images.db",
		},
		Engine: EngineConfig{
			MaxSegmentDocs: 8192,
			DefaultSize:    10,
			ScoreMode:      "single",
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for missing
// values
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := docstore.ValidateConfig(c.Store); err != nil {
		return err
	}

	if c.Engine.ScoreMode != "single" && c.Engine.ScoreMode != "sum" {
		return fmt.Errorf("invalid score mode: %s", c.Engine.ScoreMode)
	}

	if c.ONNX != nil && c.ONNX.ModelPath == "" {
		return fmt.Errorf("onnx configuration requires a model path")
	}

	return nil
}

// ServerConfig converts to the api package's server configuration
func (c Config) APIServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		IdleTimeout:     c.Server.IdleTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// EngineOptions converts to engine options
func (c Config) EngineOptions() engine.Options {
	mode := search.ScoreModeSingle
	if c.Engine.ScoreMode == "sum" {
		mode = search.ScoreModeSum
	}

	return engine.Options{
		MaxSegmentDocs: c.Engine.MaxSegmentDocs,
		DefaultSize:    c.Engine.DefaultSize,
		ScoreMode:      mode,
	}
}
