package config

import (
	"fmt"
	"strings"
)

// Config represents the complete configuration for the ctcd decoding
// service. It supports loading from configuration files, environment
// variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Decode configuration
	Decode DecodeConfig `mapstructure:"decode" yaml:"decode" json:"decode"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Upstream model configuration (optional; decode also accepts
	// pre-computed scores or labels directly)
	Model ModelConfig `mapstructure:"model" yaml:"model" json:"model"`
}

// DecodeConfig contains greedy decoding settings.
type DecodeConfig struct {
	BlankIndex         int  `mapstructure:"blank_index" yaml:"blank_index" json:"blank_index"`
	PreserveAlignments bool `mapstructure:"preserve_alignments" yaml:"preserve_alignments" json:"preserve_alignments"`
	ComputeTimestamps  bool `mapstructure:"compute_timestamps" yaml:"compute_timestamps" json:"compute_timestamps"`
	MaxWorkers         int  `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host" json:"host"`
	Port       int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyMB  int64  `mapstructure:"max_body_mb" yaml:"max_body_mb" json:"max_body_mb"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// ModelConfig contains ONNX model settings for the upstream score producer.
type ModelConfig struct {
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	NumThreads int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Verbose:  false,
		Decode: DecodeConfig{
			BlankIndex:         0,
			PreserveAlignments: false,
			ComputeTimestamps:  false,
			MaxWorkers:         0, // 0 = runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8080,
			CORSOrigin: "*",
			MaxBodyMB:  64,
			TimeoutSec: 30,
		},
		Model: ModelConfig{
			Path:       "",
			NumThreads: 0,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn or error)", c.LogLevel)
	}

	if c.Decode.BlankIndex < 0 {
		return fmt.Errorf("decode.blank_index must be >= 0, got %d", c.Decode.BlankIndex)
	}
	if c.Decode.MaxWorkers < 0 {
		return fmt.Errorf("decode.max_workers must be >= 0, got %d", c.Decode.MaxWorkers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.MaxBodyMB <= 0 {
		return fmt.Errorf("server.max_body_mb must be > 0, got %d", c.Server.MaxBodyMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server.timeout_sec must be > 0, got %d", c.Server.TimeoutSec)
	}

	if c.Model.NumThreads < 0 {
		return fmt.Errorf("model.num_threads must be >= 0, got %d", c.Model.NumThreads)
	}

	return nil
}
