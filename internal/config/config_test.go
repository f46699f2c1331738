package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.Decode.BlankIndex)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"negative blank index", func(c *Config) { c.Decode.BlankIndex = -1 }},
		{"negative workers", func(c *Config) { c.Decode.MaxWorkers = -2 }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyMB = 0 }},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSec = 0 }},
		{"negative model threads", func(c *Config) { c.Model.NumThreads = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWithFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := DefaultConfig()
	cfg.Decode.BlankIndex = 95
	cfg.Decode.ComputeTimestamps = true
	cfg.Server.Port = 9090

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ctcd.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 95, loaded.Decode.BlankIndex)
	assert.True(t, loaded.Decode.ComputeTimestamps)
	assert.Equal(t, 9090, loaded.Server.Port)
	// Untouched values fall back to defaults.
	assert.Equal(t, "localhost", loaded.Server.Host)
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := NewLoader().LoadWithFile("/nonexistent/ctcd.yaml")
	assert.Error(t, err)
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "ctcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -4\n"), 0o600))

	_, err := NewLoader().LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("CTCD_DECODE_BLANK_INDEX", "7")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Decode.BlankIndex)
}
