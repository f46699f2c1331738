package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUConfigValidate(t *testing.T) {
	cfg := DefaultGPUConfig()
	assert.NoError(t, cfg.Validate())

	cfg.UseGPU = true
	assert.NoError(t, cfg.Validate())

	cfg.DeviceID = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.ArenaExtendStrategy = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestGPUConfigValidate_IgnoredWhenCPUOnly(t *testing.T) {
	cfg := GPUConfig{UseGPU: false, DeviceID: -5, ArenaExtendStrategy: "bogus"}
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "empty model path must be rejected")

	cfg.ModelPath = "/nonexistent/model.onnx"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_NegativeThreads(t *testing.T) {
	path := writeTempModel(t)
	cfg := DefaultConfig()
	cfg.ModelPath = path
	cfg.NumThreads = -1
	assert.Error(t, cfg.Validate())

	cfg.NumThreads = 4
	assert.NoError(t, cfg.Validate())
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName()
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestSystemLibraryPaths_GPUFirst(t *testing.T) {
	cpu := systemLibraryPaths(false)
	gpu := systemLibraryPaths(true)
	assert.Len(t, gpu, len(cpu)+1)
	assert.Contains(t, gpu[0], "gpu")
}

func TestDeviceBuffer_ReleasedTwice(t *testing.T) {
	b := &DeviceBuffer{}
	_, err := b.ToHost()
	assert.Error(t, err)
}

func writeTempModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o600))
	return path
}
