package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taffy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "taffy_layout.wasm", cfg.Module)
	assert.Equal(t, EngineAuto, cfg.Engine)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, uint32(256), cfg.Wasm.MemoryPages)
	assert.Equal(t, 100, cfg.Wasm.MaxInstances)
	assert.Equal(t, 1024, cfg.Diagnostics.MaxLineBytes)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
module: https://cdn.example.test/taffy.wasm
engine: wasm
log:
  level: debug
  format: json
  file: /var/log/taffy.log
wasm:
  memory_pages: 512
  cache_dir: /tmp/taffy-cache
diagnostics:
  max_line_bytes: 256
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.test/taffy.wasm", cfg.Module)
	assert.Equal(t, EngineWasm, cfg.Engine)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/var/log/taffy.log", cfg.Log.File)
	assert.Equal(t, uint32(512), cfg.Wasm.MemoryPages)
	assert.Equal(t, "/tmp/taffy-cache", cfg.Wasm.CacheDir)
	assert.Equal(t, 256, cfg.Diagnostics.MaxLineBytes)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 100, cfg.Wasm.MaxInstances)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TAFFY_ENGINE", "builtin")
	t.Setenv("TAFFY_WASM_MAX_INSTANCES", "4")

	path := writeConfig(t, "engine: wasm\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EngineBuiltin, cfg.Engine)
	assert.Equal(t, 4, cfg.Wasm.MaxInstances)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"unknown engine":  "engine: gpu\n",
		"too many pages":  "wasm:\n  memory_pages: 70000\n",
		"negative limit":  "wasm:\n  max_instances: -1\n",
		"negative budget": "diagnostics:\n  max_line_bytes: -5\n",
		"malformed yaml":  "engine: [wasm\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "a missing config file should fail")
}

func TestRuntimeConfig(t *testing.T) {
	w := WasmConfig{MemoryPages: 32, CacheDir: "/cache", MaxInstances: 2}
	rc := w.RuntimeConfig()

	assert.Equal(t, uint32(32), rc.MemoryPages)
	assert.Equal(t, "/cache", rc.CacheDir)
	assert.Equal(t, 2, rc.MaxInstances)
}
