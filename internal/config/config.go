package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/woxQAQ/taffy-bridge/internal/wasm"
)

// Engine selection values.
const (
	EngineAuto    = "auto"
	EngineWasm    = "wasm"
	EngineBuiltin = "builtin"
)

// EnvPrefix prefixes environment overrides, e.g. TAFFY_WASM_MEMORY_PAGES.
const EnvPrefix = "TAFFY"

type Config struct {
	// Module is the engine resource reference: a URL or a path.
	Module      string            `mapstructure:"module"`
	Engine      string            `mapstructure:"engine"`
	Log         LogConfig         `mapstructure:"log"`
	Wasm        WasmConfig        `mapstructure:"wasm"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Name   string `mapstructure:"name"`
	// File enables a rotated JSON log file next to the console output.
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Compilation cache directory. Empty disables the cache.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
}

// DiagnosticsConfig tunes the build-selected diagnostic channel.
type DiagnosticsConfig struct {
	MaxLineBytes int `mapstructure:"max_line_bytes"`
}

// RuntimeConfig converts w for the wasm runtime.
func (w WasmConfig) RuntimeConfig() *wasm.RuntimeConfig {
	return &wasm.RuntimeConfig{
		MemoryPages:  w.MemoryPages,
		CacheDir:     w.CacheDir,
		MaxInstances: w.MaxInstances,
	}
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("module", "taffy_layout.wasm")
	v.SetDefault("engine", EngineAuto)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.name", "taffy")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)

	v.SetDefault("diagnostics.max_line_bytes", 1024)
}

// Load reads the configuration from defaults, the optional file at
// configPath and TAFFY_ environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineAuto, EngineWasm, EngineBuiltin:
	default:
		return fmt.Errorf("engine must be one of %s, %s, %s; got %q", EngineAuto, EngineWasm, EngineBuiltin, c.Engine)
	}
	if c.Wasm.MemoryPages > 65536 {
		return fmt.Errorf("wasm.memory_pages %d exceeds the 4GiB address space", c.Wasm.MemoryPages)
	}
	if c.Wasm.MaxInstances < 0 {
		return fmt.Errorf("wasm.max_instances must not be negative")
	}
	if c.Diagnostics.MaxLineBytes < 0 {
		return fmt.Errorf("diagnostics.max_line_bytes must not be negative")
	}
	return nil
}
