package wasm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/taffy-bridge/api/wasm"
)

// Runtime manages the wazero runtime lifecycle.
// One Runtime serves every layout module of a process.
type Runtime struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache

	// Compiled module cache (key: source name -> value: *CompiledModule)
	modules sync.Map

	// Active instances (key: instance ID -> value: *Instance)
	instances sync.Map
	active    atomic.Int32

	// Diagnostic routes of active instances (key: instance ID -> value: *route)
	routes sync.Map

	host   *HostFunctions
	config *RuntimeConfig
	logger *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit for each module instance, in 64KiB pages.
	MemoryPages uint32

	// Directory for wazero's persistent compilation cache. Empty keeps
	// compiled code in memory only.
	CacheDir string

	// Maximum number of instances alive at once. Zero means no limit.
	MaxInstances int
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name       string
	SizeBytes  int64
	CompiledAt int64
}

// MissingExports returns the names the module does not export.
func (c *CompiledModule) MissingExports(names ...string) []string {
	exported := c.Module.ExportedFunctions()
	var missing []string
	for _, n := range names {
		if _, ok := exported[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// HasLayoutABI reports whether the module carries every engine export.
func (c *CompiledModule) HasLayoutABI() bool {
	return len(c.MissingExports(abi.RequiredExports...)) == 0
}

// NewRuntime creates a wazero runtime and links the host module.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := wazero.NewRuntimeConfig()
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	var cache wazero.CompilationCache
	if config.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", config.CacheDir, err)
		}
		cache = c
		rc = rc.WithCompilationCache(cache)
	}

	runtime := &Runtime{
		runtime: wazero.NewRuntimeWithConfig(ctx, rc),
		cache:   cache,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}
	runtime.host = newHostFunctions(runtime, logger)

	if err := runtime.host.instantiate(ctx); err != nil {
		_ = runtime.runtime.Close(ctx)
		return nil, err
	}

	runtime.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MB
		CacheDir:     "",
		MaxInstances: 100,
	}
}

// Close shuts down every instance and the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		r.instances.Range(func(key, value any) bool {
			if inst, ok := value.(*Instance); ok {
				if closeErr := inst.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			return true
		})

		err = r.runtime.Close(ctx)
		if r.cache != nil {
			if cerr := r.cache.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}

		close(r.closed)
		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module from cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// GetInstance retrieves an active instance.
func (r *Runtime) GetInstance(instanceID string) (*Instance, bool) {
	if val, ok := r.instances.Load(instanceID); ok {
		return val.(*Instance), true
	}
	return nil, false
}

// reserve claims an instance slot under MaxInstances.
func (r *Runtime) reserve() error {
	n := int(r.active.Add(1))
	if limit := r.config.MaxInstances; limit > 0 && n > limit {
		r.active.Add(-1)
		return &InstanceLimitError{Limit: limit}
	}
	return nil
}

func (r *Runtime) release() {
	r.active.Add(-1)
}

func (r *Runtime) untrackInstance(instanceID string) {
	if _, loaded := r.instances.LoadAndDelete(instanceID); loaded {
		r.release()
	}
	r.routes.Delete(instanceID)
}

// ActiveInstances returns the number of live instances.
func (r *Runtime) ActiveInstances() int {
	return int(r.active.Load())
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
