package wasm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MaxModuleBytes bounds the size of a module read from any source.
const MaxModuleBytes = 64 << 20

// ModuleLoader handles loading and compiling Wasm modules.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource represents a source for Wasm bytecode.
type ModuleSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes(ctx context.Context) ([]byte, error)

	// Name identifies the module. Loaders cache compiled code by name.
	Name() string
}

// FileModuleSource loads Wasm from a file system.
type FileModuleSource struct {
	// Fs defaults to the OS file system.
	Fs   afero.Fs
	Path string
}

// Bytes reads the Wasm file.
func (f *FileModuleSource) Bytes(_ context.Context) ([]byte, error) {
	fs := f.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	info, err := fs.Stat(f.Path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxModuleBytes {
		return nil, fmt.Errorf("module %s is %d bytes, limit is %d", f.Path, info.Size(), MaxModuleBytes)
	}
	return afero.ReadFile(fs, f.Path)
}

// Name returns the file path as the module name.
func (f *FileModuleSource) Name() string {
	return f.Path
}

// MemoryModuleSource loads Wasm from memory.
type MemoryModuleSource struct {
	// ModuleName defaults to a digest of Data.
	ModuleName string
	Data       []byte
}

// Bytes returns the Wasm bytecode.
func (m *MemoryModuleSource) Bytes(_ context.Context) ([]byte, error) {
	return m.Data, nil
}

// Name returns the module name.
func (m *MemoryModuleSource) Name() string {
	if m.ModuleName != "" {
		return m.ModuleName
	}
	sum := sha256.Sum256(m.Data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// FetchModuleSource downloads Wasm over HTTP.
type FetchModuleSource struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Bytes fetches the module. A non-2xx response is a FetchError.
func (f *FetchModuleSource) Bytes(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: f.URL, Err: err}
	}
	req.Header.Set("Accept", "application/wasm")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: f.URL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxModuleBytes+1))
	if err != nil {
		return nil, &FetchError{URL: f.URL, StatusCode: resp.StatusCode, Err: err}
	}
	if len(data) > MaxModuleBytes {
		return nil, &FetchError{URL: f.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", MaxModuleBytes)}
	}
	return data, nil
}

// Name returns the URL as the module name.
func (f *FetchModuleSource) Name() string {
	return f.URL
}

// LoadModule loads a Wasm module from a source.
// Compiles it if not already cached.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	if cached, ok := l.runtime.GetCompiledModule(source.Name()); ok {
		l.logger.Debug("Module cache hit",
			zap.String("module", source.Name()),
		)
		return cached, nil
	}

	wasmBytes, err := source.Bytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", source.Name(), err)
	}

	l.logger.Info("Compiling Wasm module",
		zap.String("module", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	startTime := time.Now()
	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: source.Name(),
			Err:        err,
		}
	}

	compiledModule := &CompiledModule{
		Module:     compiled,
		Name:       source.Name(),
		SizeBytes:  int64(len(wasmBytes)),
		CompiledAt: time.Now().Unix(),
	}
	l.runtime.StoreCompiledModule(compiledModule)

	l.logger.Info("Module compiled successfully",
		zap.String("module", source.Name()),
		zap.Duration("duration", time.Since(startTime)),
		zap.Bool("layout_abi", compiledModule.HasLayoutABI()),
	)

	return compiledModule, nil
}

// LoadModuleFromFile is a convenience function for loading from a file path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, fs afero.Fs, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Fs: fs, Path: path})
}

// LoadModuleFromMemory loads from a byte slice.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}
