// Package bootstrap turns a compiled engine resource into a ready
// layout.Module. The acquisition strategy is chosen once from the host
// environment: fetch the resource by reference, or use bytes the caller
// supplies or reads from disk.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/engine/flex"
	"github.com/woxQAQ/taffy-bridge/internal/wasm"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

// EngineFactory binds an engine to a fresh guest instance.
type EngineFactory func(ctx context.Context, inst *wasm.Instance) (engine.Engine, error)

// ABIEngine drives the layout engine exported by the guest.
func ABIEngine(ctx context.Context, inst *wasm.Instance) (engine.Engine, error) {
	return wasm.NewEngine(ctx, inst)
}

// BuiltinEngine ignores the guest exports and lays out with the built-in
// flex engine. The instance is still created so resource errors surface.
func BuiltinEngine(logger *zap.Logger) EngineFactory {
	return func(context.Context, *wasm.Instance) (engine.Engine, error) {
		return flex.New(flex.WithLogger(logger)), nil
	}
}

// AutoEngine uses the guest ABI when the instance exports it and the
// built-in engine otherwise.
func AutoEngine(logger *zap.Logger) EngineFactory {
	builtin := BuiltinEngine(logger)
	return func(ctx context.Context, inst *wasm.Instance) (engine.Engine, error) {
		if len(inst.MissingExports()) == 0 {
			return ABIEngine(ctx, inst)
		}
		logger.Info("Module has no layout ABI, using built-in engine",
			zap.String("module", inst.Name))
		return builtin(ctx, inst)
	}
}

// Options configures a Bootstrapper.
type Options struct {
	// Reference locates the module: an http(s) or file URL, or a path.
	Reference string

	// Bytes, when set, is used instead of reading Reference under
	// ManualBytes, and as the fallback when a fetch fails.
	Bytes []byte

	// Fs is used for manual reads. Defaults to the OS file system.
	Fs afero.Fs

	// HTTPClient is used for fetches. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Environment overrides detection.
	Environment *Environment

	// Engine defaults to ABIEngine.
	Engine EngineFactory

	// Runtime is shared when set; otherwise the Bootstrapper owns one
	// built from RuntimeConfig.
	Runtime       *wasm.Runtime
	RuntimeConfig *wasm.RuntimeConfig

	// Sink receives layout instrumentation of every produced module.
	Sink diag.Sink

	Logger *zap.Logger
}

// Bootstrapper produces engine modules. Each call to Bootstrap yields an
// independent module with its own instance and arena.
type Bootstrapper struct {
	opts     Options
	env      Environment
	strategy Strategy

	runtime    *wasm.Runtime
	ownRuntime bool
	loader     *wasm.ModuleLoader
	instances  *wasm.InstanceManager
	logger     *zap.Logger

	// compiles collapses concurrent acquisitions into one.
	compiles singleflight.Group
	name     atomic.Pointer[string]
}

// New detects the environment, resolves the strategy and prepares the
// runtime.
func New(ctx context.Context, opts Options) (*Bootstrapper, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Engine == nil {
		opts.Engine = ABIEngine
	}

	env := Detect()
	if opts.Environment != nil {
		env = *opts.Environment
	}

	b := &Bootstrapper{
		opts:     opts,
		env:      env,
		strategy: env.Strategy(),
		runtime:  opts.Runtime,
		logger:   logger.With(zap.String("component", "bootstrap")),
	}
	if b.runtime == nil {
		rt, err := wasm.NewRuntime(ctx, logger, opts.RuntimeConfig)
		if err != nil {
			return nil, fmt.Errorf("create runtime: %w", err)
		}
		b.runtime = rt
		b.ownRuntime = true
	}
	b.loader = wasm.NewModuleLoader(b.runtime, logger)
	b.instances = wasm.NewInstanceManager(b.runtime, logger)

	b.logger.Info("Bootstrap strategy resolved",
		zap.Stringer("environment", env),
		zap.Stringer("strategy", b.strategy),
		zap.String("reference", opts.Reference),
	)
	return b, nil
}

// Environment returns the detected or configured environment.
func (b *Bootstrapper) Environment() Environment { return b.env }

// Strategy returns the acquisition strategy.
func (b *Bootstrapper) Strategy() Strategy { return b.strategy }

// Runtime returns the wasm runtime used for instantiation.
func (b *Bootstrapper) Runtime() *wasm.Runtime { return b.runtime }

// Compile acquires and compiles the module without instantiating it.
// Later calls reuse the compiled module.
func (b *Bootstrapper) Compile(ctx context.Context) (*wasm.CompiledModule, error) {
	if compiled, ok := b.compiled(); ok {
		return compiled, nil
	}

	v, err, _ := b.compiles.Do("compile", func() (any, error) {
		if compiled, ok := b.compiled(); ok {
			return compiled, nil
		}
		source, err := b.acquire(ctx)
		if err != nil {
			return nil, err
		}
		compiled, err := b.loader.LoadModule(ctx, source)
		if err != nil {
			return nil, &BootstrapError{Strategy: b.strategy, Reference: b.opts.Reference, Err: err}
		}
		b.name.Store(&compiled.Name)
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*wasm.CompiledModule), nil
}

func (b *Bootstrapper) compiled() (*wasm.CompiledModule, bool) {
	name := b.name.Load()
	if name == nil {
		return nil, false
	}
	return b.runtime.GetCompiledModule(*name)
}

// Bootstrap acquires, compiles and instantiates the module and returns a
// fresh layout.Module bound to it.
func (b *Bootstrapper) Bootstrap(ctx context.Context) (*layout.Module, error) {
	if b.runtime.IsClosed() {
		return nil, &BootstrapError{Strategy: b.strategy, Reference: b.opts.Reference, Err: errors.New("runtime is closed")}
	}
	compiled, err := b.Compile(ctx)
	if err != nil {
		return nil, err
	}

	inst, err := b.instances.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: compiled.Name})
	if err != nil {
		return nil, &BootstrapError{Strategy: b.strategy, Reference: b.opts.Reference, Err: err}
	}
	eng, err := b.opts.Engine(ctx, inst)
	if err != nil {
		_ = inst.Close(ctx)
		return nil, &BootstrapError{Strategy: b.strategy, Reference: b.opts.Reference, Err: err}
	}

	b.logger.Info("Engine module ready",
		zap.String("module", compiled.Name),
		zap.String("instance_id", inst.ID),
		zap.String("engine", fmt.Sprintf("%T", eng)),
	)

	return layout.NewModule(eng, layout.Options{
		ID:     inst.ID,
		Sink:   b.opts.Sink,
		Logger: b.logger,
		Release: func(ctx context.Context) error {
			var errs []error
			if c, ok := eng.(interface{ Close() error }); ok {
				errs = append(errs, c.Close())
			}
			errs = append(errs, inst.Close(ctx))
			return errors.Join(errs...)
		},
	}), nil
}

// acquire returns the source of the module bytes for the strategy. A
// failed fetch falls back once to manual bytes when the environment allows
// it.
func (b *Bootstrapper) acquire(ctx context.Context) (wasm.ModuleSource, error) {
	if b.strategy == ManualBytes {
		return b.manual(ctx, nil)
	}

	fetch := &wasm.FetchModuleSource{URL: b.opts.Reference, Client: b.opts.HTTPClient}
	data, err := fetch.Bytes(ctx)
	if err == nil {
		return &wasm.MemoryModuleSource{ModuleName: fetch.Name(), Data: data}, nil
	}
	if ctx.Err() != nil {
		return nil, &BootstrapError{Strategy: b.strategy, Reference: b.opts.Reference, Err: err}
	}

	b.logger.Warn("Fetch failed, falling back to manual bytes",
		zap.String("reference", b.opts.Reference),
		zap.Error(err),
	)
	return b.manual(ctx, err)
}

func (b *Bootstrapper) manual(ctx context.Context, fetchErr error) (wasm.ModuleSource, error) {
	if len(b.opts.Bytes) > 0 {
		return &wasm.MemoryModuleSource{Data: b.opts.Bytes}, nil
	}
	path := localPath(b.opts.Reference)
	if !b.env.HasFS || path == "" {
		err := fetchErr
		if err == nil {
			err = errors.New("no module bytes supplied")
		}
		return nil, &BootstrapError{
			Strategy:         b.strategy,
			Reference:        b.opts.Reference,
			NeedsManualBytes: true,
			Err:              err,
		}
	}
	src := &wasm.FileModuleSource{Fs: b.opts.Fs, Path: path}
	data, err := src.Bytes(ctx)
	if err != nil {
		return nil, &BootstrapError{
			Strategy:  b.strategy,
			Reference: b.opts.Reference,
			Err:       errors.Join(fetchErr, err),
		}
	}
	return &wasm.MemoryModuleSource{ModuleName: path, Data: data}, nil
}

// localPath maps a reference to a file path, or "" for remote references.
func localPath(ref string) string {
	switch {
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ""
	default:
		return ref
	}
}

// Close closes the runtime if the Bootstrapper created it. Modules already
// produced stop working.
func (b *Bootstrapper) Close(ctx context.Context) error {
	if !b.ownRuntime {
		return nil
	}
	return b.runtime.Close(ctx)
}
