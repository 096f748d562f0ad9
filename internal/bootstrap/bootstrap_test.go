package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/taffy-bridge/internal/arena"
	"github.com/woxQAQ/taffy-bridge/internal/wasm"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

// minimalModule is the smallest valid wasm binary: magic and version.
var minimalModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

var (
	native  = Environment{Name: "native", CanFetch: true, HasFS: true}
	browser = Environment{Name: "browser", CanFetch: true}
	sandbox = Environment{Name: "sandbox"}
)

func newTestBootstrapper(t *testing.T, opts Options) *Bootstrapper {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	if opts.Engine == nil {
		opts.Engine = BuiltinEngine(opts.Logger)
	}
	b, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func mustBootstrap(t *testing.T, b *Bootstrapper) *layout.Module {
	t.Helper()
	m, err := b.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func points(v float64) map[string]any {
	return map[string]any{"unit": "points", "value": v}
}

func TestEnvironmentStrategy(t *testing.T) {
	tests := map[string]struct {
		env  Environment
		want Strategy
	}{
		"native":  {env: native, want: AutomaticFetch},
		"browser": {env: browser, want: AutomaticFetch},
		"sandbox": {env: sandbox, want: ManualBytes},
		"fs only": {env: Environment{Name: "node", HasFS: true}, want: ManualBytes},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.env.Strategy(); got != tt.want {
				t.Errorf("Strategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectNative(t *testing.T) {
	env := Detect()
	if env.Name != "native" || !env.CanFetch || !env.HasFS {
		t.Errorf("Detect() = %s, want native with fetch and fs", env)
	}
}

func TestLocalPath(t *testing.T) {
	tests := map[string]string{
		"file:///opt/taffy.wasm":      "/opt/taffy.wasm",
		"./taffy.wasm":                "./taffy.wasm",
		"http://example.test/a.wasm":  "",
		"https://example.test/a.wasm": "",
	}
	for ref, want := range tests {
		if got := localPath(ref); got != want {
			t.Errorf("localPath(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestAutomaticFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(minimalModule)
	}))
	defer server.Close()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	defer client.CloseIdleConnections()

	b := newTestBootstrapper(t, Options{
		Reference:   server.URL + "/taffy.wasm",
		HTTPClient:  client,
		Environment: &native,
	})
	if b.Strategy() != AutomaticFetch {
		t.Fatalf("Strategy() = %s, want automatic-fetch", b.Strategy())
	}

	m := mustBootstrap(t, b)
	root, err := m.CreateLeaf(layout.Descriptor{"display": "flex", "width": points(100), "height": points(100)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ComputeLayout(root, 200, 200)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 100 || got.Height != 100 {
		t.Errorf("size = %vx%v, want 100x100", got.Width, got.Height)
	}
}

func TestFetchFallsBackToFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/srv/taffy.wasm", minimalModule, 0o644); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zap.WarnLevel)

	b := newTestBootstrapper(t, Options{
		Reference:   "file:///srv/taffy.wasm",
		Fs:          fs,
		Environment: &native,
		Logger:      zap.New(core),
	})
	m := mustBootstrap(t, b)

	root, err := m.CreateLeaf(layout.Descriptor{"display": "flex"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ComputeLayout(root, 200, 200)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 0 || got.Height != 0 {
		t.Errorf("size = %vx%v, want 0x0", got.Width, got.Height)
	}

	if n := logs.FilterMessage("Fetch failed, falling back to manual bytes").Len(); n != 1 {
		t.Errorf("fallback warnings = %d, want 1", n)
	}
}

func TestFetchWithoutFileSystemNeedsBytes(t *testing.T) {
	b := newTestBootstrapper(t, Options{
		Reference:   "file:///srv/taffy.wasm",
		Environment: &browser,
	})

	_, err := b.Bootstrap(context.Background())
	var berr *BootstrapError
	if !errors.As(err, &berr) {
		t.Fatalf("Bootstrap() = %v, want BootstrapError", err)
	}
	if !berr.NeedsManualBytes || berr.Strategy != AutomaticFetch {
		t.Errorf("BootstrapError = %+v, want NeedsManualBytes under automatic-fetch", berr)
	}
	var ferr *wasm.FetchError
	if !errors.As(err, &ferr) {
		t.Errorf("error should wrap the FetchError, got %v", err)
	}

	retry := newTestBootstrapper(t, Options{
		Reference:   "file:///srv/taffy.wasm",
		Bytes:       minimalModule,
		Environment: &browser,
	})
	mustBootstrap(t, retry)
}

func TestFetchCancelled(t *testing.T) {
	b := newTestBootstrapper(t, Options{
		Reference:   "http://127.0.0.1:1/taffy.wasm",
		Bytes:       minimalModule,
		Environment: &native,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Bootstrap(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Bootstrap(cancelled) = %v, want context.Canceled", err)
	}
}

func TestManualBytes(t *testing.T) {
	b := newTestBootstrapper(t, Options{Bytes: minimalModule, Environment: &sandbox})
	if b.Strategy() != ManualBytes {
		t.Fatalf("Strategy() = %s, want manual-bytes", b.Strategy())
	}
	mustBootstrap(t, b)

	empty := newTestBootstrapper(t, Options{Reference: "taffy.wasm", Environment: &sandbox})
	_, err := empty.Bootstrap(context.Background())
	var berr *BootstrapError
	if !errors.As(err, &berr) || !berr.NeedsManualBytes {
		t.Errorf("Bootstrap() without bytes = %v, want NeedsManualBytes", err)
	}
}

func TestManualBytesFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "engine/taffy.wasm", minimalModule, 0o644); err != nil {
		t.Fatal(err)
	}
	env := Environment{Name: "node", HasFS: true}
	b := newTestBootstrapper(t, Options{Reference: "engine/taffy.wasm", Fs: fs, Environment: &env})
	mustBootstrap(t, b)

	missing := newTestBootstrapper(t, Options{Reference: "engine/gone.wasm", Fs: fs, Environment: &env})
	_, err := missing.Bootstrap(context.Background())
	var berr *BootstrapError
	if !errors.As(err, &berr) || berr.NeedsManualBytes {
		t.Errorf("Bootstrap() of missing file = %v, want a plain BootstrapError", err)
	}
}

func TestBootstrapsAreIndependent(t *testing.T) {
	b := newTestBootstrapper(t, Options{Bytes: minimalModule, Environment: &sandbox})
	first := mustBootstrap(t, b)
	second := mustBootstrap(t, b)

	if got := b.Runtime().ActiveInstances(); got != 2 {
		t.Errorf("ActiveInstances() = %d, want 2", got)
	}

	h, err := first.CreateLeaf(layout.Descriptor{"display": "flex"})
	if err != nil {
		t.Fatal(err)
	}
	if second.Len() != 0 {
		t.Errorf("second module has %d nodes, want 0", second.Len())
	}
	if err := first.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := b.Runtime().ActiveInstances(); got != 1 {
		t.Errorf("ActiveInstances() after Close = %d, want 1", got)
	}

	var uerr *arena.UnknownHandleError
	err = second.SetStyle(h, layout.Descriptor{"display": "flex"})
	if !errors.As(err, &uerr) {
		t.Errorf("SetStyle(discarded handle) = %v, want UnknownHandleError", err)
	}
}

func TestDefaultEngineRequiresABI(t *testing.T) {
	b, err := New(context.Background(), Options{
		Bytes:       minimalModule,
		Environment: &sandbox,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close(context.Background())

	_, err = b.Bootstrap(context.Background())
	var missing *wasm.MissingABIError
	if !errors.As(err, &missing) {
		t.Fatalf("Bootstrap() = %v, want MissingABIError", err)
	}
	if len(missing.Missing) == 0 {
		t.Error("MissingABIError should list the missing exports")
	}
	if got := b.Runtime().ActiveInstances(); got != 0 {
		t.Errorf("failed bootstrap left %d instances", got)
	}
}

func TestAutoEngineFallsBackToBuiltin(t *testing.T) {
	logger := zaptest.NewLogger(t)
	b := newTestBootstrapper(t, Options{
		Bytes:       minimalModule,
		Environment: &sandbox,
		Engine:      AutoEngine(logger),
		Logger:      logger,
	})
	m := mustBootstrap(t, b)

	child, _ := m.CreateLeaf(layout.Descriptor{"display": "flex", "flexGrow": 1.0})
	root, err := m.CreateWithChildren(layout.Descriptor{"display": "flex", "width": points(50), "height": points(20)}, []layout.Handle{child})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.ComputeLayout(root, 50, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Children) != 1 || got.Children[0].Width != 50 {
		t.Errorf("child geometry = %+v, want width 50", got.Children)
	}
}

func TestSharedRuntimeOutlivesBootstrapper(t *testing.T) {
	ctx := context.Background()
	rt, err := wasm.NewRuntime(ctx, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	b := newTestBootstrapper(t, Options{Bytes: minimalModule, Environment: &sandbox, Runtime: rt})
	mustBootstrap(t, b)
	if err := b.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if rt.IsClosed() {
		t.Error("Close must not close a shared runtime")
	}
}

func TestConcurrentBootstrapsFetchOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write(minimalModule)
	}))
	defer server.Close()

	b := newTestBootstrapper(t, Options{Reference: server.URL + "/taffy.wasm", Environment: &native})

	modules := make([]*layout.Module, 4)
	var g errgroup.Group
	for i := range modules {
		g.Go(func() error {
			m, err := b.Bootstrap(context.Background())
			modules[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	for _, m := range modules {
		_ = m.Close(context.Background())
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("module fetched %d times, want 1", got)
	}
}
