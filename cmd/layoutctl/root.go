package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/bootstrap"
	"github.com/woxQAQ/taffy-bridge/internal/config"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine/flex"
	"github.com/woxQAQ/taffy-bridge/internal/observability"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

// app carries state shared by subcommands.
type app struct {
	configPath string
	logLevel   string
	module     string
	engine     string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "layoutctl",
		Short:         "Compute and inspect taffy layouts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("layoutctl %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVarP(&a.module, "module", "m", "", "engine module reference (URL or path)")
	flags.StringVarP(&a.engine, "engine", "e", "", "engine: auto, wasm or builtin")

	root.AddCommand(newComputeCmd(a))
	root.AddCommand(newProbeCmd(a))
	root.AddCommand(newStyleCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.module != "" {
		cfg.Module = a.module
	}
	if a.engine != "" {
		cfg.Engine = a.engine
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = observability.InitializeLogger(cfg.Log)
	return nil
}

func (a *app) sink() diag.Sink {
	return diag.New(diag.Active, a.cfg.Diagnostics.MaxLineBytes)
}

func (a *app) bootstrapper(ctx context.Context) (*bootstrap.Bootstrapper, error) {
	factory := bootstrap.ABIEngine
	if a.cfg.Engine == config.EngineAuto {
		factory = bootstrap.AutoEngine(a.logger)
	}
	return bootstrap.New(ctx, bootstrap.Options{
		Reference:     a.cfg.Module,
		Engine:        factory,
		RuntimeConfig: a.cfg.Wasm.RuntimeConfig(),
		Sink:          a.sink(),
		Logger:        a.logger,
	})
}

// openModule returns a ready module and a function releasing it.
func (a *app) openModule(ctx context.Context) (*layout.Module, func(), error) {
	if a.cfg.Engine == config.EngineBuiltin {
		m := layout.NewModule(flex.New(flex.WithLogger(a.logger)), layout.Options{
			ID:     "builtin",
			Sink:   a.sink(),
			Logger: a.logger,
		})
		return m, func() { _ = m.Close(ctx) }, nil
	}

	b, err := a.bootstrapper(ctx)
	if err != nil {
		return nil, nil, err
	}
	m, err := b.Bootstrap(ctx)
	if err != nil {
		_ = b.Close(ctx)
		return nil, nil, err
	}
	return m, func() {
		_ = m.Close(ctx)
		_ = b.Close(ctx)
	}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skips configuration loading.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "layoutctl %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
