//go:build js && wasm

// Command layoutwasm exposes the layout facade to JavaScript as the global
// taffyBridge object. Every method returns {value} or {error}, where error
// carries the kind and message of the failure. init returns a Promise.
package main

import (
	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/bootstrap"
	"github.com/woxQAQ/taffy-bridge/internal/config"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/observability"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

func main() {
	cfg := config.LogConfig{Level: "warn", Format: "json", Name: "taffy"}
	logger := observability.InitializeLogger(cfg)

	b := &bridge{
		facade: &layout.Facade{},
		sink:   diag.Default(),
		logger: logger.With(zap.String("component", "js-bridge")),
	}
	b.register()

	// Callbacks run on the JavaScript event loop.
	select {}
}

// bootstrapOptions builds the options for one init call.
func (b *bridge) bootstrapOptions(reference string, data []byte) bootstrap.Options {
	return bootstrap.Options{
		Reference: reference,
		Bytes:     data,
		Engine:    bootstrap.AutoEngine(b.logger),
		Sink:      b.sink,
		Logger:    b.logger,
	}
}
