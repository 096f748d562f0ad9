//go:build !(js && wasm)

package diag

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleSinkUsesProcessLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	sink := NewConsoleSink(DefaultMaxLineBytes)
	sink.WriteLine(Event{Node: "1.1.1", Name: "compute", Fields: []Field{F("width", float32(10))}})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if entries[0].Message != "[1.1.1] compute width=10" {
		t.Errorf("Message = %q", entries[0].Message)
	}
	if entries[0].LoggerName != "console" {
		t.Errorf("LoggerName = %q, want console", entries[0].LoggerName)
	}
}
