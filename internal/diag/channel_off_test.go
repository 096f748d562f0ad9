//go:build !debug_logging

package diag

import "testing"

func TestDefaultIsOff(t *testing.T) {
	if Active != ChannelOff {
		t.Fatalf("Active = %s, want off", Active)
	}
	if Default() != nil {
		t.Error("Default() should be nil when instrumentation is compiled out")
	}
}
