package bootstrap

import "fmt"

// BootstrapError occurs when no engine module could be produced.
type BootstrapError struct {
	Strategy  Strategy
	Reference string
	// NeedsManualBytes is set when the reference could not be fetched and
	// the environment offers no other way to read it. Callers should read
	// the resource themselves and retry with Options.Bytes.
	NeedsManualBytes bool
	Err              error
}

func (e *BootstrapError) Error() string {
	msg := fmt.Sprintf("bootstrap (%s) of %q failed", e.Strategy, e.Reference)
	if e.NeedsManualBytes {
		msg += "; supply the module bytes manually"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}
