package bootstrap

import "fmt"

// Environment describes what the host process can do to acquire a module.
type Environment struct {
	// Name is "browser", "node" or "native".
	Name string
	// CanFetch reports whether a reference can be fetched over the network.
	CanFetch bool
	// HasFS reports whether local files can be read.
	HasFS bool
}

// Strategy picks the acquisition path for the environment.
func (e Environment) Strategy() Strategy {
	if e.CanFetch {
		return AutomaticFetch
	}
	return ManualBytes
}

func (e Environment) String() string {
	return fmt.Sprintf("%s(fetch=%t, fs=%t)", e.Name, e.CanFetch, e.HasFS)
}

// Strategy is the way module bytes are acquired.
type Strategy uint8

const (
	// AutomaticFetch retrieves the module by reference.
	AutomaticFetch Strategy = iota
	// ManualBytes uses bytes supplied by the caller or read from disk.
	ManualBytes
)

func (s Strategy) String() string {
	switch s {
	case AutomaticFetch:
		return "automatic-fetch"
	case ManualBytes:
		return "manual-bytes"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}
