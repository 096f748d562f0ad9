// Package diag routes layout instrumentation to a build-selected channel.
//
// The channel is fixed when the binary is built:
//
//	go build                                        # off, instrumentation compiled out
//	go build -tags debug_logging,browser_console    # host console (console.log / zap)
//	go build -tags debug_logging,node_console       # process stdout
//
// browser_console and node_console are mutually exclusive. Code that emits
// diagnostics receives a Sink as a capability; a nil Sink means off.
package diag

import "fmt"

// Channel names an output destination for diagnostic lines.
type Channel uint8

const (
	ChannelOff Channel = iota
	ChannelHostConsole
	ChannelNativeStream
)

func (c Channel) String() string {
	switch c {
	case ChannelOff:
		return "off"
	case ChannelHostConsole:
		return "host-console"
	case ChannelNativeStream:
		return "native-stream"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// DefaultMaxLineBytes bounds a single diagnostic line.
const DefaultMaxLineBytes = 1024

// Field is one key/value pair of an event.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Event is one instrumentation record emitted during layout.
type Event struct {
	// Node is the host-visible handle of the originating node.
	Node   string
	Name   string
	Fields []Field
}

// Sink accepts diagnostic lines. Implementations must not fail: malformed
// text is escaped or truncated, never reported back.
type Sink interface {
	WriteLine(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// WriteLine calls f(e).
func (f SinkFunc) WriteLine(e Event) { f(e) }

// Emit writes e to s. A nil sink drops the event, and a panicking sink is
// contained so instrumentation never affects a computation.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	defer func() { _ = recover() }()
	s.WriteLine(e)
}

// Default returns the sink selected at build time, or nil when
// instrumentation is compiled out.
func Default() Sink {
	return New(Active, DefaultMaxLineBytes)
}

// New builds the sink for channel c.
func New(c Channel, maxLineBytes int) Sink {
	switch c {
	case ChannelHostConsole:
		return NewConsoleSink(maxLineBytes)
	case ChannelNativeStream:
		return NewStreamSink(stdout(), maxLineBytes)
	default:
		return nil
	}
}

// Tee duplicates events to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return SinkFunc(func(e Event) {
		for _, s := range live {
			Emit(s, e)
		}
	})
}
