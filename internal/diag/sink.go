package diag

import (
	"io"
	"os"
	"sync"
)

func stdout() io.Writer { return os.Stdout }

// StreamSink writes one formatted line per event to a byte stream.
type StreamSink struct {
	mu  sync.Mutex
	w   io.Writer
	max int
}

// NewStreamSink creates a sink writing to w.
func NewStreamSink(w io.Writer, maxLineBytes int) *StreamSink {
	return &StreamSink{w: w, max: maxLineBytes}
}

// WriteLine formats e and writes it. Write errors are dropped.
func (s *StreamSink) WriteLine(e Event) {
	line := Format(e, s.max) + "\n"
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line)
}

// ConsoleSink forwards lines to the embedding host's console facility.
type ConsoleSink struct {
	log func(string)
	max int
}

// NewConsoleSink creates a sink bound to the host console.
func NewConsoleSink(maxLineBytes int) *ConsoleSink {
	return &ConsoleSink{log: hostConsole(), max: maxLineBytes}
}

// WriteLine formats e and hands it to the host console.
func (s *ConsoleSink) WriteLine(e Event) {
	s.log(Format(e, s.max))
}

// Recorder keeps every event it receives. It is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewRecorder creates an empty Recorder using the default line limit.
func NewRecorder() *Recorder {
	return &Recorder{max: DefaultMaxLineBytes}
}

// WriteLine records e.
func (r *Recorder) WriteLine(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fields := make([]Field, len(e.Fields))
	copy(fields, e.Fields)
	e.Fields = fields
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Lines returns the recorded events in their formatted form.
func (r *Recorder) Lines() []string {
	events := r.Events()
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = Format(e, r.max)
	}
	return lines
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
