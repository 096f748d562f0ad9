package protocol

import (
	"errors"

	"github.com/woxQAQ/taffy-bridge/internal/arena"
	"github.com/woxQAQ/taffy-bridge/internal/bootstrap"
	"github.com/woxQAQ/taffy-bridge/internal/engine/flex"
	"github.com/woxQAQ/taffy-bridge/internal/style"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

// NodeLayout is the geometry of a node as reported to hosts.
type NodeLayout struct {
	ID       string        `json:"id,omitempty"`
	Handle   string        `json:"handle"`
	X        float32       `json:"x"`
	Y        float32       `json:"y"`
	Width    float32       `json:"width"`
	Height   float32       `json:"height"`
	Children []*NodeLayout `json:"children,omitempty"`
}

// NewNodeLayout converts r, naming nodes found in ids.
func NewNodeLayout(r *layout.Result, ids map[layout.Handle]string) *NodeLayout {
	out := &NodeLayout{
		ID:     ids[r.Handle],
		Handle: r.Handle.String(),
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
	}
	for _, c := range r.Children {
		out.Children = append(out.Children, NewNodeLayout(c, ids))
	}
	return out
}

// Error kinds reported to hosts.
const (
	KindMarshal        = "marshal"
	KindUnknownHandle  = "unknown-handle"
	KindNotInitialized = "not-initialized"
	KindBootstrap      = "bootstrap"
	KindInvalidTree    = "invalid-tree"
	KindInternal       = "internal"
)

// ErrorPayload is the host-facing form of an error.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Field is the offending style field of a marshal error.
	Field string `json:"field,omitempty"`
	// Handle is the unresolved handle of an unknown-handle error.
	Handle string `json:"handle,omitempty"`
	// NeedsManualBytes asks the host to supply the module bytes.
	NeedsManualBytes bool `json:"needsManualBytes,omitempty"`
}

// NewErrorPayload classifies err.
func NewErrorPayload(err error) *ErrorPayload {
	p := &ErrorPayload{Kind: KindInternal, Message: err.Error()}

	var merr *style.MarshalError
	var uerr *arena.UnknownHandleError
	var nerr *layout.NotInitializedError
	var berr *bootstrap.BootstrapError
	var derr *arena.DuplicateChildError
	switch {
	case errors.As(err, &merr):
		p.Kind = KindMarshal
		p.Field = merr.Field
	case errors.As(err, &uerr):
		p.Kind = KindUnknownHandle
		p.Handle = uerr.Handle.String()
	case errors.As(err, &nerr):
		p.Kind = KindNotInitialized
	case errors.As(err, &berr):
		p.Kind = KindBootstrap
		p.NeedsManualBytes = berr.NeedsManualBytes
	case errors.As(err, &derr):
		p.Kind = KindInvalidTree
		p.Handle = derr.Child.String()
	case errors.Is(err, flex.ErrCycle), errors.Is(err, flex.ErrDuplicateChild):
		p.Kind = KindInvalidTree
	}
	return p
}

// Marshal encodes v as JSON, indented when pretty is set.
func Marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
