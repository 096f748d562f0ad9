// Package engine defines the capability the binding layer drives to
// compute layout. Implementations own the node tree and the computed
// geometry; callers only hold NodeIDs.
package engine

import (
	"fmt"

	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

// NodeID identifies a node inside one engine instance.
type NodeID uint64

// Size is a width/height pair.
type Size[T any] struct {
	Width  T
	Height T
}

// Optional is a length that may be unknown.
type Optional struct {
	Value float32
	Known bool
}

// Some returns a known length.
func Some(v float32) Optional { return Optional{Value: v, Known: true} }

// None is the unknown length.
var None = Optional{}

func (o Optional) String() string {
	if !o.Known {
		return "none"
	}
	return fmt.Sprintf("%g", o.Value)
}

// AvailableSpaceKind classifies the space offered to a node.
type AvailableSpaceKind uint8

const (
	Definite AvailableSpaceKind = iota
	MinContent
	MaxContent
)

// AvailableSpace is the amount of space a node may grow into.
type AvailableSpace struct {
	Kind  AvailableSpaceKind
	Value float32
}

// DefiniteSpace returns a definite amount of available space.
func DefiniteSpace(v float32) AvailableSpace {
	return AvailableSpace{Kind: Definite, Value: v}
}

// IsDefinite reports whether the space is a fixed amount.
func (a AvailableSpace) IsDefinite() bool {
	return a.Kind == Definite
}

func (a AvailableSpace) String() string {
	switch a.Kind {
	case MinContent:
		return "min-content"
	case MaxContent:
		return "max-content"
	default:
		return fmt.Sprintf("%g", a.Value)
	}
}

// Layout is the computed geometry of one node. X and Y are relative to
// the parent's content box.
type Layout struct {
	X, Y          float32
	Width, Height float32
}

// MeasureFunc sizes a leaf from its known dimensions and available space.
type MeasureFunc func(node NodeID, known Size[Optional], available Size[AvailableSpace]) Size[float32]

// Hooks carries per-computation callbacks.
type Hooks struct {
	// Measure, when set, is called for every leaf.
	Measure MeasureFunc

	// Label renders a node for diagnostic output.
	Label func(NodeID) string

	// Sink receives instrumentation events. Nil disables them.
	Sink diag.Sink
}

// Enabled reports whether events go anywhere. Emission sites that format
// fields check it first.
func (h Hooks) Enabled() bool { return h.Sink != nil }

// Emit sends an event for node through h.Sink.
func (h Hooks) Emit(node NodeID, name string, fields ...diag.Field) {
	if h.Sink == nil {
		return
	}
	label := fmt.Sprint(uint64(node))
	if h.Label != nil {
		label = h.Label(node)
	}
	diag.Emit(h.Sink, diag.Event{Node: label, Name: name, Fields: fields})
}

// Engine is a layout engine holding a tree of styled nodes.
type Engine interface {
	NewNode(s style.Style) (NodeID, error)
	SetStyle(id NodeID, s style.Style) error
	SetChildren(id NodeID, children []NodeID) error
	AddChild(parent, child NodeID) error
	Children(id NodeID) ([]NodeID, error)
	Remove(id NodeID) error
	MarkDirty(id NodeID) error
	Compute(root NodeID, available Size[AvailableSpace], hooks Hooks) error
	Layout(id NodeID) (Layout, error)
}

// NodeNotFoundError occurs when an engine is asked about a node it does not hold.
type NodeNotFoundError struct {
	Node NodeID
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("engine node %d not found", e.Node)
}
