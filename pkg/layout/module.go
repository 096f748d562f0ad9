// Package layout is the host entry point of the binding layer. A Module
// owns one engine and one node arena; hosts build trees from style
// descriptors, compute layout and read geometry back by handle.
package layout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/arena"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

type (
	// Handle identifies a node of one Module.
	Handle = arena.Handle
	// Descriptor is a host style description.
	Descriptor = style.Descriptor
	// Size is a width/height pair.
	Size[T any] = engine.Size[T]
	// Optional is a length that may be unknown.
	Optional = engine.Optional
	// AvailableSpace is the space offered to a node.
	AvailableSpace = engine.AvailableSpace
)

// ParseHandle parses the text form of a Handle.
func ParseHandle(s string) (Handle, error) { return arena.ParseHandle(s) }

// Space constructors.
var (
	MinContent = AvailableSpace{Kind: engine.MinContent}
	MaxContent = AvailableSpace{Kind: engine.MaxContent}
)

// Definite returns a fixed amount of available space.
func Definite(v float32) AvailableSpace { return engine.DefiniteSpace(v) }

// Known returns a known length.
func Known(v float32) Optional { return engine.Some(v) }

// Constraints merges what a measure callback knows about a leaf into one
// size: a known dimension is definite, anything else keeps the space the
// parent offered.
func Constraints(known Size[Optional], available Size[AvailableSpace]) Size[AvailableSpace] {
	out := available
	if known.Width.Known {
		out.Width = Definite(known.Width.Value)
	}
	if known.Height.Known {
		out.Height = Definite(known.Height.Value)
	}
	return out
}

// MeasureFunc sizes a leaf. ctx is the host data attached with
// SetContext, or nil.
type MeasureFunc func(node Handle, ctx any, known Size[Optional], available Size[AvailableSpace]) Size[float32]

// Result is the computed geometry of a node and its subtree. X and Y are
// relative to the parent's content box.
type Result struct {
	Handle   Handle    `json:"handle"`
	X        float32   `json:"x"`
	Y        float32   `json:"y"`
	Width    float32   `json:"width"`
	Height   float32   `json:"height"`
	Children []*Result `json:"children,omitempty"`
}

// Options configures a Module.
type Options struct {
	// ID names the module in logs.
	ID string

	// Sink receives layout instrumentation. Nil uses the sink selected
	// at build time.
	Sink diag.Sink

	Logger *zap.Logger

	// Release frees engine resources when the module is closed.
	Release func(ctx context.Context) error
}

// Module is an instantiated engine with its own arena. It is not safe for
// concurrent use.
type Module struct {
	arena   *arena.Arena
	sink    diag.Sink
	logger  *zap.Logger
	release func(ctx context.Context) error
	closed  bool
}

// NewModule wraps eng with a fresh arena.
func NewModule(eng engine.Engine, opts Options) *Module {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ID != "" {
		logger = logger.With(zap.String("module_id", opts.ID))
	}
	sink := opts.Sink
	if sink == nil {
		sink = diag.Default()
	}
	return &Module{
		arena:   arena.New(eng, logger),
		sink:    sink,
		logger:  logger.With(zap.String("component", "layout")),
		release: opts.Release,
	}
}

func (m *Module) live() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

// CreateLeaf creates a childless node.
func (m *Module) CreateLeaf(desc Descriptor) (Handle, error) {
	if err := m.live(); err != nil {
		return Handle{}, err
	}
	st, err := style.Encode(desc)
	if err != nil {
		return Handle{}, err
	}
	return m.arena.CreateLeaf(st)
}

// CreateWithChildren creates a node with the given children in order.
func (m *Module) CreateWithChildren(desc Descriptor, children []Handle) (Handle, error) {
	if err := m.live(); err != nil {
		return Handle{}, err
	}
	st, err := style.Encode(desc)
	if err != nil {
		return Handle{}, err
	}
	return m.arena.CreateWithChildren(st, children)
}

// AddChild appends child to parent.
func (m *Module) AddChild(parent, child Handle) error {
	if err := m.live(); err != nil {
		return err
	}
	return m.arena.AddChild(parent, child)
}

// Children returns the children of node in order.
func (m *Module) Children(node Handle) ([]Handle, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	return m.arena.Children(node)
}

// SetStyle replaces the style of node. Nothing changes when desc does not
// encode.
func (m *Module) SetStyle(node Handle, desc Descriptor) error {
	if err := m.live(); err != nil {
		return err
	}
	if _, err := m.arena.Resolve(node); err != nil {
		return err
	}
	st, err := style.Encode(desc)
	if err != nil {
		return err
	}
	return m.arena.SetStyle(node, st)
}

// Style returns the descriptor of node's current style.
func (m *Module) Style(node Handle) (Descriptor, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	st, err := m.arena.Style(node)
	if err != nil {
		return nil, err
	}
	return style.Decode(st), nil
}

// Remove deletes node. Its handle stops resolving immediately.
func (m *Module) Remove(node Handle) error {
	if err := m.live(); err != nil {
		return err
	}
	return m.arena.Remove(node)
}

// SetContext attaches host data to node for measure callbacks.
func (m *Module) SetContext(node Handle, ctx any) error {
	if err := m.live(); err != nil {
		return err
	}
	return m.arena.SetContext(node, ctx)
}

// ClearContext drops the host data of node.
func (m *Module) ClearContext(node Handle) error {
	if err := m.live(); err != nil {
		return err
	}
	return m.arena.ClearContext(node)
}

// ComputeLayout lays out the tree under root in a definite space.
func (m *Module) ComputeLayout(root Handle, width, height float32) (*Result, error) {
	return m.Compute(root, Size[AvailableSpace]{Width: Definite(width), Height: Definite(height)}, nil)
}

// ComputeLayoutWithMeasure is ComputeLayout with leaves sized by measure.
func (m *Module) ComputeLayoutWithMeasure(root Handle, width, height float32, measure MeasureFunc) (*Result, error) {
	return m.Compute(root, Size[AvailableSpace]{Width: Definite(width), Height: Definite(height)}, measure)
}

// Compute lays out the tree under root and returns its geometry. Styles
// are never modified, and unchanged inputs give identical results.
func (m *Module) Compute(root Handle, available Size[AvailableSpace], measure MeasureFunc) (*Result, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	id, err := m.arena.Resolve(root)
	if err != nil {
		return nil, err
	}

	hooks := engine.Hooks{Label: m.label, Sink: m.sink}
	if measure != nil {
		hooks.Measure = func(node engine.NodeID, known Size[Optional], avail Size[AvailableSpace]) Size[float32] {
			h, _ := m.arena.HandleOf(node)
			ctx, _, _ := m.arena.Context(h)
			return measure(h, ctx, known, avail)
		}
	}

	start := time.Now()
	if err := m.arena.Engine().Compute(id, available, hooks); err != nil {
		return nil, err
	}
	result, err := m.collect(root)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Computed layout",
		zap.Stringer("root", root),
		zap.Stringer("available_width", available.Width),
		zap.Stringer("available_height", available.Height),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Layout returns the geometry of node from the last computation, without
// children.
func (m *Module) Layout(node Handle) (*Result, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	id, err := m.arena.Resolve(node)
	if err != nil {
		return nil, err
	}
	l, err := m.arena.Engine().Layout(id)
	if err != nil {
		return nil, err
	}
	return &Result{Handle: node, X: l.X, Y: l.Y, Width: l.Width, Height: l.Height}, nil
}

func (m *Module) collect(node Handle) (*Result, error) {
	r, err := m.Layout(node)
	if err != nil {
		return nil, err
	}
	children, err := m.arena.Children(node)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		cr, err := m.collect(c)
		if err != nil {
			return nil, err
		}
		r.Children = append(r.Children, cr)
	}
	return r, nil
}

func (m *Module) label(id engine.NodeID) string {
	if h, ok := m.arena.HandleOf(id); ok {
		return h.String()
	}
	return "?"
}

// Len returns the number of live nodes.
func (m *Module) Len() int {
	return m.arena.Len()
}

// Close releases the engine. Handles of a closed module never resolve
// anywhere else.
func (m *Module) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.release != nil {
		return m.release(ctx)
	}
	return nil
}
