// Package flex is an in-process layout engine running a single-line
// flexbox. It backs layout modules whose wasm artifact does not carry the
// layout ABI, and it is what the binding layer is tested against.
package flex

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

// ErrCycle is returned when a node would become a descendant of itself.
var ErrCycle = errors.New("flex: node cannot be a child of its own descendant")

// ErrDuplicateChild is returned when a children list names a node twice.
var ErrDuplicateChild = errors.New("flex: node listed more than once as a child")

type node struct {
	style    style.Style
	children []engine.NodeID
	parent   engine.NodeID // zero when detached
	dirty    bool
	layout   engine.Layout
}

// Engine implements engine.Engine. It is not safe for concurrent use.
type Engine struct {
	nodes  map[engine.NodeID]*node
	nextID engine.NodeID
	logger *zap.Logger

	// last remembers the most recent pass so an unchanged tree is not
	// laid out twice.
	last struct {
		root      engine.NodeID
		available engine.Size[engine.AvailableSpace]
		valid     bool
	}
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for pass summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		nodes:  make(map[engine.NodeID]*node),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "flex-engine"))
	return e
}

func (e *Engine) get(id engine.NodeID) (*node, error) {
	n, ok := e.nodes[id]
	if !ok {
		return nil, &engine.NodeNotFoundError{Node: id}
	}
	return n, nil
}

// NewNode adds a detached node.
func (e *Engine) NewNode(s style.Style) (engine.NodeID, error) {
	e.nextID++
	id := e.nextID
	e.nodes[id] = &node{style: s, dirty: true}
	return id, nil
}

// SetStyle replaces the style of id and marks it dirty.
func (e *Engine) SetStyle(id engine.NodeID, s style.Style) error {
	n, err := e.get(id)
	if err != nil {
		return err
	}
	n.style = s
	e.markDirty(n)
	return nil
}

// SetChildren replaces the children of id. Children attached elsewhere
// are moved.
func (e *Engine) SetChildren(id engine.NodeID, children []engine.NodeID) error {
	n, err := e.get(id)
	if err != nil {
		return err
	}
	seen := make(map[engine.NodeID]struct{}, len(children))
	for _, c := range children {
		if _, err := e.get(c); err != nil {
			return err
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("set children of %d: node %d: %w", id, c, ErrDuplicateChild)
		}
		seen[c] = struct{}{}
		if e.isAncestor(c, id) {
			return fmt.Errorf("set children of %d: %w", id, ErrCycle)
		}
	}

	for _, c := range n.children {
		e.nodes[c].parent = 0
	}
	n.children = nil
	for _, c := range children {
		e.detach(c)
		e.nodes[c].parent = id
	}
	n.children = append([]engine.NodeID(nil), children...)
	e.markDirty(n)
	return nil
}

// AddChild appends child to parent.
func (e *Engine) AddChild(parent, child engine.NodeID) error {
	p, err := e.get(parent)
	if err != nil {
		return err
	}
	c, err := e.get(child)
	if err != nil {
		return err
	}
	if e.isAncestor(child, parent) {
		return fmt.Errorf("add %d to %d: %w", child, parent, ErrCycle)
	}
	e.detach(child)
	c.parent = parent
	p.children = append(p.children, child)
	e.markDirty(p)
	return nil
}

// Children returns a copy of the children of id.
func (e *Engine) Children(id engine.NodeID) ([]engine.NodeID, error) {
	n, err := e.get(id)
	if err != nil {
		return nil, err
	}
	return append([]engine.NodeID(nil), n.children...), nil
}

// Remove detaches id from its parent and deletes it. Its children become
// detached roots.
func (e *Engine) Remove(id engine.NodeID) error {
	n, err := e.get(id)
	if err != nil {
		return err
	}
	e.detach(id)
	for _, c := range n.children {
		e.nodes[c].parent = 0
	}
	delete(e.nodes, id)
	if e.last.root == id {
		e.last.valid = false
	}
	return nil
}

// MarkDirty flags id and its ancestors for recomputation.
func (e *Engine) MarkDirty(id engine.NodeID) error {
	n, err := e.get(id)
	if err != nil {
		return err
	}
	e.markDirty(n)
	return nil
}

// Layout returns the geometry stored for id by the last pass.
func (e *Engine) Layout(id engine.NodeID) (engine.Layout, error) {
	n, err := e.get(id)
	if err != nil {
		return engine.Layout{}, err
	}
	return n.layout, nil
}

// Dirty reports whether id needs recomputation.
func (e *Engine) Dirty(id engine.NodeID) (bool, error) {
	n, err := e.get(id)
	if err != nil {
		return false, err
	}
	return n.dirty, nil
}

// markDirty walks up until it meets a node that is already dirty. A dirty
// node always has dirty ancestors, so the walk can stop there.
func (e *Engine) markDirty(n *node) {
	for n != nil && !n.dirty {
		n.dirty = true
		n = e.nodes[n.parent]
	}
}

func (e *Engine) detach(id engine.NodeID) {
	c := e.nodes[id]
	if c.parent == 0 {
		return
	}
	p := e.nodes[c.parent]
	kept := p.children[:0]
	for _, sib := range p.children {
		if sib != id {
			kept = append(kept, sib)
		}
	}
	p.children = kept
	c.parent = 0
	e.markDirty(p)
}

// isAncestor reports whether a is id or one of its ancestors.
func (e *Engine) isAncestor(a, id engine.NodeID) bool {
	for cur := id; cur != 0; cur = e.nodes[cur].parent {
		if cur == a {
			return true
		}
	}
	return false
}
