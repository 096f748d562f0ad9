// Package arena maps host-visible node handles to engine nodes.
//
// Handles carry the arena id and a slot generation. Removing a node bumps
// its slot generation, so a stale handle keeps failing after the slot is
// reused, and a handle from another arena never resolves.
package arena

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

var lastArenaID atomic.Uint32

type slot struct {
	node       engine.NodeID
	generation uint32
	live       bool
	style      style.Style
	context    any
	hasContext bool
}

// Arena owns the handle table of one layout module. It is not safe for
// concurrent use.
type Arena struct {
	id     uint32
	engine engine.Engine
	slots  []slot
	free   []uint32
	byNode map[engine.NodeID]uint32
	logger *zap.Logger
}

// New creates an arena over eng with a process-unique id.
func New(eng engine.Engine, logger *zap.Logger) *Arena {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := lastArenaID.Add(1)
	return &Arena{
		id:     id,
		engine: eng,
		byNode: make(map[engine.NodeID]uint32),
		logger: logger.With(zap.String("component", "arena"), zap.Uint32("arena", id)),
	}
}

// ID returns the arena id embedded in its handles.
func (a *Arena) ID() uint32 { return a.id }

// Engine returns the engine the arena drives.
func (a *Arena) Engine() engine.Engine { return a.engine }

// Len returns the number of live nodes.
func (a *Arena) Len() int { return len(a.byNode) }

// Resolve returns the engine node behind h.
func (a *Arena) Resolve(h Handle) (engine.NodeID, error) {
	s, err := a.slot(h)
	if err != nil {
		return 0, err
	}
	return s.node, nil
}

// HandleOf returns the handle of a live engine node.
func (a *Arena) HandleOf(id engine.NodeID) (Handle, bool) {
	idx, ok := a.byNode[id]
	if !ok {
		return Handle{}, false
	}
	return Handle{arena: a.id, index: idx, generation: a.slots[idx].generation}, true
}

func (a *Arena) slot(h Handle) (*slot, error) {
	if h.arena != a.id || int(h.index) >= len(a.slots) {
		return nil, &UnknownHandleError{Handle: h}
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, &UnknownHandleError{Handle: h}
	}
	return s, nil
}

func (a *Arena) insert(id engine.NodeID, st style.Style) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.generation++
	s.node, s.live, s.style = id, true, st
	a.byNode[id] = idx
	return Handle{arena: a.id, index: idx, generation: s.generation}
}

// CreateLeaf creates a node without children.
func (a *Arena) CreateLeaf(st style.Style) (Handle, error) {
	id, err := a.engine.NewNode(st)
	if err != nil {
		return Handle{}, fmt.Errorf("create leaf: %w", err)
	}
	return a.insert(id, st), nil
}

// CreateWithChildren creates a node whose children are the given handles
// in order. Every child must resolve and appear once before anything is
// created.
func (a *Arena) CreateWithChildren(st style.Style, children []Handle) (Handle, error) {
	ids := make([]engine.NodeID, len(children))
	seen := make(map[Handle]int, len(children))
	for i, c := range children {
		s, err := a.slot(c)
		if err != nil {
			return Handle{}, &UnknownChildHandleError{Child: c, Index: i}
		}
		if first, dup := seen[c]; dup {
			return Handle{}, &DuplicateChildError{Child: c, Index: i, First: first}
		}
		seen[c] = i
		ids[i] = s.node
	}

	id, err := a.engine.NewNode(st)
	if err != nil {
		return Handle{}, fmt.Errorf("create node: %w", err)
	}
	if err := a.engine.SetChildren(id, ids); err != nil {
		if rerr := a.engine.Remove(id); rerr != nil {
			a.logger.Warn("Failed to discard partially created node", zap.Error(rerr))
		}
		return Handle{}, fmt.Errorf("attach children: %w", err)
	}
	return a.insert(id, st), nil
}

// AddChild appends child to parent's children.
func (a *Arena) AddChild(parent, child Handle) error {
	p, err := a.slot(parent)
	if err != nil {
		return err
	}
	c, err := a.slot(child)
	if err != nil {
		return &UnknownChildHandleError{Child: child, Index: -1}
	}
	if err := a.engine.AddChild(p.node, c.node); err != nil {
		return fmt.Errorf("add child: %w", err)
	}
	return nil
}

// Children returns the handles of h's children in order.
func (a *Arena) Children(h Handle) ([]Handle, error) {
	s, err := a.slot(h)
	if err != nil {
		return nil, err
	}
	ids, err := a.engine.Children(s.node)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	out := make([]Handle, 0, len(ids))
	for _, id := range ids {
		if ch, ok := a.HandleOf(id); ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// SetStyle replaces h's style and marks it dirty in the engine.
func (a *Arena) SetStyle(h Handle, st style.Style) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if err := a.engine.SetStyle(s.node, st); err != nil {
		return fmt.Errorf("set style: %w", err)
	}
	if err := a.engine.MarkDirty(s.node); err != nil {
		return fmt.Errorf("mark dirty: %w", err)
	}
	s.style = st
	return nil
}

// Style returns the style last stored for h.
func (a *Arena) Style(h Handle) (style.Style, error) {
	s, err := a.slot(h)
	if err != nil {
		return style.Style{}, err
	}
	return s.style, nil
}

// Remove detaches and frees h. Its children stay alive as detached nodes.
func (a *Arena) Remove(h Handle) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if err := a.engine.Remove(s.node); err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	delete(a.byNode, s.node)
	*s = slot{generation: s.generation}
	a.free = append(a.free, h.index)
	return nil
}

// SetContext attaches host data to h. It is handed to measure callbacks.
func (a *Arena) SetContext(h Handle, ctx any) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	s.context, s.hasContext = ctx, true
	return a.engine.MarkDirty(s.node)
}

// ClearContext drops the host data of h.
func (a *Arena) ClearContext(h Handle) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	s.context, s.hasContext = nil, false
	return a.engine.MarkDirty(s.node)
}

// Context returns the host data of h and whether any is set.
func (a *Arena) Context(h Handle) (any, bool, error) {
	s, err := a.slot(h)
	if err != nil {
		return nil, false, err
	}
	return s.context, s.hasContext, nil
}
