package layout

import (
	"context"
	"sync"
)

// Bootstrapper produces an initialized Module.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) (*Module, error)
}

// Facade is the stable entry point handed to hosts before the engine is
// ready. Every operation fails with *NotInitializedError until a Module is
// bound, either directly or through Bootstrap.
type Facade struct {
	mu     sync.RWMutex
	module *Module
}

// Bind makes m the module behind f. A module bound earlier is not closed;
// it stays owned by whoever bound it.
func (f *Facade) Bind(m *Module) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.module = m
}

// Bootstrap runs b and binds the resulting module. f is left untouched
// when b fails.
func (f *Facade) Bootstrap(ctx context.Context, b Bootstrapper) error {
	m, err := b.Bootstrap(ctx)
	if err != nil {
		return err
	}
	f.Bind(m)
	return nil
}

// Ready reports whether a module is bound.
func (f *Facade) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.module != nil
}

// Module returns the bound module.
func (f *Facade) Module(op string) (*Module, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.module == nil {
		return nil, &NotInitializedError{Op: op}
	}
	return f.module, nil
}

// CreateLeaf creates a childless node on the bound module.
func (f *Facade) CreateLeaf(desc Descriptor) (Handle, error) {
	m, err := f.Module("CreateLeaf")
	if err != nil {
		return Handle{}, err
	}
	return m.CreateLeaf(desc)
}

// CreateWithChildren creates a node with the given children in order.
func (f *Facade) CreateWithChildren(desc Descriptor, children []Handle) (Handle, error) {
	m, err := f.Module("CreateWithChildren")
	if err != nil {
		return Handle{}, err
	}
	return m.CreateWithChildren(desc, children)
}

// AddChild appends child to parent.
func (f *Facade) AddChild(parent, child Handle) error {
	m, err := f.Module("AddChild")
	if err != nil {
		return err
	}
	return m.AddChild(parent, child)
}

// SetStyle replaces the style of node.
func (f *Facade) SetStyle(node Handle, desc Descriptor) error {
	m, err := f.Module("SetStyle")
	if err != nil {
		return err
	}
	return m.SetStyle(node, desc)
}

// Remove deletes node. Its handle stops resolving.
func (f *Facade) Remove(node Handle) error {
	m, err := f.Module("Remove")
	if err != nil {
		return err
	}
	return m.Remove(node)
}

// SetContext attaches host data to node. It is passed to measure.
func (f *Facade) SetContext(node Handle, ctx any) error {
	m, err := f.Module("SetContext")
	if err != nil {
		return err
	}
	return m.SetContext(node, ctx)
}

// ClearContext drops the host data of node.
func (f *Facade) ClearContext(node Handle) error {
	m, err := f.Module("ClearContext")
	if err != nil {
		return err
	}
	return m.ClearContext(node)
}

// ComputeLayout lays out the tree under root in a definite space.
func (f *Facade) ComputeLayout(root Handle, width, height float32) (*Result, error) {
	m, err := f.Module("ComputeLayout")
	if err != nil {
		return nil, err
	}
	return m.ComputeLayout(root, width, height)
}

// ComputeLayoutWithMeasure is ComputeLayout with measure sizing leaves.
func (f *Facade) ComputeLayoutWithMeasure(root Handle, width, height float32, measure MeasureFunc) (*Result, error) {
	m, err := f.Module("ComputeLayoutWithMeasure")
	if err != nil {
		return nil, err
	}
	return m.ComputeLayoutWithMeasure(root, width, height, measure)
}

// Layout returns the geometry of node and its subtree from the last pass.
func (f *Facade) Layout(node Handle) (*Result, error) {
	m, err := f.Module("Layout")
	if err != nil {
		return nil, err
	}
	return m.Layout(node)
}

// Close closes the bound module, if any, and unbinds it.
func (f *Facade) Close(ctx context.Context) error {
	f.mu.Lock()
	m := f.module
	f.module = nil
	f.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close(ctx)
}
