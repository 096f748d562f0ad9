package wasm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/taffy-bridge/api/wasm"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

// ErrMeasureUnsupported is returned when a measure hook is passed to an
// engine running inside a guest. Guest engines cannot call back into Go
// measure functions.
var ErrMeasureUnsupported = errors.New("measure callbacks are not supported by wasm engines")

// Engine drives a layout engine exported by a guest module.
type Engine struct {
	inst *Instance
	mem  *Memory
	ctx  context.Context

	// scratch receives layout records.
	scratch uint32
}

var _ engine.Engine = (*Engine)(nil)

// NewEngine binds to the layout ABI of inst. ctx is used for every guest
// call made through the engine.
func NewEngine(ctx context.Context, inst *Instance) (*Engine, error) {
	if missing := inst.MissingExports(); len(missing) > 0 {
		return nil, &MissingABIError{ModuleName: inst.Name, Missing: missing}
	}
	e := &Engine{inst: inst, mem: inst.Memory(), ctx: ctx}
	ptr, err := e.mem.WriteBytes(ctx, make([]byte, abi.LayoutRecordSize))
	if err != nil {
		return nil, fmt.Errorf("allocate layout record: %w", err)
	}
	e.scratch = ptr
	return e, nil
}

// Instance returns the guest instance.
func (e *Engine) Instance() *Instance { return e.inst }

func (e *Engine) call(name string, params ...uint64) (uint64, error) {
	res, err := e.inst.Call(e.ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

// status calls an export returning a status code.
func (e *Engine) status(name string, node engine.NodeID, params ...uint64) error {
	res, err := e.call(name, params...)
	if err != nil {
		return err
	}
	switch code := api.DecodeI32(res); code {
	case abi.StatusOK:
		return nil
	case abi.StatusNodeNotFound:
		return &engine.NodeNotFoundError{Node: node}
	default:
		return &ABIError{FunctionName: name, Status: code}
	}
}

// withBytes copies data into guest memory for the duration of fn.
func (e *Engine) withBytes(data []byte, fn func(ptr, size uint32) error) error {
	ptr, err := e.mem.WriteBytes(e.ctx, data)
	if err != nil {
		return err
	}
	defer func() { _ = e.mem.Free(e.ctx, ptr, uint32(len(data))) }()
	return fn(ptr, uint32(len(data)))
}

func nodeParam(id engine.NodeID) uint64 { return api.EncodeU32(uint32(id)) }

// NewNode creates a guest node from the JSON form of s.
func (e *Engine) NewNode(s style.Style) (engine.NodeID, error) {
	data, err := style.MarshalJSON(s)
	if err != nil {
		return 0, err
	}
	var id engine.NodeID
	err = e.withBytes(data, func(ptr, size uint32) error {
		res, err := e.call(abi.ExportNodeNew, api.EncodeU32(ptr), api.EncodeU32(size))
		if err != nil {
			return err
		}
		if id = engine.NodeID(api.DecodeU32(res)); id == 0 {
			return &ABIError{FunctionName: abi.ExportNodeNew, Status: abi.StatusInvalidStyle}
		}
		return nil
	})
	return id, err
}

// SetStyle replaces the style of a guest node.
func (e *Engine) SetStyle(id engine.NodeID, s style.Style) error {
	data, err := style.MarshalJSON(s)
	if err != nil {
		return err
	}
	return e.withBytes(data, func(ptr, size uint32) error {
		return e.status(abi.ExportNodeSetStyle, id, nodeParam(id), api.EncodeU32(ptr), api.EncodeU32(size))
	})
}

// SetChildren replaces the children of a guest node.
func (e *Engine) SetChildren(id engine.NodeID, children []engine.NodeID) error {
	data := encodeNodeIDs(children)
	if len(data) == 0 {
		return e.status(abi.ExportNodeSetChildren, id, nodeParam(id), 0, 0)
	}
	return e.withBytes(data, func(ptr, _ uint32) error {
		return e.status(abi.ExportNodeSetChildren, id, nodeParam(id), api.EncodeU32(ptr), api.EncodeU32(uint32(len(children))))
	})
}

// AddChild appends child by rewriting the parent's child list.
func (e *Engine) AddChild(parent, child engine.NodeID) error {
	children, err := e.Children(parent)
	if err != nil {
		return err
	}
	return e.SetChildren(parent, append(children, child))
}

// Children lists the children of a guest node.
func (e *Engine) Children(id engine.NodeID) ([]engine.NodeID, error) {
	res, err := e.call(abi.ExportNodeChildCount, nodeParam(id))
	if err != nil {
		return nil, err
	}
	count := api.DecodeI32(res)
	if count < 0 {
		return nil, &engine.NodeNotFoundError{Node: id}
	}
	out := make([]engine.NodeID, count)
	for i := range out {
		res, err := e.call(abi.ExportNodeChildAt, nodeParam(id), api.EncodeU32(uint32(i)))
		if err != nil {
			return nil, err
		}
		out[i] = engine.NodeID(api.DecodeU32(res))
	}
	return out, nil
}

// Remove deletes a guest node.
func (e *Engine) Remove(id engine.NodeID) error {
	return e.status(abi.ExportNodeRemove, id, nodeParam(id))
}

// MarkDirty flags a guest node for recomputation.
func (e *Engine) MarkDirty(id engine.NodeID) error {
	return e.status(abi.ExportNodeMarkDirty, id, nodeParam(id))
}

// Compute runs the guest layout pass. Guest diagnostics are routed to
// hooks.Sink for the duration of the call.
func (e *Engine) Compute(root engine.NodeID, available engine.Size[engine.AvailableSpace], hooks engine.Hooks) error {
	if hooks.Measure != nil {
		return ErrMeasureUnsupported
	}
	if hooks.Enabled() {
		hooks.Emit(root, "compute",
			diag.F("width", available.Width.String()),
			diag.F("height", available.Height.String()),
		)
	}

	e.inst.SetDiagnostics(hooks.Sink, hooks.Label)
	defer e.inst.SetDiagnostics(nil, nil)

	wk, wv := encodeSpace(available.Width)
	hk, hv := encodeSpace(available.Height)
	return e.status(abi.ExportCompute, root, nodeParam(root), wk, wv, hk, hv)
}

// Layout reads the computed geometry of a guest node.
func (e *Engine) Layout(id engine.NodeID) (engine.Layout, error) {
	if err := e.status(abi.ExportLayout, id, nodeParam(id), api.EncodeU32(e.scratch)); err != nil {
		return engine.Layout{}, err
	}
	vals, err := e.mem.ReadFloat32s(e.scratch, abi.LayoutRecordSize/4)
	if err != nil {
		return engine.Layout{}, err
	}
	return engine.Layout{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Close releases the scratch buffer. The instance stays open.
func (e *Engine) Close() error {
	if e.scratch == 0 {
		return nil
	}
	err := e.mem.Free(e.ctx, e.scratch, abi.LayoutRecordSize)
	e.scratch = 0
	return err
}

func encodeNodeIDs(ids []engine.NodeID) []byte {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(id))
	}
	return buf
}

func encodeSpace(a engine.AvailableSpace) (kind, value uint64) {
	switch a.Kind {
	case engine.MinContent:
		return api.EncodeU32(abi.SpaceMinContent), api.EncodeF32(0)
	case engine.MaxContent:
		return api.EncodeU32(abi.SpaceMaxContent), api.EncodeF32(0)
	default:
		return api.EncodeU32(abi.SpaceDefinite), api.EncodeF32(a.Value)
	}
}
