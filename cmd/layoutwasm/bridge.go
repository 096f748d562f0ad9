//go:build js && wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/bootstrap"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/style"
	"github.com/woxQAQ/taffy-bridge/pkg/layout"
	"github.com/woxQAQ/taffy-bridge/pkg/protocol"
)

type bridge struct {
	facade *layout.Facade
	boot   *bootstrap.Bootstrapper
	sink   diag.Sink
	logger *zap.Logger

	funcs []js.Func
}

func (b *bridge) register() {
	methods := map[string]func(args []js.Value) (any, error){
		"createLeaf":               b.createLeaf,
		"createWithChildren":       b.createWithChildren,
		"addChild":                 b.addChild,
		"setStyle":                 b.setStyle,
		"remove":                   b.remove,
		"computeLayout":            b.computeLayout,
		"computeLayoutWithMeasure": b.computeLayoutWithMeasure,
		"setNodeContext":           b.setNodeContext,
		"removeNodeContext":        b.removeNodeContext,
		"layout":                   b.layout,
	}

	obj := js.Global().Get("Object").New()
	for name, fn := range methods {
		f := wrap(fn)
		b.funcs = append(b.funcs, f)
		obj.Set(name, f)
	}
	initFn := js.FuncOf(b.init)
	b.funcs = append(b.funcs, initFn)
	obj.Set("init", initFn)
	obj.Set("diagnostics", diag.Active.String())
	js.Global().Set("taffyBridge", obj)
}

// wrap converts a Go method into a callback returning {value} or {error}.
func wrap(fn func(args []js.Value) (any, error)) js.Func {
	return js.FuncOf(func(_ js.Value, args []js.Value) (out any) {
		defer func() {
			if r := recover(); r != nil {
				out = failure(fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := fn(args)
		if err != nil {
			return failure(err)
		}
		return map[string]any{"value": v}
	})
}

func failure(err error) map[string]any {
	p := protocol.NewErrorPayload(err)
	return map[string]any{"error": map[string]any{
		"kind":             p.Kind,
		"message":          p.Message,
		"field":            p.Field,
		"handle":           p.Handle,
		"needsManualBytes": p.NeedsManualBytes,
	}}
}

// init(reference, bytes?) bootstraps the engine module. Fetching blocks, so
// the work runs on its own goroutine behind a Promise.
func (b *bridge) init(_ js.Value, args []js.Value) any {
	var reference string
	var data []byte
	if len(args) > 0 && args[0].Type() == js.TypeString {
		reference = args[0].String()
	}
	if len(args) > 1 && !args[1].IsUndefined() && !args[1].IsNull() {
		data = make([]byte, args[1].Get("length").Int())
		js.CopyBytesToGo(data, args[1])
	}

	var handler js.Func
	handler = js.FuncOf(func(_ js.Value, p []js.Value) any {
		resolve, reject := p[0], p[1]
		go func() {
			defer handler.Release()
			if err := b.bootstrap(reference, data); err != nil {
				reject.Invoke(js.ValueOf(failure(err)))
				return
			}
			resolve.Invoke(js.ValueOf(map[string]any{"value": true}))
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}

func (b *bridge) bootstrap(reference string, data []byte) error {
	ctx := context.Background()
	boot, err := bootstrap.New(ctx, b.bootstrapOptions(reference, data))
	if err != nil {
		return err
	}
	m, err := boot.Bootstrap(ctx)
	if err != nil {
		_ = boot.Close(ctx)
		return err
	}

	// A previous module and its runtime are replaced.
	if err := b.facade.Close(ctx); err != nil {
		b.logger.Warn("Failed to close previous module", zap.Error(err))
	}
	if b.boot != nil {
		_ = b.boot.Close(ctx)
	}
	b.boot = boot
	b.facade.Bind(m)
	return nil
}

func descriptor(v js.Value) (layout.Descriptor, error) {
	if v.Type() != js.TypeObject {
		return nil, errors.New("style must be an object")
	}
	return style.ParseJSON([]byte(js.Global().Get("JSON").Call("stringify", v).String()))
}

func handle(v js.Value) (layout.Handle, error) {
	if v.Type() != js.TypeString {
		return layout.Handle{}, errors.New("handle must be a string")
	}
	return layout.ParseHandle(v.String())
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func (b *bridge) createLeaf(args []js.Value) (any, error) {
	desc, err := descriptor(arg(args, 0))
	if err != nil {
		return nil, err
	}
	h, err := b.facade.CreateLeaf(desc)
	if err != nil {
		return nil, err
	}
	return h.String(), nil
}

func (b *bridge) createWithChildren(args []js.Value) (any, error) {
	desc, err := descriptor(arg(args, 0))
	if err != nil {
		return nil, err
	}
	list := arg(args, 1)
	if list.Type() != js.TypeObject {
		return nil, errors.New("children must be an array")
	}
	children := make([]layout.Handle, list.Length())
	for i := range children {
		if children[i], err = handle(list.Index(i)); err != nil {
			return nil, err
		}
	}
	h, err := b.facade.CreateWithChildren(desc, children)
	if err != nil {
		return nil, err
	}
	return h.String(), nil
}

func (b *bridge) addChild(args []js.Value) (any, error) {
	parent, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	child, err := handle(arg(args, 1))
	if err != nil {
		return nil, err
	}
	return nil, b.facade.AddChild(parent, child)
}

func (b *bridge) setStyle(args []js.Value) (any, error) {
	h, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	desc, err := descriptor(arg(args, 1))
	if err != nil {
		return nil, err
	}
	return nil, b.facade.SetStyle(h, desc)
}

func (b *bridge) remove(args []js.Value) (any, error) {
	h, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	return nil, b.facade.Remove(h)
}

func (b *bridge) computeLayout(args []js.Value) (any, error) {
	root, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	width, height := arg(args, 1), arg(args, 2)
	if width.Type() != js.TypeNumber || height.Type() != js.TypeNumber {
		return nil, errors.New("available width and height must be numbers")
	}
	res, err := b.facade.ComputeLayout(root, float32(width.Float()), float32(height.Float()))
	if err != nil {
		return nil, err
	}
	return toJS(protocol.NewNodeLayout(res, nil))
}

// computeLayoutWithMeasure(root, width, height, fn) sizes leaves with
// fn(context, {width, height}). fn may return {width, height} or
// [width, height]; anything else, or a throw, measures as 0x0.
func (b *bridge) computeLayoutWithMeasure(args []js.Value) (any, error) {
	root, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	width, height := arg(args, 1), arg(args, 2)
	if width.Type() != js.TypeNumber || height.Type() != js.TypeNumber {
		return nil, errors.New("available width and height must be numbers")
	}
	fn := arg(args, 3)
	if fn.Type() != js.TypeFunction {
		return nil, errors.New("measure must be a function")
	}
	res, err := b.facade.ComputeLayoutWithMeasure(root, float32(width.Float()), float32(height.Float()), jsMeasure(fn))
	if err != nil {
		return nil, err
	}
	return toJS(protocol.NewNodeLayout(res, nil))
}

func jsMeasure(fn js.Value) layout.MeasureFunc {
	return func(_ layout.Handle, ctx any, known layout.Size[layout.Optional], available layout.Size[layout.AvailableSpace]) (size layout.Size[float32]) {
		defer func() {
			if r := recover(); r != nil {
				size = layout.Size[float32]{}
			}
		}()
		data := js.Null()
		if v, ok := ctx.(js.Value); ok {
			data = v
		}
		c := layout.Constraints(known, available)
		constraints := map[string]any{"width": spaceValue(c.Width), "height": spaceValue(c.Height)}
		return measured(fn.Invoke(data, constraints))
	}
}

func spaceValue(a layout.AvailableSpace) any {
	if a.IsDefinite() {
		return float64(a.Value)
	}
	return a.String()
}

func measured(v js.Value) layout.Size[float32] {
	num := func(x js.Value) float32 {
		if x.Type() != js.TypeNumber {
			return 0
		}
		return float32(x.Float())
	}
	switch {
	case js.Global().Get("Array").Call("isArray", v).Bool():
		return layout.Size[float32]{Width: num(v.Index(0)), Height: num(v.Index(1))}
	case v.Type() == js.TypeObject:
		return layout.Size[float32]{Width: num(v.Get("width")), Height: num(v.Get("height"))}
	default:
		return layout.Size[float32]{}
	}
}

// setNodeContext(handle, data) attaches data for measure callbacks.
func (b *bridge) setNodeContext(args []js.Value) (any, error) {
	h, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	return nil, b.facade.SetContext(h, arg(args, 1))
}

func (b *bridge) removeNodeContext(args []js.Value) (any, error) {
	h, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	return nil, b.facade.ClearContext(h)
}

func (b *bridge) layout(args []js.Value) (any, error) {
	h, err := handle(arg(args, 0))
	if err != nil {
		return nil, err
	}
	res, err := b.facade.Layout(h)
	if err != nil {
		return nil, err
	}
	return toJS(protocol.NewNodeLayout(res, nil))
}

// toJS converts v to a plain JavaScript object through its JSON form.
func toJS(v any) (any, error) {
	data, err := protocol.Marshal(v, false)
	if err != nil {
		return nil, err
	}
	return js.Global().Get("JSON").Call("parse", string(data)), nil
}
