package flex

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

type (
	sizeF   = engine.Size[float32]
	sizeOpt = engine.Size[engine.Optional]
	sizeAv  = engine.Size[engine.AvailableSpace]
)

// Compute lays out the tree rooted at root. A clean root computed against
// the same available space is left as is unless a measure hook is given.
func (e *Engine) Compute(root engine.NodeID, available sizeAv, hooks engine.Hooks) error {
	n, err := e.get(root)
	if err != nil {
		return err
	}

	cached := !n.dirty && hooks.Measure == nil &&
		e.last.valid && e.last.root == root && e.last.available == available
	if hooks.Enabled() {
		hooks.Emit(root, "compute",
			diag.F("width", available.Width.String()),
			diag.F("height", available.Height.String()),
			diag.F("cached", cached),
		)
	}
	if cached {
		return nil
	}

	start := time.Now()
	p := &pass{e: e, hooks: hooks}
	parent := sizeOpt{Width: definite(available.Width), Height: definite(available.Height)}
	size := p.layout(root, sizeOpt{}, parent, available, true)
	n.layout = engine.Layout{Width: size.Width, Height: size.Height}

	e.clean(root)
	e.last.root, e.last.available, e.last.valid = root, available, true
	if hooks.Enabled() {
		e.report(root, hooks)
	}

	e.logger.Debug("Computed layout",
		zap.Uint64("root", uint64(root)),
		zap.Float32("width", size.Width),
		zap.Float32("height", size.Height),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (e *Engine) clean(id engine.NodeID) {
	n := e.nodes[id]
	n.dirty = false
	for _, c := range n.children {
		e.clean(c)
	}
}

func (e *Engine) report(id engine.NodeID, hooks engine.Hooks) {
	n := e.nodes[id]
	hooks.Emit(id, "layout",
		diag.F("x", n.layout.X),
		diag.F("y", n.layout.Y),
		diag.F("width", n.layout.Width),
		diag.F("height", n.layout.Height),
	)
	for _, c := range n.children {
		e.report(c, hooks)
	}
}

func (e *Engine) hide(id engine.NodeID) {
	n := e.nodes[id]
	n.layout = engine.Layout{}
	for _, c := range n.children {
		e.hide(c)
	}
}

// pass holds the state of one Compute call.
type pass struct {
	e     *Engine
	hooks engine.Hooks
}

// layout sizes id and returns its border box. known carries sizes imposed
// by the parent, parent is the parent's content size for percentages.
// When perform is set the children are positioned and results stored.
func (p *pass) layout(id engine.NodeID, known, parent sizeOpt, available sizeAv, perform bool) sizeF {
	n := p.e.nodes[id]
	st := n.style
	if st.Display == style.DisplayNone {
		if perform {
			p.e.hide(id)
		}
		return sizeF{}
	}

	pad := resolveEdges(st.Padding, parent.Width)
	border := resolveEdges(st.Border, parent.Width)
	pb := sizeF{
		Width:  pad.left + pad.right + border.left + border.right,
		Height: pad.top + pad.bottom + border.top + border.bottom,
	}

	width, height := known.Width, known.Height
	if !width.Known {
		width = resolve(st.Width, parent.Width)
	}
	if !height.Known {
		height = resolve(st.Height, parent.Height)
	}

	kids := p.visible(n)
	if len(kids) == 0 {
		if !width.Known || !height.Known {
			content := sizeOpt{Width: shrinkBy(width, pb.Width), Height: shrinkBy(height, pb.Height)}
			m := p.measure(id, content, available)
			if !width.Known {
				width = engine.Some(m.Width + pb.Width)
			}
			if !height.Known {
				height = engine.Some(m.Height + pb.Height)
			}
		}
		size := finish(st, width.Value, height.Value, parent, pb)
		if perform {
			n.layout.Width, n.layout.Height = size.Width, size.Height
		}
		return size
	}

	// Containers without a width fill a definite available width.
	if !width.Known && available.Width.IsDefinite() {
		width = engine.Some(available.Width.Value)
	}
	if width.Known {
		width = engine.Some(clampAxis(st, true, width.Value, parent.Width))
	}
	if height.Known {
		height = engine.Some(clampAxis(st, false, height.Value, parent.Height))
	}

	row := p.isRow(id, st, perform)
	if !width.Known || !height.Known {
		inner := sizeOpt{Width: shrinkBy(width, pb.Width), Height: shrinkBy(height, pb.Height)}
		content := p.line(n, kids, row, inner, false)
		if !width.Known {
			width = engine.Some(content.Width + pb.Width)
		}
		if !height.Known {
			height = engine.Some(content.Height + pb.Height)
		}
	}

	size := finish(st, width.Value, height.Value, parent, pb)
	if perform {
		inner := sizeOpt{
			Width:  engine.Some(max(0, size.Width-pb.Width)),
			Height: engine.Some(max(0, size.Height-pb.Height)),
		}
		p.line(n, kids, row, inner, true)
		n.layout.Width, n.layout.Height = size.Width, size.Height
	}
	return size
}

// isRow picks the main axis. Block stacks vertically and grid falls back
// to a row.
func (p *pass) isRow(id engine.NodeID, st style.Style, perform bool) bool {
	switch st.Display {
	case style.DisplayBlock:
		return false
	case style.DisplayGrid:
		if perform && p.hooks.Enabled() {
			p.hooks.Emit(id, "unsupported", diag.F("display", "grid"), diag.F("fallback", "row"))
		}
		return true
	default:
		return st.FlexDirection.IsRow()
	}
}

func (p *pass) visible(n *node) []engine.NodeID {
	var out []engine.NodeID
	for _, c := range n.children {
		if p.e.nodes[c].style.Display != style.DisplayNone {
			out = append(out, c)
		} else {
			p.e.hide(c)
		}
	}
	return out
}

func (p *pass) measure(id engine.NodeID, known sizeOpt, available sizeAv) sizeF {
	if p.hooks.Measure == nil {
		return sizeF{}
	}
	got := p.hooks.Measure(id, known, available)
	got.Width, got.Height = sane(got.Width), sane(got.Height)
	if p.hooks.Enabled() {
		p.hooks.Emit(id, "measure",
			diag.F("known", "("+known.Width.String()+","+known.Height.String()+")"),
			diag.F("available", "("+available.Width.String()+","+available.Height.String()+")"),
			diag.F("width", got.Width),
			diag.F("height", got.Height),
		)
	}
	return got
}

// item holds the per-child state of one line.
type item struct {
	id          engine.NodeID
	st          style.Style
	basis       float32
	hypo        float32
	main, cross float32
	mainPos     float32
	crossPos    float32
	mainStart   float32
	mainEnd     float32
	crossStart  float32
	crossEnd    float32
	minMain     engine.Optional
	maxMain     engine.Optional
	stretch     bool
}

// line places kids on a single flex line inside a content box of size
// inner and returns the size they occupy.
func (p *pass) line(n *node, kids []engine.NodeID, row bool, inner sizeOpt, perform bool) sizeF {
	st := n.style
	reverse := st.Display == style.DisplayFlex && st.FlexDirection.IsReverse()
	innerMain, innerCross := split(inner, row)

	var gap float32
	if row {
		gap = st.Gap.Column.ResolveOr(inner.Width.Value, inner.Width.Known, 0)
	} else {
		gap = st.Gap.Row.ResolveOr(inner.Height.Value, inner.Height.Known, 0)
	}

	// Phase 1: base sizes.
	items := make([]item, len(kids))
	var totalGrow float32
	used := gap * float32(len(kids)-1)
	for i, id := range kids {
		it := &items[i]
		it.id = id
		it.st = p.e.nodes[id].style
		margin := resolveEdges(it.st.Margin, inner.Width)
		it.mainStart, it.mainEnd = margin.along(row)
		it.crossStart, it.crossEnd = margin.along(!row)

		mainDim, minDim, maxDim := axisDims(it.st, row)
		crossDim, _, _ := axisDims(it.st, !row)
		it.minMain, it.maxMain = resolve(minDim, innerMain), resolve(maxDim, innerMain)
		it.stretch = alignOf(st, it.st) == style.AlignStretch && crossDim.IsAuto()

		if b := resolve(it.st.FlexBasis, innerMain); b.Known {
			it.basis = b.Value
		} else if d := resolve(mainDim, innerMain); d.Known {
			it.basis = d.Value
		} else {
			var childKnown sizeOpt
			crossSpace := engine.AvailableSpace{Kind: engine.MaxContent}
			if innerCross.Known {
				crossSpace = engine.DefiniteSpace(innerCross.Value)
				if it.stretch {
					childKnown = join(engine.None, engine.Some(max(0, innerCross.Value-it.crossStart-it.crossEnd)), row)
				}
			}
			sz := p.layout(id, childKnown, inner, join(engine.AvailableSpace{Kind: engine.MaxContent}, crossSpace, row), false)
			it.basis, _ = split(sz, row)
		}
		it.hypo = max(0, clampOpt(it.basis, it.minMain, it.maxMain))
		used += it.hypo + it.mainStart + it.mainEnd
		totalGrow += float32(it.st.FlexGrow)
	}

	// Phase 2: distribute free space.
	mainSize := used
	if innerMain.Known {
		mainSize = innerMain.Value
	}
	free := mainSize - used
	var totalShrink float32
	for i := range items {
		totalShrink += float32(items[i].st.FlexShrink) * items[i].basis
	}
	for i := range items {
		it := &items[i]
		switch {
		case free > 0 && totalGrow > 0:
			it.main = it.hypo + free*float32(it.st.FlexGrow)/totalGrow
		case free < 0 && totalShrink > 0:
			it.main = it.hypo + free*float32(it.st.FlexShrink)*it.basis/totalShrink
		default:
			it.main = it.hypo
		}
		// Phase 3: min/max.
		it.main = max(0, clampOpt(it.main, it.minMain, it.maxMain))
	}

	// Phase 4: cross sizes.
	var lineCross float32
	for i := range items {
		it := &items[i]
		crossDim, minDim, maxDim := axisDims(it.st, !row)
		minCross, maxCross := resolve(minDim, innerCross), resolve(maxDim, innerCross)
		switch {
		case resolve(crossDim, innerCross).Known:
			it.cross = resolve(crossDim, innerCross).Value
		case it.stretch && innerCross.Known:
			it.cross = innerCross.Value - it.crossStart - it.crossEnd
		default:
			space := join(engine.DefiniteSpace(it.main), engine.AvailableSpace{Kind: engine.MaxContent}, row)
			sz := p.layout(it.id, join(engine.Some(it.main), engine.None, row), inner, space, false)
			_, it.cross = split(sz, row)
		}
		it.cross = max(0, clampOpt(it.cross, minCross, maxCross))
		lineCross = max(lineCross, it.cross+it.crossStart+it.crossEnd)
	}
	if innerCross.Known {
		lineCross = innerCross.Value
	} else {
		for i := range items {
			it := &items[i]
			if it.stretch {
				_, minDim, maxDim := axisDims(it.st, !row)
				it.cross = max(0, clampOpt(lineCross-it.crossStart-it.crossEnd,
					resolve(minDim, innerCross), resolve(maxDim, innerCross)))
			}
		}
	}

	// Phase 5: positions.
	var occupied float32
	for i := range items {
		occupied += items[i].main + items[i].mainStart + items[i].mainEnd
	}
	occupied += gap * float32(len(items)-1)
	remaining := mainSize - occupied
	offset := justifyOffset(st.JustifyContent, remaining, len(items))
	spacing := justifySpacing(st.JustifyContent, remaining, len(items))

	pos := offset
	for i := range items {
		it := &items[i]
		it.mainPos = pos + it.mainStart
		if reverse {
			it.mainPos = mainSize - it.mainPos - it.main
		}
		pos += it.mainStart + it.main + it.mainEnd + gap + spacing

		slot := lineCross - it.cross - it.crossStart - it.crossEnd
		it.crossPos = it.crossStart + alignOffset(alignOf(st, it.st), slot)
	}

	// Phase 6: recurse.
	if perform {
		for i := range items {
			it := &items[i]
			known := join(engine.Some(it.main), engine.Some(it.cross), row)
			space := join(engine.DefiniteSpace(it.main), engine.DefiniteSpace(it.cross), row)
			p.layout(it.id, known, inner, space, true)

			c := p.e.nodes[it.id]
			at := join(it.mainPos, it.crossPos, row)
			c.layout.X, c.layout.Y = at.Width, at.Height
		}
	}

	return join(occupied, lineCross, row)
}

func alignOf(parent, child style.Style) style.Align {
	if child.AlignSelf != style.AlignAuto {
		return child.AlignSelf
	}
	return parent.AlignItems
}

func justifyOffset(justify style.Justify, free float32, count int) float32 {
	if free <= 0 || count == 0 {
		return 0
	}
	switch justify {
	case style.JustifyEnd:
		return free
	case style.JustifyCenter:
		return free / 2
	case style.JustifySpaceAround:
		return free / float32(count*2)
	case style.JustifySpaceEvenly:
		return free / float32(count+1)
	default:
		return 0
	}
}

func justifySpacing(justify style.Justify, free float32, count int) float32 {
	if free <= 0 || count <= 1 {
		return 0
	}
	switch justify {
	case style.JustifySpaceBetween:
		return free / float32(count-1)
	case style.JustifySpaceAround:
		return free / float32(count)
	case style.JustifySpaceEvenly:
		return free / float32(count+1)
	default:
		return 0
	}
}

func alignOffset(align style.Align, free float32) float32 {
	switch align {
	case style.AlignEnd:
		return free
	case style.AlignCenter:
		return free / 2
	default:
		return 0
	}
}

// finish applies min/max and keeps the box at least as large as its
// padding and border.
func finish(st style.Style, w, h float32, parent sizeOpt, pb sizeF) sizeF {
	return sizeF{
		Width:  max(clampAxis(st, true, w, parent.Width), pb.Width),
		Height: max(clampAxis(st, false, h, parent.Height), pb.Height),
	}
}

func clampAxis(st style.Style, horizontal bool, v float32, parent engine.Optional) float32 {
	_, minDim, maxDim := axisDims(st, horizontal)
	return clampOpt(v, resolve(minDim, parent), resolve(maxDim, parent))
}

// clampOpt restricts v to [lo, hi]. If lo > hi, lo wins.
func clampOpt(v float32, lo, hi engine.Optional) float32 {
	if hi.Known && v > hi.Value {
		v = hi.Value
	}
	if lo.Known && v < lo.Value {
		v = lo.Value
	}
	return v
}

func axisDims(st style.Style, horizontal bool) (size, minSize, maxSize style.Dimension) {
	if horizontal {
		return st.Width, st.MinWidth, st.MaxWidth
	}
	return st.Height, st.MinHeight, st.MaxHeight
}

func resolve(d style.Dimension, parent engine.Optional) engine.Optional {
	if v, ok := d.Resolve(parent.Value, parent.Known); ok {
		return engine.Some(v)
	}
	return engine.None
}

func definite(a engine.AvailableSpace) engine.Optional {
	if a.IsDefinite() {
		return engine.Some(a.Value)
	}
	return engine.None
}

func shrinkBy(o engine.Optional, d float32) engine.Optional {
	if !o.Known {
		return o
	}
	return engine.Some(max(0, o.Value-d))
}

func sane(v float32) float32 {
	if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func split[T any](s engine.Size[T], row bool) (main, cross T) {
	if row {
		return s.Width, s.Height
	}
	return s.Height, s.Width
}

func join[T any](main, cross T, row bool) engine.Size[T] {
	if row {
		return engine.Size[T]{Width: main, Height: cross}
	}
	return engine.Size[T]{Width: cross, Height: main}
}

type edges struct {
	top, right, bottom, left float32
}

// resolveEdges resolves every side against the parent width. Auto
// margins count as zero.
func resolveEdges(e style.Edges, parentWidth engine.Optional) edges {
	r := func(d style.Dimension) float32 {
		return d.ResolveOr(parentWidth.Value, parentWidth.Known, 0)
	}
	return edges{top: r(e.Top), right: r(e.Right), bottom: r(e.Bottom), left: r(e.Left)}
}

func (e edges) along(horizontal bool) (start, end float32) {
	if horizontal {
		return e.left, e.right
	}
	return e.top, e.bottom
}
