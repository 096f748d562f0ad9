package flex

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
	"github.com/woxQAQ/taffy-bridge/internal/style"
)

func styled(mods ...func(*style.Style)) style.Style {
	s := style.DefaultStyle()
	for _, m := range mods {
		m(&s)
	}
	return s
}

func size(w, h float64) func(*style.Style) {
	return func(s *style.Style) {
		s.Width, s.Height = style.Points(w), style.Points(h)
	}
}

func space(w, h float32) engine.Size[engine.AvailableSpace] {
	return engine.Size[engine.AvailableSpace]{Width: engine.DefiniteSpace(w), Height: engine.DefiniteSpace(h)}
}

func mustNode(t *testing.T, e *Engine, s style.Style, children ...engine.NodeID) engine.NodeID {
	t.Helper()
	id, err := e.NewNode(s)
	if err != nil {
		t.Fatalf("NewNode() failed: %v", err)
	}
	if len(children) > 0 {
		if err := e.SetChildren(id, children); err != nil {
			t.Fatalf("SetChildren() failed: %v", err)
		}
	}
	return id
}

func mustLayout(t *testing.T, e *Engine, id engine.NodeID) engine.Layout {
	t.Helper()
	l, err := e.Layout(id)
	if err != nil {
		t.Fatalf("Layout(%d) failed: %v", id, err)
	}
	return l
}

func expectLayout(t *testing.T, name string, got, want engine.Layout) {
	t.Helper()
	if got != want {
		t.Errorf("%s layout = %+v, want %+v", name, got, want)
	}
}

func TestComputeLeaf(t *testing.T) {
	type tc struct {
		style style.Style
		want  engine.Layout
	}

	tests := map[string]tc{
		"fixed size": {
			style: styled(size(100, 100)),
			want:  engine.Layout{Width: 100, Height: 100},
		},
		"empty leaf": {
			style: styled(),
			want:  engine.Layout{},
		},
		"percent of available": {
			style: styled(func(s *style.Style) {
				s.Width, s.Height = style.Percent(50), style.Percent(25)
			}),
			want: engine.Layout{Width: 100, Height: 50},
		},
		"padding only": {
			style: styled(func(s *style.Style) { s.Padding = style.EdgesAll(style.Points(5)) }),
			want:  engine.Layout{Width: 10, Height: 10},
		},
		"min size": {
			style: styled(func(s *style.Style) { s.MinWidth = style.Points(30) }),
			want:  engine.Layout{Width: 30},
		},
		"hidden": {
			style: styled(size(10, 10), func(s *style.Style) { s.Display = style.DisplayNone }),
			want:  engine.Layout{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := New(WithLogger(zaptest.NewLogger(t)))
			id := mustNode(t, e, tt.style)
			if err := e.Compute(id, space(200, 200), engine.Hooks{}); err != nil {
				t.Fatalf("Compute() failed: %v", err)
			}
			expectLayout(t, "leaf", mustLayout(t, e, id), tt.want)
		})
	}
}

func TestComputeRow(t *testing.T) {
	e := New()
	fixed := mustNode(t, e, styled(size(50, 20)))
	grow := mustNode(t, e, styled(func(s *style.Style) { s.FlexGrow = 1 }))
	centered := mustNode(t, e, styled(func(s *style.Style) {
		s.Width, s.Height = style.Points(30), style.Points(20)
		s.AlignSelf = style.AlignCenter
	}))
	root := mustNode(t, e, styled(size(300, 100), func(s *style.Style) {
		s.Padding = style.EdgesAll(style.Points(10))
	}), fixed, grow, centered)

	if err := e.Compute(root, space(500, 500), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}

	expectLayout(t, "root", mustLayout(t, e, root), engine.Layout{Width: 300, Height: 100})
	expectLayout(t, "fixed", mustLayout(t, e, fixed), engine.Layout{X: 0, Y: 0, Width: 50, Height: 20})
	expectLayout(t, "grow", mustLayout(t, e, grow), engine.Layout{X: 50, Y: 0, Width: 200, Height: 80})
	expectLayout(t, "centered", mustLayout(t, e, centered), engine.Layout{X: 250, Y: 30, Width: 30, Height: 20})
}

func TestComputeShrink(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(size(80, 10)))
	b := mustNode(t, e, styled(size(80, 10)))
	root := mustNode(t, e, styled(size(100, 10)), a, b)

	if err := e.Compute(root, space(100, 100), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}
	expectLayout(t, "a", mustLayout(t, e, a), engine.Layout{X: 0, Width: 50, Height: 10})
	expectLayout(t, "b", mustLayout(t, e, b), engine.Layout{X: 50, Width: 50, Height: 10})
}

func TestComputeColumnJustify(t *testing.T) {
	type tc struct {
		justify style.Justify
		wantY   []float32
	}

	tests := map[string]tc{
		"start":         {justify: style.JustifyStart, wantY: []float32{0, 20, 40}},
		"end":           {justify: style.JustifyEnd, wantY: []float32{140, 160, 180}},
		"center":        {justify: style.JustifyCenter, wantY: []float32{70, 90, 110}},
		"space between": {justify: style.JustifySpaceBetween, wantY: []float32{0, 90, 180}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := New()
			var kids []engine.NodeID
			for range 3 {
				kids = append(kids, mustNode(t, e, styled(func(s *style.Style) { s.Height = style.Points(20) })))
			}
			root := mustNode(t, e, styled(size(100, 200), func(s *style.Style) {
				s.FlexDirection = style.Column
				s.JustifyContent = tt.justify
			}), kids...)

			if err := e.Compute(root, space(100, 200), engine.Hooks{}); err != nil {
				t.Fatal(err)
			}
			for i, id := range kids {
				got := mustLayout(t, e, id)
				want := engine.Layout{Y: tt.wantY[i], Width: 100, Height: 20}
				expectLayout(t, "child", got, want)
			}
		})
	}
}

func TestComputeReverseAndGap(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(size(10, 10)))
	b := mustNode(t, e, styled(size(20, 10)))
	root := mustNode(t, e, styled(size(100, 10), func(s *style.Style) {
		s.FlexDirection = style.RowReverse
		s.Gap.Column = style.Points(5)
	}), a, b)

	if err := e.Compute(root, space(100, 100), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}
	expectLayout(t, "a", mustLayout(t, e, a), engine.Layout{X: 90, Width: 10, Height: 10})
	expectLayout(t, "b", mustLayout(t, e, b), engine.Layout{X: 65, Width: 20, Height: 10})
}

func TestComputeAutoContainer(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(size(40, 10)))
	b := mustNode(t, e, styled(size(40, 30)))
	hidden := mustNode(t, e, styled(size(500, 500), func(s *style.Style) { s.Display = style.DisplayNone }))
	root := mustNode(t, e, styled(), a, hidden, b)

	if err := e.Compute(root, space(200, 200), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}

	// Width fills the available space, height follows content.
	expectLayout(t, "root", mustLayout(t, e, root), engine.Layout{Width: 200, Height: 30})
	expectLayout(t, "b", mustLayout(t, e, b), engine.Layout{X: 40, Width: 40, Height: 30})
	expectLayout(t, "hidden", mustLayout(t, e, hidden), engine.Layout{})
}

func TestComputeBlockStacks(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(func(s *style.Style) { s.Height = style.Points(10) }))
	b := mustNode(t, e, styled(func(s *style.Style) { s.Height = style.Points(15) }))
	root := mustNode(t, e, styled(func(s *style.Style) { s.Display = style.DisplayBlock }), a, b)

	if err := e.Compute(root, space(120, 300), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}
	expectLayout(t, "root", mustLayout(t, e, root), engine.Layout{Width: 120, Height: 25})
	expectLayout(t, "b", mustLayout(t, e, b), engine.Layout{Y: 10, Width: 120, Height: 15})
}

func TestComputeWithMeasure(t *testing.T) {
	e := New()
	text := mustNode(t, e, styled())
	root := mustNode(t, e, styled(), text)

	var calls int
	hooks := engine.Hooks{
		Measure: func(id engine.NodeID, known engine.Size[engine.Optional], _ engine.Size[engine.AvailableSpace]) engine.Size[float32] {
			calls++
			if id != text {
				t.Errorf("measure called for %d, want %d", id, text)
			}
			w := float32(40)
			if known.Width.Known {
				w = known.Width.Value
			}
			return engine.Size[float32]{Width: w, Height: 10}
		},
	}

	if err := e.Compute(root, space(200, 200), hooks); err != nil {
		t.Fatal(err)
	}
	if calls == 0 {
		t.Fatal("measure was never called")
	}
	expectLayout(t, "root", mustLayout(t, e, root), engine.Layout{Width: 200, Height: 10})
	expectLayout(t, "text", mustLayout(t, e, text), engine.Layout{Width: 40, Height: 10})
}

func TestComputeIsDeterministic(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(func(s *style.Style) { s.FlexGrow = 1 }))
	b := mustNode(t, e, styled(func(s *style.Style) {
		s.FlexGrow = 2
		s.MaxWidth = style.Points(50)
	}))
	root := mustNode(t, e, styled(size(160, 40)), a, b)

	var first []engine.Layout
	for round := range 3 {
		if err := e.MarkDirty(root); err != nil {
			t.Fatal(err)
		}
		if err := e.Compute(root, space(160, 40), engine.Hooks{}); err != nil {
			t.Fatal(err)
		}
		got := []engine.Layout{mustLayout(t, e, root), mustLayout(t, e, a), mustLayout(t, e, b)}
		if round == 0 {
			first = got
			continue
		}
		for i := range got {
			if got[i] != first[i] {
				t.Errorf("round %d node %d: %+v, want %+v", round, i, got[i], first[i])
			}
		}
	}
	if first[2].Width != 50 {
		t.Errorf("max width not applied: %+v", first[2])
	}
}

func TestDirtyPropagation(t *testing.T) {
	e := New()
	leaf := mustNode(t, e, styled(size(10, 10)))
	mid := mustNode(t, e, styled(), leaf)
	root := mustNode(t, e, styled(), mid)

	if err := e.Compute(root, space(100, 100), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []engine.NodeID{root, mid, leaf} {
		if dirty, _ := e.Dirty(id); dirty {
			t.Errorf("node %d dirty after Compute", id)
		}
	}

	if err := e.SetStyle(leaf, styled(size(20, 20))); err != nil {
		t.Fatal(err)
	}
	for _, id := range []engine.NodeID{root, mid, leaf} {
		if dirty, _ := e.Dirty(id); !dirty {
			t.Errorf("node %d should be dirty after SetStyle on leaf", id)
		}
	}

	if err := e.Compute(root, space(100, 100), engine.Hooks{}); err != nil {
		t.Fatal(err)
	}
	expectLayout(t, "leaf", mustLayout(t, e, leaf), engine.Layout{Width: 20, Height: 20})
}

func TestComputeDiagnostics(t *testing.T) {
	e := New()
	leaf := mustNode(t, e, styled(size(10, 10)))
	root := mustNode(t, e, styled(func(s *style.Style) { s.Display = style.DisplayGrid }), leaf)

	rec := diag.NewRecorder()
	hooks := engine.Hooks{
		Sink: rec,
		Label: func(id engine.NodeID) string {
			if id == root {
				return "root"
			}
			return "leaf"
		},
	}

	if err := e.Compute(root, space(50, 50), hooks); err != nil {
		t.Fatal(err)
	}
	if got := rec.Named("unsupported"); len(got) != 1 || got[0].Node != "root" {
		t.Errorf("unsupported events = %+v", got)
	}
	if got := rec.Named("layout"); len(got) != 2 {
		t.Errorf("layout events = %d, want 2", len(got))
	}
	lines := rec.Lines()
	if len(lines) == 0 || lines[0] != "[root] compute width=50 height=50 cached=false" {
		t.Errorf("first line = %q", lines)
	}

	// Unchanged input reuses the previous pass.
	rec.Reset()
	if err := e.Compute(root, space(50, 50), hooks); err != nil {
		t.Fatal(err)
	}
	if got := rec.Lines(); len(got) != 1 || got[0] != "[root] compute width=50 height=50 cached=true" {
		t.Errorf("cached pass lines = %q", got)
	}
}

func TestComputeWithoutSinkSkipsEvents(t *testing.T) {
	e := New()
	leaf := mustNode(t, e, styled())
	root := mustNode(t, e, styled(func(s *style.Style) { s.Display = style.DisplayGrid }), leaf)

	labels := 0
	hooks := engine.Hooks{
		Label: func(engine.NodeID) string { labels++; return "n" },
		Measure: func(engine.NodeID, engine.Size[engine.Optional], engine.Size[engine.AvailableSpace]) engine.Size[float32] {
			return engine.Size[float32]{Width: 12, Height: 6}
		},
	}
	if hooks.Enabled() {
		t.Fatal("hooks without a sink must be disabled")
	}
	if err := e.Compute(root, space(50, 50), hooks); err != nil {
		t.Fatal(err)
	}
	if labels != 0 {
		t.Errorf("Label called %d times without a sink", labels)
	}
	if l := mustLayout(t, e, leaf); l.Width != 12 {
		t.Errorf("leaf width = %v, want 12", l.Width)
	}
}

func TestTreeEditing(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled())
	b := mustNode(t, e, styled())
	p1 := mustNode(t, e, styled(), a, b)
	p2 := mustNode(t, e, styled())

	if err := e.AddChild(p2, a); err != nil {
		t.Fatal(err)
	}
	if kids, _ := e.Children(p1); len(kids) != 1 || kids[0] != b {
		t.Errorf("p1 children = %v, want [%d]", kids, b)
	}
	if kids, _ := e.Children(p2); len(kids) != 1 || kids[0] != a {
		t.Errorf("p2 children = %v, want [%d]", kids, a)
	}

	if err := e.AddChild(a, p2); !errors.Is(err, ErrCycle) {
		t.Errorf("AddChild(a, p2) = %v, want ErrCycle", err)
	}
	if err := e.SetChildren(a, []engine.NodeID{a}); !errors.Is(err, ErrCycle) {
		t.Errorf("SetChildren(a, [a]) = %v, want ErrCycle", err)
	}

	if err := e.Remove(b); err != nil {
		t.Fatal(err)
	}
	if kids, _ := e.Children(p1); len(kids) != 0 {
		t.Errorf("p1 children after Remove = %v", kids)
	}

	var nf *engine.NodeNotFoundError
	if _, err := e.Layout(b); !errors.As(err, &nf) || nf.Node != b {
		t.Errorf("Layout(removed) = %v, want NodeNotFoundError", err)
	}
	if err := e.AddChild(p1, 999); !errors.As(err, &nf) {
		t.Errorf("AddChild(unknown) = %v, want NodeNotFoundError", err)
	}
}

func TestDuplicateChildren(t *testing.T) {
	e := New()
	a := mustNode(t, e, styled(size(10, 10)))
	b := mustNode(t, e, styled(size(10, 10)))
	p := mustNode(t, e, styled(), b)

	if err := e.SetChildren(p, []engine.NodeID{a, a}); !errors.Is(err, ErrDuplicateChild) {
		t.Fatalf("SetChildren(p, [a a]) = %v, want ErrDuplicateChild", err)
	}
	if kids, _ := e.Children(p); len(kids) != 1 || kids[0] != b {
		t.Errorf("p children after rejected set = %v, want [%d]", kids, b)
	}

	if err := e.AddChild(p, a); err != nil {
		t.Fatal(err)
	}
	if err := e.AddChild(p, a); err != nil {
		t.Fatal(err)
	}
	if kids, _ := e.Children(p); len(kids) != 2 || kids[0] != b || kids[1] != a {
		t.Errorf("p children after re-adding a = %v, want [%d %d]", kids, b, a)
	}

	if err := e.Remove(a); err != nil {
		t.Fatal(err)
	}
	if err := e.Compute(p, space(100, 100), engine.Hooks{}); err != nil {
		t.Fatalf("Compute() after Remove failed: %v", err)
	}
	expectLayout(t, "b", mustLayout(t, e, b), engine.Layout{Width: 10, Height: 10})
}
