package protocol

import (
	"fmt"
	"strings"

	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

// Tree is a document materialized in a module.
type Tree struct {
	Root layout.Handle
	// IDs maps handles back to document ids.
	IDs map[layout.Handle]string
	// HasText reports whether any node carries measured text.
	HasText bool
}

// Build creates the nodes of doc in m, children before parents. Nodes
// created before a failure are removed.
func Build(m *layout.Module, doc *Document) (*Tree, error) {
	t := &Tree{IDs: make(map[layout.Handle]string)}
	var created []layout.Handle

	var build func(n *Node, path string) (layout.Handle, error)
	build = func(n *Node, path string) (layout.Handle, error) {
		children := make([]layout.Handle, 0, len(n.Children))
		for i, c := range n.Children {
			h, err := build(c, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return layout.Handle{}, err
			}
			children = append(children, h)
		}

		var h layout.Handle
		var err error
		if len(children) == 0 {
			h, err = m.CreateLeaf(n.Style)
		} else {
			h, err = m.CreateWithChildren(n.Style, children)
		}
		if err != nil {
			return layout.Handle{}, fmt.Errorf("%s: %w", path, err)
		}
		created = append(created, h)

		if n.Text != "" {
			if err := m.SetContext(h, n.Text); err != nil {
				return layout.Handle{}, err
			}
			t.HasText = true
		}
		if n.ID != "" {
			t.IDs[h] = n.ID
		}
		return h, nil
	}

	root, err := build(doc.Root, "root")
	if err != nil {
		for _, h := range created {
			_ = m.Remove(h)
		}
		return nil, err
	}
	t.Root = root
	return t, nil
}

// Compute builds doc in m and lays it out.
func Compute(m *layout.Module, doc *Document, measure layout.MeasureFunc) (*NodeLayout, error) {
	tree, err := Build(m, doc)
	if err != nil {
		return nil, err
	}
	if !tree.HasText {
		measure = nil
	}
	res, err := m.ComputeLayoutWithMeasure(tree.Root, doc.Available.Width, doc.Available.Height, measure)
	if err != nil {
		return nil, err
	}
	return NewNodeLayout(res, tree.IDs), nil
}

// MonospaceMeasure sizes text leaves as fixed-width glyphs, wrapping at
// the known width when there is one.
func MonospaceMeasure(charWidth, lineHeight float32) layout.MeasureFunc {
	return func(_ layout.Handle, ctx any, known layout.Size[layout.Optional], available layout.Size[layout.AvailableSpace]) layout.Size[float32] {
		text, ok := ctx.(string)
		if !ok || text == "" {
			return layout.Size[float32]{}
		}

		perLine := 0
		if known.Width.Known {
			perLine = int(known.Width.Value / charWidth)
		} else if available.Width.IsDefinite() {
			perLine = int(available.Width.Value / charWidth)
		}

		var lines, widest int
		for _, line := range strings.Split(text, "\n") {
			n := len([]rune(line))
			if perLine > 0 && n > perLine {
				lines += (n + perLine - 1) / perLine
				n = perLine
			} else {
				lines++
			}
			widest = max(widest, n)
		}
		return layout.Size[float32]{
			Width:  float32(widest) * charWidth,
			Height: float32(lines) * lineHeight,
		}
	}
}
